package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/dbx"
	"github.com/google/uuid"
)

// CurationPatch carries the updatable fields of a curation.
type CurationPatch struct {
	Concepts []models.Concept
	Notes    *models.Notes
}

// CreateCuration writes a curation and its create queue item atomically.
// The referenced entity must resolve locally; otherwise nothing is written
// and ErrUnknownEntity is returned.
func (s *Store) CreateCuration(ctx context.Context, sess Session, c *models.Curation) error {
	if c.CurationID == "" {
		c.CurationID = uuid.NewString()
	}
	c.CuratorID = sess.CuratorID
	c.CuratorName = sess.CuratorName
	if err := c.Validate(); err != nil {
		return err
	}

	now := s.nowUTC()
	c.Version = 1
	c.CreatedAt = now
	c.UpdatedAt = now
	c.SyncStatus = models.SyncStatusPending
	c.ServerRef = ""

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := entityExists(ctx, tx, c.EntityID); err != nil {
			return err
		}
		if err := rememberCurator(ctx, tx, sess.CuratorID, sess.CuratorName); err != nil {
			return err
		}
		if err := insertCuration(ctx, tx, c); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TargetCuration, models.ActionCreate, c.CurationID, c)
	})
}

// UpdateCuration applies patch, bumps the version, flags the row pending and
// enqueues the update, all atomically.
func (s *Store) UpdateCuration(ctx context.Context, sess Session, id string, patch CurationPatch) (*models.Curation, error) {
	var updated *models.Curation

	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := getCuration(ctx, tx, id)
		if err != nil {
			return err
		}

		if patch.Concepts != nil {
			c.Concepts = patch.Concepts
		}
		if patch.Notes != nil {
			c.Notes = *patch.Notes
		}

		c.Version++
		c.UpdatedAt = s.nowUTC()
		c.SyncStatus = models.SyncStatusPending

		if err := updateCurationRow(ctx, tx, c); err != nil {
			return err
		}
		if err := s.enqueue(ctx, tx, models.TargetCuration, models.ActionUpdate, c.CurationID, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCuration soft-deletes locally and enqueues the delete.
func (s *Store) DeleteCuration(ctx context.Context, sess Session, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := getCuration(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE curations SET deleted=1, sync_status=?, updated_at=? WHERE curation_id=? AND deleted=0`,
			models.SyncStatusPending, fmtTime(s.nowUTC()), id)
		if err != nil {
			return fmt.Errorf("failed to delete curation: %w", err)
		}
		if err := dbx.ExpectRows(res, 1); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TargetCuration, models.ActionDelete, id, c)
	})
}

// GetCuration returns a single non-deleted curation with its curator name
// resolved at read time.
func (s *Store) GetCuration(ctx context.Context, id string) (*models.Curation, error) {
	return getCuration(ctx, s.db, id)
}

// ListCurationsByEntity returns an entity's curations, optionally narrowed
// to one curator. Covered by idx_curations_entity_curator.
func (s *Store) ListCurationsByEntity(ctx context.Context, entityID, curatorID string) ([]*models.Curation, error) {
	query := curationSelect + ` WHERE c.deleted=0 AND c.entity_id=?`
	args := []any{entityID}
	if curatorID != "" {
		query += ` AND c.curator_id=?`
		args = append(args, curatorID)
	}
	query += ` ORDER BY c.created_at`
	return s.listCurations(ctx, query, args...)
}

// ListCurationsByCurator returns a curator's curations inside [from, to).
// Covered by idx_curations_curator_time.
func (s *Store) ListCurationsByCurator(ctx context.Context, curatorID string, from, to time.Time) ([]*models.Curation, error) {
	query := curationSelect + ` WHERE c.deleted=0 AND c.curator_id=? AND c.updated_at>=? AND c.updated_at<?
		ORDER BY c.updated_at`
	return s.listCurations(ctx, query, curatorID, fmtTime(from), fmtTime(to))
}

// ApplyRemoteCuration overwrites the local copy with a server-confirmed one.
// The referenced entity must already be present locally.
func (s *Store) ApplyRemoteCuration(ctx context.Context, c *models.Curation) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := entityExists(ctx, tx, c.EntityID); err != nil {
			return err
		}
		if err := rememberCurator(ctx, tx, c.CuratorID, c.CuratorName); err != nil {
			return err
		}
		return upsertCuration(ctx, tx, c)
	})
}

func (s *Store) listCurations(ctx context.Context, query string, args ...any) ([]*models.Curation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select curations: %w", err)
	}
	defer rows.Close()

	var result []*models.Curation
	for rows.Next() {
		c, err := scanCuration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// curationSelect resolves the curator display name at read time: the join
// wins, the denormalized column is only the fallback for names the client
// has never seen.
const curationSelect = `SELECT c.curation_id, c.entity_id, c.curator_id,
	COALESCE(NULLIF(k.name, ''), c.curator_name),
	c.concepts, c.notes_public, c.notes_private, c.version,
	c.created_at, c.updated_at, c.sync_status, c.server_ref
	FROM curations c LEFT JOIN curators k ON k.curator_id = c.curator_id`

func scanCuration(row rowScanner) (*models.Curation, error) {
	var (
		c                models.Curation
		concepts         string
		created, updated string
	)
	if err := row.Scan(&c.CurationID, &c.EntityID, &c.CuratorID, &c.CuratorName,
		&concepts, &c.Notes.Public, &c.Notes.Private, &c.Version,
		&created, &updated, &c.SyncStatus, &c.ServerRef); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(concepts), &c.Concepts); err != nil {
		return nil, fmt.Errorf("bad curation concepts payload: %w", err)
	}
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &c, nil
}

func getCuration(ctx context.Context, db dbx.DBTX, id string) (*models.Curation, error) {
	row := db.QueryRowContext(ctx, curationSelect+` WHERE c.deleted=0 AND c.curation_id=?`, id)
	c, err := scanCuration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select curation: %w", err)
	}
	return c, nil
}

func entityExists(ctx context.Context, db dbx.DBTX, entityID string) error {
	var one int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM entities WHERE entity_id=? AND deleted=0`, entityID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", common.ErrUnknownEntity, entityID)
	}
	if err != nil {
		return fmt.Errorf("failed to check entity: %w", err)
	}
	return nil
}

func rememberCurator(ctx context.Context, db dbx.DBTX, curatorID, name string) error {
	if curatorID == "" {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO curators (curator_id, name) VALUES (?, ?)
		ON CONFLICT(curator_id) DO UPDATE SET name = excluded.name`,
		curatorID, name)
	if err != nil {
		return fmt.Errorf("failed to upsert curator: %w", err)
	}
	return nil
}

func conceptsJSON(c *models.Curation) (string, error) {
	concepts := c.Concepts
	if concepts == nil {
		concepts = []models.Concept{}
	}
	b, err := json.Marshal(concepts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func insertCuration(ctx context.Context, db dbx.DBTX, c *models.Curation) error {
	concepts, err := conceptsJSON(c)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO curations (curation_id, entity_id, curator_id, curator_name, concepts,
			notes_public, notes_private, version, created_at, updated_at, sync_status, server_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CurationID, c.EntityID, c.CuratorID, c.CuratorName, concepts,
		c.Notes.Public, c.Notes.Private, c.Version,
		fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt), c.SyncStatus, c.ServerRef)
	if err != nil {
		return fmt.Errorf("failed to insert curation: %w", err)
	}
	return nil
}

func updateCurationRow(ctx context.Context, db dbx.DBTX, c *models.Curation) error {
	concepts, err := conceptsJSON(c)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE curations SET concepts=?, notes_public=?, notes_private=?, version=?,
			updated_at=?, sync_status=?, server_ref=?
		WHERE curation_id=? AND deleted=0`,
		concepts, c.Notes.Public, c.Notes.Private, c.Version,
		fmtTime(c.UpdatedAt), c.SyncStatus, c.ServerRef, c.CurationID)
	if err != nil {
		return fmt.Errorf("failed to update curation: %w", err)
	}
	return dbx.ExpectRows(res, 1)
}

func upsertCuration(ctx context.Context, db dbx.DBTX, c *models.Curation) error {
	concepts, err := conceptsJSON(c)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO curations (curation_id, entity_id, curator_id, curator_name, concepts,
			notes_public, notes_private, version, created_at, updated_at, sync_status, server_ref, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(curation_id) DO UPDATE SET
			entity_id = excluded.entity_id,
			curator_id = excluded.curator_id,
			curator_name = excluded.curator_name,
			concepts = excluded.concepts,
			notes_public = excluded.notes_public,
			notes_private = excluded.notes_private,
			version = excluded.version,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			sync_status = excluded.sync_status,
			server_ref = excluded.server_ref,
			deleted = 0`,
		c.CurationID, c.EntityID, c.CuratorID, c.CuratorName, concepts,
		c.Notes.Public, c.Notes.Private, c.Version,
		fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt), c.SyncStatus, c.ServerRef)
	if err != nil {
		return fmt.Errorf("failed to upsert curation: %w", err)
	}
	return nil
}

func purgeCuration(ctx context.Context, db dbx.DBTX, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM curations WHERE curation_id=?`, id); err != nil {
		return fmt.Errorf("failed to purge curation: %w", err)
	}
	return nil
}
