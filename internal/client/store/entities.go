package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/dbx"
	"github.com/google/uuid"
)

// EntityPatch carries the updatable fields of an entity. Nil members are
// left untouched. Ids, versions and sync fields are never patchable.
type EntityPatch struct {
	Name     *string
	Status   *models.EntityStatus
	Data     map[string]any
	Metadata []models.MetadataRecord
}

// EntityFilter narrows ListEntities. Zero values mean "any".
type EntityFilter struct {
	Type       models.EntityType
	Status     models.EntityStatus
	SyncStatus models.SyncStatus
	Limit      int
	Offset     int
}

// CreateEntity validates e, assigns identity and version, and writes the
// entity together with its create queue item in one transaction. On
// validation failure nothing is written.
func (s *Store) CreateEntity(ctx context.Context, sess Session, e *models.Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.prepareNewEntity(sess, e)

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := insertEntity(ctx, tx, e); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TargetEntity, models.ActionCreate, e.EntityID, e)
	})
}

// BulkCreateEntities validates every item before writing any, then writes
// all entities and their queue items in a single transaction.
func (s *Store) BulkCreateEntities(ctx context.Context, sess Session, items []*models.Entity) error {
	for _, e := range items {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for _, e := range items {
		s.prepareNewEntity(sess, e)
	}

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for _, e := range items {
			if err := insertEntity(ctx, tx, e); err != nil {
				return err
			}
			if err := s.enqueue(ctx, tx, models.TargetEntity, models.ActionCreate, e.EntityID, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) prepareNewEntity(sess Session, e *models.Entity) {
	if e.EntityID == "" {
		e.EntityID = uuid.NewString()
	}
	now := s.nowUTC()
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now
	e.CreatedBy = sess.CuratorID
	e.SyncStatus = models.SyncStatusPending
	e.ServerRef = ""
}

// UpdateEntity applies patch, bumps the local version, flags the row pending
// and enqueues an update item carrying the new snapshot, all atomically.
func (s *Store) UpdateEntity(ctx context.Context, sess Session, id string, patch EntityPatch) (*models.Entity, error) {
	var updated *models.Entity

	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		e, err := getEntity(ctx, tx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			e.Name = *patch.Name
		}
		if patch.Status != nil {
			e.Status = *patch.Status
		}
		if patch.Data != nil {
			e.Data = patch.Data
		}
		if patch.Metadata != nil {
			e.Metadata = patch.Metadata
		}
		if err := e.Validate(); err != nil {
			return err
		}

		e.Version++
		e.UpdatedAt = s.nowUTC()
		e.SyncStatus = models.SyncStatusPending

		if err := updateEntityRow(ctx, tx, e); err != nil {
			return err
		}
		if err := s.enqueue(ctx, tx, models.TargetEntity, models.ActionUpdate, e.EntityID, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEntity soft-deletes locally and enqueues the delete. The row is
// purged once the server accepts it.
func (s *Store) DeleteEntity(ctx context.Context, sess Session, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		e, err := getEntity(ctx, tx, id)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE entities SET deleted=1, sync_status=?, updated_at=? WHERE entity_id=? AND deleted=0`,
			models.SyncStatusPending, fmtTime(s.nowUTC()), id)
		if err != nil {
			return fmt.Errorf("failed to delete entity: %w", err)
		}
		if err := dbx.ExpectRows(res, 1); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TargetEntity, models.ActionDelete, id, e)
	})
}

// GetEntity returns a single non-deleted entity.
func (s *Store) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	return getEntity(ctx, s.db, id)
}

// ListEntities returns non-deleted entities matching f, newest first. The
// (type, sync_status) pairing is covered by idx_entities_type_sync.
func (s *Store) ListEntities(ctx context.Context, f EntityFilter) ([]*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE deleted=0`
	var args []any

	if f.Type != "" {
		query += ` AND type=?`
		args = append(args, f.Type)
	}
	if f.SyncStatus != "" {
		query += ` AND sync_status=?`
		args = append(args, f.SyncStatus)
	}
	if f.Status != "" {
		query += ` AND status=?`
		args = append(args, f.Status)
	}

	query += ` ORDER BY updated_at DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = common.DefaultListLimit
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entities: %w", err)
	}
	defer rows.Close()

	var result []*models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyRemoteEntity overwrites the local copy with a server-confirmed one.
// Used on pull and on push success; the row comes out synced.
func (s *Store) ApplyRemoteEntity(ctx context.Context, e *models.Entity) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return upsertEntity(ctx, tx, e)
	})
}

const entityColumns = `entity_id, type, name, status, data, metadata, version, created_at, updated_at, created_by, sync_status, server_ref`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	var (
		e                models.Entity
		data, metadata   string
		created, updated string
	)
	if err := row.Scan(&e.EntityID, &e.Type, &e.Name, &e.Status, &data, &metadata,
		&e.Version, &created, &updated, &e.CreatedBy, &e.SyncStatus, &e.ServerRef); err != nil {
		return nil, err
	}
	if err := unmarshalEntityCols(&e, data, metadata, created, updated); err != nil {
		return nil, err
	}
	return &e, nil
}

func unmarshalEntityCols(e *models.Entity, data, metadata, created, updated string) error {
	if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
		return fmt.Errorf("bad entity data payload: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
		return fmt.Errorf("bad entity metadata payload: %w", err)
	}
	var err error
	if e.CreatedAt, err = parseTime(created); err != nil {
		return err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return err
	}
	return nil
}

func getEntity(ctx context.Context, db dbx.DBTX, id string) (*models.Entity, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE entity_id=? AND deleted=0`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select entity: %w", err)
	}
	return e, nil
}

func entityJSONCols(e *models.Entity) (string, string, error) {
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	md := e.Metadata
	if md == nil {
		md = []models.MetadataRecord{}
	}
	db, err := json.Marshal(data)
	if err != nil {
		return "", "", err
	}
	mb, err := json.Marshal(md)
	if err != nil {
		return "", "", err
	}
	return string(db), string(mb), nil
}

func insertEntity(ctx context.Context, db dbx.DBTX, e *models.Entity) error {
	data, metadata, err := entityJSONCols(e)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO entities (entity_id, type, name, status, data, metadata, version,
			created_at, updated_at, created_by, sync_status, server_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EntityID, e.Type, e.Name, e.Status, data, metadata, e.Version,
		fmtTime(e.CreatedAt), fmtTime(e.UpdatedAt), e.CreatedBy, e.SyncStatus, e.ServerRef)
	if err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}
	return nil
}

func updateEntityRow(ctx context.Context, db dbx.DBTX, e *models.Entity) error {
	data, metadata, err := entityJSONCols(e)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE entities SET type=?, name=?, status=?, data=?, metadata=?, version=?,
			updated_at=?, sync_status=?, server_ref=?
		WHERE entity_id=? AND deleted=0`,
		e.Type, e.Name, e.Status, data, metadata, e.Version,
		fmtTime(e.UpdatedAt), e.SyncStatus, e.ServerRef, e.EntityID)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	return dbx.ExpectRows(res, 1)
}

func upsertEntity(ctx context.Context, db dbx.DBTX, e *models.Entity) error {
	data, metadata, err := entityJSONCols(e)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO entities (entity_id, type, name, status, data, metadata, version,
			created_at, updated_at, created_by, sync_status, server_ref, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(entity_id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			status = excluded.status,
			data = excluded.data,
			metadata = excluded.metadata,
			version = excluded.version,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			created_by = excluded.created_by,
			sync_status = excluded.sync_status,
			server_ref = excluded.server_ref,
			deleted = 0`,
		e.EntityID, e.Type, e.Name, e.Status, data, metadata, e.Version,
		fmtTime(e.CreatedAt), fmtTime(e.UpdatedAt), e.CreatedBy, e.SyncStatus, e.ServerRef)
	if err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}
	return nil
}

func purgeEntity(ctx context.Context, db dbx.DBTX, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM entities WHERE entity_id=?`, id); err != nil {
		return fmt.Errorf("failed to purge entity: %w", err)
	}
	return nil
}
