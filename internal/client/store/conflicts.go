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

// RecordEntityConflict persists the conflict record, flags the entity row
// and parks the queue item, all in one transaction. The local payload is
// never overwritten here.
func (s *Store) RecordEntityConflict(ctx context.Context, itemID string, rec *models.ConflictRecord) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.insertConflict(ctx, tx, rec); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE entities SET sync_status=? WHERE entity_id=?`,
			models.SyncStatusConflict, rec.TargetID); err != nil {
			return fmt.Errorf("failed to flag entity conflict: %w", err)
		}
		return markQueueStatus(ctx, tx, itemID, models.QueueConflict)
	})
}

// RecordCurationConflict is the curation counterpart of RecordEntityConflict.
func (s *Store) RecordCurationConflict(ctx context.Context, itemID string, rec *models.ConflictRecord) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.insertConflict(ctx, tx, rec); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE curations SET sync_status=? WHERE curation_id=?`,
			models.SyncStatusConflict, rec.TargetID); err != nil {
			return fmt.Errorf("failed to flag curation conflict: %w", err)
		}
		return markQueueStatus(ctx, tx, itemID, models.QueueConflict)
	})
}

func (s *Store) insertConflict(ctx context.Context, tx dbx.DBTX, rec *models.ConflictRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.DetectedAt = s.nowUTC()

	diff, err := json.Marshal(rec.FieldDiff)
	if err != nil {
		return fmt.Errorf("failed to marshal field diff: %w", err)
	}

	// One active conflict per target: a second detection for the same target
	// replaces the stale record rather than stacking a duplicate.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conflicts WHERE target_id=? AND resolved=0`, rec.TargetID); err != nil {
		return fmt.Errorf("failed to drop stale conflict: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conflicts (id, target_type, target_id, local_version, local_payload,
			server_version, server_payload, field_diff, detected_at, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		rec.ID, rec.TargetType, rec.TargetID, rec.LocalVersion, string(rec.LocalPayload),
		rec.ServerVersion, string(rec.ServerPayload), string(diff), fmtTime(rec.DetectedAt))
	if err != nil {
		return fmt.Errorf("failed to insert conflict: %w", err)
	}
	return nil
}

const conflictColumns = `id, target_type, target_id, local_version, local_payload,
	server_version, server_payload, field_diff, detected_at, resolved, resolution, resolved_at`

func scanConflict(row rowScanner) (*models.ConflictRecord, error) {
	var (
		rec                 models.ConflictRecord
		local, server, diff string
		detected            string
		resolvedAt          sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.TargetType, &rec.TargetID, &rec.LocalVersion, &local,
		&rec.ServerVersion, &server, &diff, &detected, &rec.Resolved, &rec.Resolution, &resolvedAt); err != nil {
		return nil, err
	}
	rec.LocalPayload = json.RawMessage(local)
	rec.ServerPayload = json.RawMessage(server)
	if err := json.Unmarshal([]byte(diff), &rec.FieldDiff); err != nil {
		return nil, fmt.Errorf("bad stored field diff: %w", err)
	}
	var err error
	if rec.DetectedAt, err = parseTime(detected); err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t, err := parseTime(resolvedAt.String)
		if err != nil {
			return nil, err
		}
		rec.ResolvedAt = &t
	}
	return &rec, nil
}

// ListUnresolvedConflicts returns active conflicts, oldest first.
func (s *Store) ListUnresolvedConflicts(ctx context.Context) ([]*models.ConflictRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE resolved=0 ORDER BY detected_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select conflicts: %w", err)
	}
	defer rows.Close()

	var result []*models.ConflictRecord
	for rows.Next() {
		rec, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// GetConflict returns one conflict record by id.
func (s *Store) GetConflict(ctx context.Context, id string) (*models.ConflictRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+conflictColumns+` FROM conflicts WHERE id=?`, id)
	rec, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select conflict: %w", err)
	}
	return rec, nil
}

// closeConflict marks the record resolved. Guarded so a conflict can only be
// resolved once.
func (s *Store) closeConflict(ctx context.Context, tx dbx.DBTX, conflictID string, resolution models.Resolution) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE conflicts SET resolved=1, resolution=?, resolved_at=? WHERE id=? AND resolved=0`,
		resolution, fmtTime(s.nowUTC()), conflictID)
	if err != nil {
		return fmt.Errorf("failed to close conflict: %w", err)
	}
	if err := dbx.ExpectRows(res, 1); err != nil {
		return common.ErrConflictResolved
	}
	return nil
}

// conflictQueueItem finds the queue item parked on this target's conflict.
func conflictQueueItem(ctx context.Context, tx dbx.DBTX, targetID string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM sync_queue WHERE target_id=? AND status=? ORDER BY rowid LIMIT 1`,
		targetID, models.QueueConflict).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find conflicted queue item: %w", err)
	}
	return id, nil
}

// ResolveEntityConflictKeepServer closes the conflict, overwrites the local
// entity with the server copy and finishes the queue item — atomically.
func (s *Store) ResolveEntityConflictKeepServer(ctx context.Context, conflictID string, server *models.Entity) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, itemID, err := s.openConflictAndItem(ctx, tx, conflictID)
		if err != nil {
			return err
		}
		if err := s.closeConflict(ctx, tx, conflictID, models.ResolutionKeepServer); err != nil {
			return err
		}
		if err := upsertEntity(ctx, tx, server); err != nil {
			return err
		}
		return markQueueStatus(ctx, tx, itemID, models.QueueDone)
	})
}

// ResolveEntityConflictRepush closes the conflict, writes the resolved local
// payload (pending) and rearms the queue item so the next cycle re-pushes it
// with the server's version as the expected version.
func (s *Store) ResolveEntityConflictRepush(ctx context.Context, conflictID string, resolution models.Resolution, resolved *models.Entity) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, itemID, err := s.openConflictAndItem(ctx, tx, conflictID)
		if err != nil {
			return err
		}
		if err := s.closeConflict(ctx, tx, conflictID, resolution); err != nil {
			return err
		}
		if err := upsertEntity(ctx, tx, resolved); err != nil {
			return err
		}
		return s.rearmQueueItem(ctx, tx, itemID, resolved)
	})
}

// ResolveCurationConflictKeepServer mirrors the entity variant.
func (s *Store) ResolveCurationConflictKeepServer(ctx context.Context, conflictID string, server *models.Curation) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, itemID, err := s.openConflictAndItem(ctx, tx, conflictID)
		if err != nil {
			return err
		}
		if err := s.closeConflict(ctx, tx, conflictID, models.ResolutionKeepServer); err != nil {
			return err
		}
		if err := upsertCuration(ctx, tx, server); err != nil {
			return err
		}
		return markQueueStatus(ctx, tx, itemID, models.QueueDone)
	})
}

// ResolveCurationConflictRepush mirrors the entity variant.
func (s *Store) ResolveCurationConflictRepush(ctx context.Context, conflictID string, resolution models.Resolution, resolved *models.Curation) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, itemID, err := s.openConflictAndItem(ctx, tx, conflictID)
		if err != nil {
			return err
		}
		if err := s.closeConflict(ctx, tx, conflictID, resolution); err != nil {
			return err
		}
		if err := upsertCuration(ctx, tx, resolved); err != nil {
			return err
		}
		return s.rearmQueueItem(ctx, tx, itemID, resolved)
	})
}

func (s *Store) openConflictAndItem(ctx context.Context, tx dbx.DBTX, conflictID string) (*models.ConflictRecord, string, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+conflictColumns+` FROM conflicts WHERE id=?`, conflictID)
	rec, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", common.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to select conflict: %w", err)
	}
	if rec.Resolved {
		return nil, "", common.ErrConflictResolved
	}
	itemID, err := conflictQueueItem(ctx, tx, rec.TargetID)
	if err != nil {
		return nil, "", err
	}
	return rec, itemID, nil
}

func (s *Store) rearmQueueItem(ctx context.Context, tx dbx.DBTX, itemID string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to snapshot payload: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE sync_queue SET status=?, payload=?, retry_count=0, next_retry_at=? WHERE id=?`,
		models.QueuePending, string(b), fmtTime(s.nowUTC()), itemID)
	if err != nil {
		return fmt.Errorf("failed to rearm queue item: %w", err)
	}
	return dbx.ExpectRows(res, 1)
}
