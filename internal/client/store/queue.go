package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/dmitrijs2005/placekeeper/internal/dbx"
	"github.com/google/uuid"
)

// enqueue snapshots payload as JSON and inserts a pending queue item. Always
// called inside the same transaction as the write it records.
func (s *Store) enqueue(ctx context.Context, tx dbx.DBTX, typ models.TargetType, action models.QueueAction, targetID string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to snapshot payload: %w", err)
	}
	now := s.nowUTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_queue (id, type, action, target_id, payload, created_at, retry_count, next_retry_at, status)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		uuid.NewString(), typ, action, targetID, string(b), fmtTime(now), fmtTime(now), models.QueuePending)
	if err != nil {
		return fmt.Errorf("failed to enqueue: %w", err)
	}
	return nil
}

const queueColumns = `id, type, action, target_id, payload, created_at, retry_count, next_retry_at, status`

func scanQueueItem(row rowScanner) (*models.SyncQueueItem, error) {
	var (
		item             models.SyncQueueItem
		payload          string
		created, nextTry string
	)
	if err := row.Scan(&item.ID, &item.Type, &item.Action, &item.TargetID, &payload,
		&created, &item.RetryCount, &nextTry, &item.Status); err != nil {
		return nil, err
	}
	item.Payload = json.RawMessage(payload)
	var err error
	if item.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if item.NextRetryAt, err = parseTime(nextTry); err != nil {
		return nil, err
	}
	return &item, nil
}

// DuePendingItems returns pending items whose backoff window has elapsed, in
// enqueue order. rowid breaks created_at ties so FIFO holds within one tick.
func (s *Store) DuePendingItems(ctx context.Context, now time.Time, limit int) ([]*models.SyncQueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+queueColumns+` FROM sync_queue
		WHERE status=? AND next_retry_at<=?
		ORDER BY created_at, rowid LIMIT ?`,
		models.QueuePending, fmtTime(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue: %w", err)
	}
	defer rows.Close()

	var items []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// HasBlockingPredecessor reports whether an earlier unfinished item exists
// for the same target. Per-target ordering: such an item must go first.
func (s *Store) HasBlockingPredecessor(ctx context.Context, item *models.SyncQueueItem) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM sync_queue
		WHERE target_id=? AND status IN (?, ?, ?)
			AND rowid < (SELECT rowid FROM sync_queue WHERE id=?)`,
		item.TargetID,
		models.QueuePending, models.QueueInFlight, models.QueueConflict,
		item.ID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check queue predecessors: %w", err)
	}
	return n > 0, nil
}

// hasLaterOpenItem reports whether an unfinished queue item for the same
// target was enqueued after itemID. Such an item means the local row changed
// while itemID was in flight.
func hasLaterOpenItem(ctx context.Context, tx dbx.DBTX, targetID, itemID string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT count(*) FROM sync_queue
		WHERE target_id=? AND status IN (?, ?, ?)
			AND rowid > (SELECT rowid FROM sync_queue WHERE id=?)`,
		targetID,
		models.QueuePending, models.QueueInFlight, models.QueueConflict,
		itemID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check queue successors: %w", err)
	}
	return n > 0, nil
}

// MarkInFlight moves a pending item to in_flight.
func (s *Store) MarkInFlight(ctx context.Context, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET status=? WHERE id=? AND status=?`,
		models.QueueInFlight, itemID, models.QueuePending)
	if err != nil {
		return fmt.Errorf("failed to mark in_flight: %w", err)
	}
	return dbx.ExpectRows(res, 1)
}

func markQueueStatus(ctx context.Context, tx dbx.DBTX, itemID string, status models.QueueStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE sync_queue SET status=? WHERE id=?`, status, itemID)
	if err != nil {
		return fmt.Errorf("failed to mark queue item %s: %w", status, err)
	}
	return dbx.ExpectRows(res, 1)
}

// Reschedule puts a transiently failed item back to pending with an
// incremented retry count and the computed backoff deadline.
func (s *Store) Reschedule(ctx context.Context, itemID string, retryCount int, nextRetryAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET status=?, retry_count=?, next_retry_at=? WHERE id=?`,
		models.QueuePending, retryCount, fmtTime(nextRetryAt), itemID)
	if err != nil {
		return fmt.Errorf("failed to reschedule: %w", err)
	}
	return dbx.ExpectRows(res, 1)
}

// MarkStuck parks an item whose retry budget is exhausted. Stuck items are
// surfaced to the caller and never picked up again automatically.
func (s *Store) MarkStuck(ctx context.Context, itemID string) error {
	return markQueueStatus(ctx, s.db, itemID, models.QueueStuck)
}

// CompleteEntityPush persists the server-confirmed entity and marks the
// queue item done in one transaction. When the curator edited the entity
// while the item was in flight, a later queue item is already open for it;
// the edited content and its pending status must survive, so only the server
// reference is recorded.
func (s *Store) CompleteEntityPush(ctx context.Context, itemID string, e *models.Entity) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		edited, err := hasLaterOpenItem(ctx, tx, e.EntityID, itemID)
		if err != nil {
			return err
		}
		if edited {
			if _, err := tx.ExecContext(ctx,
				`UPDATE entities SET server_ref=? WHERE entity_id=?`, e.ServerRef, e.EntityID); err != nil {
				return fmt.Errorf("failed to record server ref: %w", err)
			}
		} else if err := upsertEntity(ctx, tx, e); err != nil {
			return err
		}
		return markQueueStatus(ctx, tx, itemID, models.QueueDone)
	})
}

// CompleteEntityDelete purges the locally deleted entity once the server
// accepted the delete.
func (s *Store) CompleteEntityDelete(ctx context.Context, itemID, targetID string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM curations WHERE entity_id=?`, targetID); err != nil {
			return fmt.Errorf("failed to purge curations: %w", err)
		}
		if err := purgeEntity(ctx, tx, targetID); err != nil {
			return err
		}
		return markQueueStatus(ctx, tx, itemID, models.QueueDone)
	})
}

// CompleteCurationPush persists the server-confirmed curation and marks the
// queue item done in one transaction. The same in-flight edit rule applies as
// in CompleteEntityPush.
func (s *Store) CompleteCurationPush(ctx context.Context, itemID string, c *models.Curation) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		edited, err := hasLaterOpenItem(ctx, tx, c.CurationID, itemID)
		if err != nil {
			return err
		}
		if edited {
			if _, err := tx.ExecContext(ctx,
				`UPDATE curations SET server_ref=? WHERE curation_id=?`, c.ServerRef, c.CurationID); err != nil {
				return fmt.Errorf("failed to record server ref: %w", err)
			}
		} else if err := upsertCuration(ctx, tx, c); err != nil {
			return err
		}
		return markQueueStatus(ctx, tx, itemID, models.QueueDone)
	})
}

// CompleteCurationDelete purges the locally deleted curation.
func (s *Store) CompleteCurationDelete(ctx context.Context, itemID, targetID string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := purgeCuration(ctx, tx, targetID); err != nil {
			return err
		}
		return markQueueStatus(ctx, tx, itemID, models.QueueDone)
	})
}

// QueueSummary counts queue items per status.
func (s *Store) QueueSummary(ctx context.Context) (map[models.QueueStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize queue: %w", err)
	}
	defer rows.Close()

	result := map[models.QueueStatus]int{}
	for rows.Next() {
		var status models.QueueStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		result[status] = n
	}
	return result, rows.Err()
}

// StuckItems returns items parked after exhausting their retry budget.
func (s *Store) StuckItems(ctx context.Context) ([]*models.SyncQueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+queueColumns+` FROM sync_queue WHERE status=? ORDER BY created_at, rowid`,
		models.QueueStuck)
	if err != nil {
		return nil, fmt.Errorf("failed to select stuck items: %w", err)
	}
	defer rows.Close()

	var items []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
