package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const watermarkKey = "pull_watermark"

// Watermark returns the timestamp of the last successful pull, or the zero
// time if no pull has completed yet.
func (s *Store) Watermark(ctx context.Context) (time.Time, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM sync_meta WHERE key=?`, watermarkKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read watermark: %w", err)
	}
	return parseTime(v)
}

// SetWatermark advances the pull watermark.
func (s *Store) SetWatermark(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		watermarkKey, fmtTime(t))
	if err != nil {
		return fmt.Errorf("failed to set watermark: %w", err)
	}
	return nil
}

// RememberCurator caches a curator's current display name for read-time
// resolution of the denormalized curator_name column.
func (s *Store) RememberCurator(ctx context.Context, curatorID, name string) error {
	return rememberCurator(ctx, s.db, curatorID, name)
}
