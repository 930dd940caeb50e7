// Package store is the client's durable local store. It owns the SQLite
// database holding entities, curations, the sync queue and conflict records,
// and it is the only component allowed to write sync-status fields.
//
// Every multi-row write (create + enqueue, resolve + clear) happens inside a
// single local transaction, and no transaction is ever held open across a
// network call.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/migrations"
	"github.com/dmitrijs2005/placekeeper/internal/dbx"
	"github.com/dmitrijs2005/placekeeper/internal/logging"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Session identifies the curator on whose behalf a store call is made.
// It is passed explicitly; the store never reads ambient identity state.
type Session struct {
	CuratorID   string
	CuratorName string
}

// Store wraps the client database.
type Store struct {
	db     *sql.DB
	logger logging.Logger

	// now is swappable for tests.
	now func() time.Time
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Fatal("failed to set goose dialect:", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if necessary) the client database at dsn and applies
// migrations.
func Open(ctx context.Context, dsn string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	// modernc's driver is not safe for concurrent writes on one connection
	// pool entry; a single connection keeps SQLITE_BUSY out of the picture.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("pragma error: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a local transaction.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, nil, fn)
}

func (s *Store) nowUTC() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Timestamps are stored as RFC3339 text so the schema stays portable across
// drivers.
const timeLayout = time.RFC3339Nano

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
