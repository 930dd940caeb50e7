package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/dmitrijs2005/placekeeper/internal/common"
)

// SyncInfo is what the pull path needs to decide between overwrite, ignore
// and conflict for one incoming remote document.
type SyncInfo struct {
	Version    int64
	SyncStatus models.SyncStatus
	Deleted    bool

	// OpenItemID is the earliest unfinished queue item for the target, or
	// empty when nothing is in flight. A locally deleted row always has one.
	OpenItemID string

	// LocalJSON is the row snapshotted as local-model JSON, for diffing.
	LocalJSON []byte
}

// EntitySyncInfo inspects the local state of one entity, including rows
// soft-deleted while awaiting a delete push.
func (s *Store) EntitySyncInfo(ctx context.Context, entityID string) (*SyncInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+`, deleted FROM entities WHERE entity_id=?`, entityID)
	return s.scanSyncInfo(ctx, row, entityID, func(r rowScanner) (any, int64, models.SyncStatus, bool, error) {
		var deleted bool
		e, err := scanEntityWith(r, &deleted)
		if err != nil {
			return nil, 0, "", false, err
		}
		return e, e.Version, e.SyncStatus, deleted, nil
	})
}

// CurationSyncInfo is the curation counterpart of EntitySyncInfo.
func (s *Store) CurationSyncInfo(ctx context.Context, curationID string) (*SyncInfo, error) {
	row := s.db.QueryRowContext(ctx,
		curationSelect+` WHERE c.curation_id=?`, curationID)
	// curationSelect carries no deleted column; fetch it separately below.
	c, err := scanCuration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select curation: %w", err)
	}

	var deleted bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT deleted FROM curations WHERE curation_id=?`, curationID).Scan(&deleted); err != nil {
		return nil, fmt.Errorf("failed to read curation state: %w", err)
	}
	return s.buildSyncInfo(ctx, curationID, c, c.Version, c.SyncStatus, deleted)
}

type syncInfoScan func(r rowScanner) (any, int64, models.SyncStatus, bool, error)

func (s *Store) scanSyncInfo(ctx context.Context, row *sql.Row, targetID string, scan syncInfoScan) (*SyncInfo, error) {
	doc, version, status, deleted, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select sync info: %w", err)
	}
	return s.buildSyncInfo(ctx, targetID, doc, version, status, deleted)
}

func (s *Store) buildSyncInfo(ctx context.Context, targetID string, doc any, version int64, status models.SyncStatus, deleted bool) (*SyncInfo, error) {
	local, err := marshalLocal(doc)
	if err != nil {
		return nil, err
	}

	var itemID sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM sync_queue WHERE target_id=? AND status IN (?, ?, ?)
		ORDER BY rowid LIMIT 1`,
		targetID, models.QueuePending, models.QueueInFlight, models.QueueConflict).Scan(&itemID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to find open queue item: %w", err)
	}

	return &SyncInfo{
		Version:    version,
		SyncStatus: status,
		Deleted:    deleted,
		OpenItemID: itemID.String,
		LocalJSON:  local,
	}, nil
}

func marshalLocal(doc any) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot local doc: %w", err)
	}
	return b, nil
}

func scanEntityWith(row rowScanner, deleted *bool) (*models.Entity, error) {
	var (
		e                models.Entity
		data, metadata   string
		created, updated string
	)
	if err := row.Scan(&e.EntityID, &e.Type, &e.Name, &e.Status, &data, &metadata,
		&e.Version, &created, &updated, &e.CreatedBy, &e.SyncStatus, &e.ServerRef, deleted); err != nil {
		return nil, err
	}
	if err := unmarshalEntityCols(&e, data, metadata, created, updated); err != nil {
		return nil, err
	}
	return &e, nil
}
