package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/dmitrijs2005/placekeeper/internal/client/store"
	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/logging"
)

// Resolver settles recorded conflicts. Every resolution is a single local
// transaction: the conflict closes, the row is rewritten and the parked queue
// item finishes or rearms together, so a crash never leaves a half-resolved
// conflict behind.
type Resolver struct {
	store  *store.Store
	logger logging.Logger
}

func NewResolver(st *store.Store, logger logging.Logger) *Resolver {
	return &Resolver{store: st, logger: logger}
}

// ListConflicts returns unresolved conflicts, oldest first.
func (r *Resolver) ListConflicts(ctx context.Context) ([]*models.ConflictRecord, error) {
	return r.store.ListUnresolvedConflicts(ctx)
}

// GetConflict returns one conflict with both payloads and the field diff.
func (r *Resolver) GetConflict(ctx context.Context, conflictID string) (*models.ConflictRecord, error) {
	return r.store.GetConflict(ctx, conflictID)
}

// KeepServer accepts the server copy: the local row is overwritten and the
// parked queue item is dropped as done.
func (r *Resolver) KeepServer(ctx context.Context, conflictID string) error {
	rec, err := r.store.GetConflict(ctx, conflictID)
	if err != nil {
		return err
	}

	switch rec.TargetType {
	case models.TargetEntity:
		server, err := entityFromPayload(rec.ServerPayload)
		if err != nil {
			return err
		}
		err = r.store.ResolveEntityConflictKeepServer(ctx, conflictID, server)
		if err != nil {
			return err
		}
	case models.TargetCuration:
		server, err := curationFromPayload(rec.ServerPayload)
		if err != nil {
			return err
		}
		err = r.store.ResolveCurationConflictKeepServer(ctx, conflictID, server)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: conflict target %q", common.ErrIncorrectRecord, rec.TargetType)
	}

	r.logger.Info(ctx, "conflict resolved", "conflict", conflictID, "resolution", models.ResolutionKeepServer)
	return nil
}

// KeepLocal keeps the local edits: the local document is rebased onto the
// server's version and re-enqueued, so the next push carries the server's
// version as the expected one and wins unless the server moved again.
func (r *Resolver) KeepLocal(ctx context.Context, conflictID string) error {
	rec, err := r.store.GetConflict(ctx, conflictID)
	if err != nil {
		return err
	}
	return r.repush(ctx, rec, models.ResolutionKeepLocal, rec.LocalPayload)
}

// Merge resolves with a caller-built document (local shape). Versioning and
// re-enqueueing work exactly as in KeepLocal.
func (r *Resolver) Merge(ctx context.Context, conflictID string, merged json.RawMessage) error {
	rec, err := r.store.GetConflict(ctx, conflictID)
	if err != nil {
		return err
	}
	return r.repush(ctx, rec, models.ResolutionMerged, merged)
}

// AutoMerge resolves without operator input, but only when it is provably
// safe: an empty field diff means the two copies carry the same content and
// the server one can be taken outright. Any real divergence stays with the
// operator.
func (r *Resolver) AutoMerge(ctx context.Context, conflictID string) error {
	rec, err := r.store.GetConflict(ctx, conflictID)
	if err != nil {
		return err
	}
	if len(rec.FieldDiff) > 0 {
		return fmt.Errorf("%w: %v", common.ErrFieldsOverlap, rec.ChangedFields())
	}
	return r.KeepServer(ctx, conflictID)
}

func (r *Resolver) repush(ctx context.Context, rec *models.ConflictRecord, resolution models.Resolution, payload json.RawMessage) error {
	switch rec.TargetType {
	case models.TargetEntity:
		resolved, err := entityFromPayload(payload)
		if err != nil {
			return err
		}
		rebaseEntity(resolved, rec.ServerVersion)
		if err := r.store.ResolveEntityConflictRepush(ctx, rec.ID, resolution, resolved); err != nil {
			return err
		}
	case models.TargetCuration:
		resolved, err := curationFromPayload(payload)
		if err != nil {
			return err
		}
		rebaseCuration(resolved, rec.ServerVersion)
		if err := r.store.ResolveCurationConflictRepush(ctx, rec.ID, resolution, resolved); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: conflict target %q", common.ErrIncorrectRecord, rec.TargetType)
	}

	r.logger.Info(ctx, "conflict resolved", "conflict", rec.ID, "resolution", resolution)
	return nil
}

// rebaseEntity stacks the kept document on top of the server's version: the
// re-push then expects exactly what the server holds.
func rebaseEntity(e *models.Entity, serverVersion int64) {
	e.Version = serverVersion + 1
	e.SyncStatus = models.SyncStatusPending
}

func rebaseCuration(c *models.Curation, serverVersion int64) {
	c.Version = serverVersion + 1
	c.SyncStatus = models.SyncStatusPending
}

func entityFromPayload(payload json.RawMessage) (*models.Entity, error) {
	var e models.Entity
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("%w: entity payload: %v", common.ErrIncorrectRecord, err)
	}
	return &e, nil
}

func curationFromPayload(payload json.RawMessage) (*models.Curation, error) {
	var c models.Curation
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("%w: curation payload: %v", common.ErrIncorrectRecord, err)
	}
	return &c, nil
}
