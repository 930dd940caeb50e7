package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/placekeeper/internal/client/api"
	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/dmitrijs2005/placekeeper/internal/client/transform"
	"github.com/dmitrijs2005/placekeeper/internal/common"
)

// push drains due queue items in enqueue order. Cancellation is honored
// between items, never in the middle of one: an item either completes its
// round-trip and local bookkeeping or stays pending for the next cycle.
func (m *Manager) push(ctx context.Context, report *CycleReport) error {
	items, err := m.store.DuePendingItems(ctx, m.now().UTC(), m.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to load due items: %w", err)
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		blocked, err := m.store.HasBlockingPredecessor(ctx, item)
		if err != nil {
			return err
		}
		if blocked {
			report.Skipped++
			continue
		}

		if err := m.store.MarkInFlight(ctx, item.ID); err != nil {
			return err
		}

		offline, err := m.pushItem(ctx, item, report)
		if err != nil {
			return err
		}
		if offline {
			// Server unreachable; the rest of the batch waits for the
			// next cycle.
			m.logger.Info(ctx, "push paused, server unreachable", "item", item.ID)
			return nil
		}
	}
	return nil
}

// pushItem performs one remote round-trip and settles the item. The bool
// result reports whether the failure looked like the server being down.
func (m *Manager) pushItem(ctx context.Context, item *models.SyncQueueItem, report *CycleReport) (bool, error) {
	var pushErr error
	switch item.Type {
	case models.TargetEntity:
		pushErr = m.pushEntityItem(ctx, item)
	case models.TargetCuration:
		pushErr = m.pushCurationItem(ctx, item)
	default:
		pushErr = fmt.Errorf("%w: queue target %q", common.ErrIncorrectRecord, item.Type)
	}

	switch {
	case pushErr == nil:
		report.Pushed++
		return false, nil

	case errors.Is(pushErr, common.ErrVersionConflict):
		var vc *api.VersionConflictError
		if !errors.As(pushErr, &vc) {
			return false, pushErr
		}
		if err := m.recordConflict(ctx, item, vc); err != nil {
			return false, err
		}
		report.Conflicts++
		return false, nil

	case errors.Is(pushErr, common.ErrNetwork), errors.Is(pushErr, common.ErrServerUnavailable):
		retries := item.RetryCount + 1
		if retries >= m.cfg.MaxRetries {
			if err := m.store.MarkStuck(ctx, item.ID); err != nil {
				return false, err
			}
			m.logger.Warn(ctx, "item stuck after exhausting retries", "item", item.ID, "retries", retries)
			report.Stuck++
			return true, nil
		}
		next := m.now().UTC().Add(m.backoff(item.RetryCount))
		if err := m.store.Reschedule(ctx, item.ID, retries, next); err != nil {
			return false, err
		}
		report.Retried++
		return true, nil

	default:
		// Rejected outright (validation, auth, malformed payload). Retrying
		// would repeat the same answer, so park it for the operator.
		if err := m.store.MarkStuck(ctx, item.ID); err != nil {
			return false, err
		}
		m.logger.Error(ctx, "item rejected by server", "item", item.ID, "error", pushErr)
		report.Stuck++
		return false, nil
	}
}

func (m *Manager) pushEntityItem(ctx context.Context, item *models.SyncQueueItem) error {
	var e models.Entity
	if err := json.Unmarshal(item.Payload, &e); err != nil {
		return fmt.Errorf("%w: entity payload: %v", common.ErrIncorrectRecord, err)
	}
	doc := transform.ToRemoteEntity(&e)

	switch item.Action {
	case models.ActionCreate:
		confirmed, err := m.client.CreateEntity(ctx, doc)
		if err != nil {
			return err
		}
		return m.completeEntity(ctx, item.ID, confirmed)

	case models.ActionUpdate:
		// The queued snapshot already carries the bumped local version; the
		// server is expected to still hold the one before it.
		confirmed, err := m.client.UpdateEntity(ctx, doc, e.Version-1)
		if err != nil {
			return err
		}
		return m.completeEntity(ctx, item.ID, confirmed)

	case models.ActionDelete:
		err := m.client.DeleteEntity(ctx, e.EntityID, e.Version)
		if errors.Is(err, common.ErrNotFound) {
			// Already gone remotely; deleting locally is all that is left.
			err = nil
		}
		if err != nil {
			return err
		}
		return m.store.CompleteEntityDelete(ctx, item.ID, item.TargetID)

	default:
		return fmt.Errorf("%w: queue action %q", common.ErrIncorrectRecord, item.Action)
	}
}

func (m *Manager) pushCurationItem(ctx context.Context, item *models.SyncQueueItem) error {
	var c models.Curation
	if err := json.Unmarshal(item.Payload, &c); err != nil {
		return fmt.Errorf("%w: curation payload: %v", common.ErrIncorrectRecord, err)
	}
	doc := transform.ToRemoteCuration(&c)

	switch item.Action {
	case models.ActionCreate:
		confirmed, err := m.client.CreateCuration(ctx, doc)
		if err != nil {
			return err
		}
		return m.completeCuration(ctx, item.ID, confirmed)

	case models.ActionUpdate:
		confirmed, err := m.client.UpdateCuration(ctx, doc, c.Version-1)
		if err != nil {
			return err
		}
		return m.completeCuration(ctx, item.ID, confirmed)

	case models.ActionDelete:
		err := m.client.DeleteCuration(ctx, c.CurationID, c.Version)
		if errors.Is(err, common.ErrNotFound) {
			err = nil
		}
		if err != nil {
			return err
		}
		return m.store.CompleteCurationDelete(ctx, item.ID, item.TargetID)

	default:
		return fmt.Errorf("%w: queue action %q", common.ErrIncorrectRecord, item.Action)
	}
}

func (m *Manager) completeEntity(ctx context.Context, itemID string, confirmed *transform.RemoteEntity) error {
	local, err := transform.ToLocalEntity(confirmed)
	if err != nil {
		return fmt.Errorf("bad server entity: %w", err)
	}
	return m.store.CompleteEntityPush(ctx, itemID, local)
}

func (m *Manager) completeCuration(ctx context.Context, itemID string, confirmed *transform.RemoteCuration) error {
	local, err := transform.ToLocalCuration(confirmed)
	if err != nil {
		return fmt.Errorf("bad server curation: %w", err)
	}
	return m.store.CompleteCurationPush(ctx, itemID, local)
}

// recordConflict turns a rejected push into a durable conflict record. The
// server document is reshaped into the local form first, so both payloads and
// the diff speak the same field names.
func (m *Manager) recordConflict(ctx context.Context, item *models.SyncQueueItem, vc *api.VersionConflictError) error {
	serverLocal, err := serverDocAsLocal(item.Type, vc.ServerDoc)
	if err != nil {
		return err
	}

	var localVersion int64
	switch item.Type {
	case models.TargetEntity:
		var e models.Entity
		if err := json.Unmarshal(item.Payload, &e); err != nil {
			return fmt.Errorf("%w: entity payload: %v", common.ErrIncorrectRecord, err)
		}
		localVersion = e.Version
	case models.TargetCuration:
		var c models.Curation
		if err := json.Unmarshal(item.Payload, &c); err != nil {
			return fmt.Errorf("%w: curation payload: %v", common.ErrIncorrectRecord, err)
		}
		localVersion = c.Version
	}

	diff, err := fieldDiff(item.Payload, serverLocal)
	if err != nil {
		return err
	}

	rec := &models.ConflictRecord{
		TargetType:    item.Type,
		TargetID:      item.TargetID,
		LocalVersion:  localVersion,
		LocalPayload:  item.Payload,
		ServerVersion: vc.ServerVersion,
		ServerPayload: serverLocal,
		FieldDiff:     diff,
	}

	m.logger.Warn(ctx, "version conflict recorded",
		"target", item.TargetID, "local_version", localVersion, "server_version", vc.ServerVersion)

	switch item.Type {
	case models.TargetEntity:
		return m.store.RecordEntityConflict(ctx, item.ID, rec)
	default:
		return m.store.RecordCurationConflict(ctx, item.ID, rec)
	}
}

// serverDocAsLocal converts a wire document carried by a conflict error into
// local-model JSON.
func serverDocAsLocal(typ models.TargetType, doc json.RawMessage) (json.RawMessage, error) {
	switch typ {
	case models.TargetEntity:
		var r transform.RemoteEntity
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, fmt.Errorf("bad server entity document: %w", err)
		}
		local, err := transform.ToLocalEntity(&r)
		if err != nil {
			return nil, err
		}
		return json.Marshal(local)
	case models.TargetCuration:
		var r transform.RemoteCuration
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, fmt.Errorf("bad server curation document: %w", err)
		}
		local, err := transform.ToLocalCuration(&r)
		if err != nil {
			return nil, err
		}
		return json.Marshal(local)
	default:
		return nil, fmt.Errorf("%w: queue target %q", common.ErrIncorrectRecord, typ)
	}
}
