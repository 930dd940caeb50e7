package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/api"
	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/dmitrijs2005/placekeeper/internal/client/store"
	"github.com/dmitrijs2005/placekeeper/internal/client/transform"
	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/sethvargo/go-retry"
)

const (
	pullRetryBase  = 500 * time.Millisecond
	pullMaxRetries = 2
)

// pull fetches documents changed since the watermark and folds them into the
// local store. Entities come before curations so references resolve. The
// watermark only advances after the whole pull succeeds; a partial pull is
// re-covered by the next cycle because applying a document is idempotent.
func (m *Manager) pull(ctx context.Context, report *CycleReport) error {
	watermark, err := m.store.Watermark(ctx)
	if err != nil {
		return err
	}
	cycleStart := report.StartedAt

	if err := m.pullEntities(ctx, watermark, report); err != nil {
		return err
	}
	if err := m.pullCurations(ctx, watermark, report); err != nil {
		return err
	}

	return m.store.SetWatermark(ctx, cycleStart)
}

func (m *Manager) pullEntities(ctx context.Context, watermark time.Time, report *CycleReport) error {
	for offset := 0; ; {
		var page *api.EntityPage
		err := m.withPullRetry(ctx, func(ctx context.Context) error {
			var err error
			page, err = m.client.ListEntities(ctx, api.ListFilter{
				From: watermark, Limit: m.cfg.BatchSize, Offset: offset,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to pull entities: %w", err)
		}

		for _, doc := range page.Items {
			if err := m.applyRemoteEntity(ctx, doc, report); err != nil {
				return err
			}
		}

		offset += len(page.Items)
		if len(page.Items) < m.cfg.BatchSize || offset >= page.Total {
			return nil
		}
	}
}

func (m *Manager) pullCurations(ctx context.Context, watermark time.Time, report *CycleReport) error {
	for offset := 0; ; {
		var page *api.CurationPage
		err := m.withPullRetry(ctx, func(ctx context.Context) error {
			var err error
			page, err = m.client.ListCurations(ctx, api.ListFilter{
				From: watermark, Limit: m.cfg.BatchSize, Offset: offset,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to pull curations: %w", err)
		}

		for _, doc := range page.Items {
			if err := m.applyRemoteCuration(ctx, doc, report); err != nil {
				return err
			}
		}

		offset += len(page.Items)
		if len(page.Items) < m.cfg.BatchSize || offset >= page.Total {
			return nil
		}
	}
}

// withPullRetry retries a page fetch a couple of times on transient errors
// before giving the whole pull up to the next cycle.
func (m *Manager) withPullRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(pullMaxRetries, retry.NewExponential(pullRetryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, common.ErrNetwork) || errors.Is(err, common.ErrServerUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// applyRemoteEntity folds one pulled entity into the local store: overwrite
// when the local copy carries no unpushed intent, ignore when the remote copy
// is not newer, conflict otherwise.
func (m *Manager) applyRemoteEntity(ctx context.Context, doc *transform.RemoteEntity, report *CycleReport) error {
	local, err := transform.ToLocalEntity(doc)
	if err != nil {
		return fmt.Errorf("bad pulled entity %s: %w", doc.EntityID, err)
	}

	info, err := m.store.EntitySyncInfo(ctx, local.EntityID)
	if errors.Is(err, common.ErrNotFound) {
		if err := m.store.ApplyRemoteEntity(ctx, local); err != nil {
			return err
		}
		report.Pulled++
		return nil
	}
	if err != nil {
		return err
	}

	switch m.pullDecision(local.Version, info) {
	case pullIgnore:
		return nil
	case pullApply:
		if err := m.store.ApplyRemoteEntity(ctx, local); err != nil {
			return err
		}
		report.Pulled++
		return nil
	default:
		rec, err := pullConflictRecord(models.TargetEntity, local.EntityID, info, local)
		if err != nil {
			return err
		}
		if err := m.store.RecordEntityConflict(ctx, info.OpenItemID, rec); err != nil {
			return err
		}
		m.logger.Warn(ctx, "pull conflict recorded", "target", local.EntityID,
			"local_version", info.Version, "server_version", local.Version)
		report.Conflicts++
		return nil
	}
}

func (m *Manager) applyRemoteCuration(ctx context.Context, doc *transform.RemoteCuration, report *CycleReport) error {
	local, err := transform.ToLocalCuration(doc)
	if err != nil {
		return fmt.Errorf("bad pulled curation %s: %w", doc.CurationID, err)
	}

	info, err := m.store.CurationSyncInfo(ctx, local.CurationID)
	if errors.Is(err, common.ErrNotFound) {
		err = m.store.ApplyRemoteCuration(ctx, local)
		if errors.Is(err, common.ErrUnknownEntity) {
			// Entity not pulled yet (filtered out or deleted upstream); the
			// next full cycle brings it in first.
			m.logger.Warn(ctx, "pulled curation references unknown entity",
				"curation", local.CurationID, "entity", local.EntityID)
			return nil
		}
		if err != nil {
			return err
		}
		report.Pulled++
		return nil
	}
	if err != nil {
		return err
	}

	switch m.pullDecision(local.Version, info) {
	case pullIgnore:
		return nil
	case pullApply:
		if err := m.store.ApplyRemoteCuration(ctx, local); err != nil {
			return err
		}
		report.Pulled++
		return nil
	default:
		rec, err := pullConflictRecord(models.TargetCuration, local.CurationID, info, local)
		if err != nil {
			return err
		}
		if err := m.store.RecordCurationConflict(ctx, info.OpenItemID, rec); err != nil {
			return err
		}
		m.logger.Warn(ctx, "pull conflict recorded", "target", local.CurationID,
			"local_version", info.Version, "server_version", local.Version)
		report.Conflicts++
		return nil
	}
}

type pullOutcome int

const (
	pullIgnore pullOutcome = iota
	pullApply
	pullConflict
)

// pullDecision classifies one pulled document against the local row. A local
// row with an open queue item carries unpushed intent and must not be
// overwritten; a remote copy that is not strictly newer is already covered by
// either the last pull or the pending push.
func (m *Manager) pullDecision(remoteVersion int64, info *store.SyncInfo) pullOutcome {
	if remoteVersion <= info.Version {
		return pullIgnore
	}
	if info.OpenItemID == "" {
		return pullApply
	}
	return pullConflict
}

func pullConflictRecord(typ models.TargetType, targetID string, info *store.SyncInfo, serverLocal any) (*models.ConflictRecord, error) {
	serverJSON, err := json.Marshal(serverLocal)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot server doc: %w", err)
	}
	diff, err := fieldDiff(info.LocalJSON, serverJSON)
	if err != nil {
		return nil, err
	}

	var serverVersion int64
	switch v := serverLocal.(type) {
	case *models.Entity:
		serverVersion = v.Version
	case *models.Curation:
		serverVersion = v.Version
	}

	return &models.ConflictRecord{
		TargetType:    typ,
		TargetID:      targetID,
		LocalVersion:  info.Version,
		LocalPayload:  info.LocalJSON,
		ServerVersion: serverVersion,
		ServerPayload: serverJSON,
		FieldDiff:     diff,
	}, nil
}
