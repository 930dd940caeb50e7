package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordTestConflict(t *testing.T, s *Store) (*models.Entity, *models.ConflictRecord, *models.SyncQueueItem) {
	t.Helper()
	ctx := context.Background()

	e := testEntity()
	require.NoError(t, s.CreateEntity(ctx, testSession, e))

	items, err := s.DuePendingItems(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	item := items[0]
	require.NoError(t, s.MarkInFlight(ctx, item.ID))

	local, _ := json.Marshal(e)
	server := *e
	server.Name = "Trattoria Uno (renamed upstream)"
	server.Version = 2
	serverPayload, _ := json.Marshal(&server)

	rec := &models.ConflictRecord{
		TargetType:    models.TargetEntity,
		TargetID:      e.EntityID,
		LocalVersion:  e.Version,
		LocalPayload:  local,
		ServerVersion: 2,
		ServerPayload: serverPayload,
		FieldDiff:     []models.FieldChange{{Field: "name"}},
	}
	require.NoError(t, s.RecordEntityConflict(ctx, item.ID, rec))
	return e, rec, item
}

func TestRecordEntityConflict_FlagsRowAndParksItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e, rec, _ := recordTestConflict(t, s)

	got, err := s.GetEntity(ctx, e.EntityID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusConflict, got.SyncStatus)

	conflicts, err := s.ListUnresolvedConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, rec.ID, conflicts[0].ID)
	assert.EqualValues(t, 2, conflicts[0].ServerVersion)

	due, err := s.DuePendingItems(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due, "conflicted item must not be retried")
}

func TestResolveConflict_KeepServerIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e, rec, _ := recordTestConflict(t, s)

	var server models.Entity
	require.NoError(t, json.Unmarshal(rec.ServerPayload, &server))
	server.SyncStatus = models.SyncStatusSynced

	require.NoError(t, s.ResolveEntityConflictKeepServer(ctx, rec.ID, &server))

	got, err := s.GetEntity(ctx, e.EntityID)
	require.NoError(t, err)
	assert.Equal(t, server.Name, got.Name)
	assert.EqualValues(t, 2, got.Version)
	assert.Equal(t, models.SyncStatusSynced, got.SyncStatus)

	conflicts, err := s.ListUnresolvedConflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// a second resolution of the same record must fail
	err = s.ResolveEntityConflictKeepServer(ctx, rec.ID, &server)
	require.ErrorIs(t, err, common.ErrConflictResolved)
}

func TestResolveConflict_RepushRearmsQueueItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e, rec, item := recordTestConflict(t, s)

	var local models.Entity
	require.NoError(t, json.Unmarshal(rec.LocalPayload, &local))
	local.Version = rec.ServerVersion + 1
	local.SyncStatus = models.SyncStatusPending

	require.NoError(t, s.ResolveEntityConflictRepush(ctx, rec.ID, models.ResolutionKeepLocal, &local))

	got, err := s.GetEntity(ctx, e.EntityID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.Version)
	assert.Equal(t, models.SyncStatusPending, got.SyncStatus)

	due, err := s.DuePendingItems(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, item.ID, due[0].ID)
	assert.Equal(t, 0, due[0].RetryCount)

	var repush models.Entity
	require.NoError(t, json.Unmarshal(due[0].Payload, &repush))
	assert.EqualValues(t, 3, repush.Version)
}
