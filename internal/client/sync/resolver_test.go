package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/placekeeper/internal/client/api"
	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/dmitrijs2005/placekeeper/internal/client/store"
	"github.com/dmitrijs2005/placekeeper/internal/client/transform"
	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conflictFixture syncs a fresh entity, edits it locally and then forces a
// version conflict against a server copy at version 4.
func conflictFixture(t *testing.T, serverName string) (*store.Store, *fakeClient, *Manager, *models.Entity, *models.ConflictRecord) {
	t.Helper()
	st := newSyncStore(t)
	ctx := context.Background()
	fc := &fakeClient{}
	m := newTestManager(t, st, fc)

	e := seedEntity(t, st)
	_, err := m.Sync(ctx, testSession)
	require.NoError(t, err)

	localName := "Local Edit"
	_, err = st.UpdateEntity(ctx, testSession, e.EntityID, store.EntityPatch{Name: &localName})
	require.NoError(t, err)

	serverDoc, err := json.Marshal(wireEntity(e.EntityID, 4, serverName))
	require.NoError(t, err)
	fc.updateEntity = func(doc *transform.RemoteEntity, expected int64) (*transform.RemoteEntity, error) {
		return nil, &api.VersionConflictError{ServerVersion: 4, ServerDoc: serverDoc}
	}

	rep, err := m.Sync(ctx, testSession)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Conflicts)

	conflicts, err := st.ListUnresolvedConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	return st, fc, m, e, conflicts[0]
}

func TestResolver_KeepServerOverwritesLocal(t *testing.T) {
	st, _, _, e, rec := conflictFixture(t, "Upstream Edit")
	ctx := context.Background()
	r := NewResolver(st, testLogger())

	require.NoError(t, r.KeepServer(ctx, rec.ID))

	got, err := st.GetEntity(ctx, e.EntityID)
	require.NoError(t, err)
	assert.Equal(t, "Upstream Edit", got.Name)
	assert.EqualValues(t, 4, got.Version)
	assert.Equal(t, models.SyncStatusSynced, got.SyncStatus)

	conflicts, err := st.ListUnresolvedConflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	summary, err := st.QueueSummary(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary[models.QueueConflict])

	// Resolving twice is rejected, not replayed.
	assert.ErrorIs(t, r.KeepServer(ctx, rec.ID), common.ErrConflictResolved)
}

func TestResolver_KeepLocalRepushesOnServerVersion(t *testing.T) {
	st, fc, m, e, rec := conflictFixture(t, "Upstream Edit")
	ctx := context.Background()
	r := NewResolver(st, testLogger())

	require.NoError(t, r.KeepLocal(ctx, rec.ID))

	got, err := st.GetEntity(ctx, e.EntityID)
	require.NoError(t, err)
	assert.Equal(t, "Local Edit", got.Name)
	assert.EqualValues(t, 5, got.Version, "kept copy stacks on the server's version")
	assert.Equal(t, models.SyncStatusPending, got.SyncStatus)

	var expectedSeen int64
	fc.updateEntity = func(doc *transform.RemoteEntity, expected int64) (*transform.RemoteEntity, error) {
		expectedSeen = expected
		out := *doc
		return &out, nil
	}

	rep, err := m.Sync(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Pushed)
	assert.EqualValues(t, 4, expectedSeen, "re-push expects exactly what the server holds")

	got, err = st.GetEntity(ctx, e.EntityID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, got.SyncStatus)
	assert.EqualValues(t, 5, got.Version)
}

func TestResolver_MergeRepushesCallerDocument(t *testing.T) {
	st, fc, m, e, rec := conflictFixture(t, "Upstream Edit")
	ctx := context.Background()
	r := NewResolver(st, testLogger())

	var merged models.Entity
	require.NoError(t, json.Unmarshal(rec.LocalPayload, &merged))
	merged.Name = "Merged Name"
	mergedJSON, err := json.Marshal(&merged)
	require.NoError(t, err)

	require.NoError(t, r.Merge(ctx, rec.ID, mergedJSON))

	got, err := st.GetEntity(ctx, e.EntityID)
	require.NoError(t, err)
	assert.Equal(t, "Merged Name", got.Name)
	assert.EqualValues(t, 5, got.Version)

	fc.updateEntity = nil
	rep, err := m.Sync(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Pushed)

	resolved, err := st.GetConflict(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, models.ResolutionMerged, resolved.Resolution)
}

func TestResolver_AutoMergeRefusesRealDivergence(t *testing.T) {
	st, _, _, _, rec := conflictFixture(t, "Upstream Edit")
	r := NewResolver(st, testLogger())

	err := r.AutoMerge(context.Background(), rec.ID)
	require.ErrorIs(t, err, common.ErrFieldsOverlap)

	conflicts, err := st.ListUnresolvedConflicts(context.Background())
	require.NoError(t, err)
	assert.Len(t, conflicts, 1, "a refused auto-merge leaves the conflict open")
}

func TestResolver_AutoMergeTakesServerWhenContentMatches(t *testing.T) {
	st := newSyncStore(t)
	ctx := context.Background()
	fc := &fakeClient{}
	m := newTestManager(t, st, fc)

	e := seedEntity(t, st)
	_, err := m.Sync(ctx, testSession)
	require.NoError(t, err)

	// A content-identical edit: only the version moves.
	_, err = st.UpdateEntity(ctx, testSession, e.EntityID, store.EntityPatch{})
	require.NoError(t, err)

	serverDoc, err := json.Marshal(wireEntity(e.EntityID, 4, "Trattoria Uno"))
	require.NoError(t, err)
	fc.updateEntity = func(doc *transform.RemoteEntity, expected int64) (*transform.RemoteEntity, error) {
		return nil, &api.VersionConflictError{ServerVersion: 4, ServerDoc: serverDoc}
	}

	rep, err := m.Sync(ctx, testSession)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Conflicts)

	conflicts, err := st.ListUnresolvedConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Empty(t, conflicts[0].FieldDiff)

	r := NewResolver(st, testLogger())
	require.NoError(t, r.AutoMerge(ctx, conflicts[0].ID))

	got, err := st.GetEntity(ctx, e.EntityID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, got.Version)
	assert.Equal(t, models.SyncStatusSynced, got.SyncStatus)
}
