package transform

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localEntity() *models.Entity {
	return &models.Entity{
		EntityID: "e1",
		Type:     models.EntityTypeRestaurant,
		Name:     "Trattoria Uno",
		Status:   models.StatusActive,
		Data:     map[string]any{"city": "Napoli", "seats": float64(24)},
		Metadata: []models.MetadataRecord{
			{Category: "cuisine", Value: "neapolitan"},
			{Category: "price", Value: "cheap"},
		},
		Version:    3,
		CreatedAt:  time.Date(2026, 4, 1, 9, 30, 0, 123456000, time.UTC),
		UpdatedAt:  time.Date(2026, 4, 2, 18, 0, 0, 0, time.UTC),
		CreatedBy:  "u1",
		SyncStatus: models.SyncStatusPending,
		ServerRef:  "srv-42",
	}
}

func TestEntityRoundtrip_SharedFieldsPreserved(t *testing.T) {
	e := localEntity()

	back, err := ToLocalEntity(ToRemoteEntity(e))
	require.NoError(t, err)

	assert.Equal(t, e.EntityID, back.EntityID)
	assert.Equal(t, e.Type, back.Type)
	assert.Equal(t, e.Name, back.Name)
	assert.Equal(t, e.Status, back.Status)
	assert.Equal(t, e.Data, back.Data)
	assert.Equal(t, e.Metadata, back.Metadata)
	assert.Equal(t, e.Version, back.Version)
	assert.True(t, e.CreatedAt.Equal(back.CreatedAt))
	assert.True(t, e.UpdatedAt.Equal(back.UpdatedAt))
	assert.Equal(t, e.CreatedBy, back.CreatedBy)
	assert.Equal(t, e.ServerRef, back.ServerRef)

	// client-only state does not round-trip; a remote doc is synced by definition
	assert.Equal(t, models.SyncStatusSynced, back.SyncStatus)
}

func TestToRemoteEntity_TimesAreUTC(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	e := localEntity()
	e.CreatedAt = time.Date(2026, 4, 1, 11, 30, 0, 0, loc)

	r := ToRemoteEntity(e)
	parsed, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, parsed.Location())
	assert.True(t, parsed.Equal(e.CreatedAt))
}

func TestToRemoteEntity_OmitsServerIDOnCreate(t *testing.T) {
	e := localEntity()
	e.ServerRef = ""

	r := ToRemoteEntity(e)
	assert.Empty(t, r.ID)
}

func TestToRemoteEntity_IsPure(t *testing.T) {
	e := localEntity()
	_ = ToRemoteEntity(e)

	assert.Equal(t, models.SyncStatusPending, e.SyncStatus)
	assert.Equal(t, "srv-42", e.ServerRef)
	assert.EqualValues(t, 3, e.Version)
}

func TestCurationRoundtrip(t *testing.T) {
	c := &models.Curation{
		CurationID:  "c1",
		EntityID:    "e1",
		CuratorID:   "u1",
		CuratorName: "Ada",
		Concepts:    []models.Concept{{Category: "vibe", Value: "quiet"}},
		Notes:       models.Notes{Public: "go early", Private: "cash only"},
		Version:     2,
		CreatedAt:   time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 4, 1, 9, 45, 0, 0, time.UTC),
		ServerRef:   "srv-c1",
	}

	r := ToRemoteCuration(c)
	// curator sub-object assembled from the flat fields
	assert.Equal(t, RemoteCurator{ID: "u1", Name: "Ada"}, r.Curator)

	back, err := ToLocalCuration(r)
	require.NoError(t, err)
	assert.Equal(t, c.CurationID, back.CurationID)
	assert.Equal(t, c.EntityID, back.EntityID)
	assert.Equal(t, c.CuratorID, back.CuratorID)
	assert.Equal(t, c.CuratorName, back.CuratorName)
	assert.Equal(t, c.Concepts, back.Concepts)
	assert.Equal(t, c.Notes, back.Notes)
	assert.Equal(t, c.Version, back.Version)
	assert.Equal(t, models.SyncStatusSynced, back.SyncStatus)
}
