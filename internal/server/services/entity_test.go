package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/server/models"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/entities"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityDoc(entityID, name string) *models.Entity {
	return &models.Entity{
		EntityID: entityID,
		Type:     models.EntityTypeRestaurant,
		Name:     name,
		Status:   models.StatusActive,
		Data:     map[string]any{"city": "Napoli"},
		Metadata: []models.MetadataRecord{{Category: "cuisine", Value: "neapolitan"}},
	}
}

func newEntityService() (*EntityService, *repomanager.InMemoryRepositoryManager) {
	m := repomanager.NewInMemoryRepositoryManager()
	return NewEntityService(nil, m), m
}

func TestEntityCreate_StartsAtVersionOne(t *testing.T) {
	svc, _ := newEntityService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", entityDoc("e1", "Trattoria Uno"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, "u1", created.CreatedBy)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.UpdatedAt.IsZero())
}

func TestEntityCreate_DuplicateWritesNothing(t *testing.T) {
	svc, _ := newEntityService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", entityDoc("e1", "Trattoria Uno"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, "u2", entityDoc("e1", "Impostor"))
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	cur, err := svc.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Trattoria Uno", cur.Name)
}

func TestEntityCreate_RejectsUnknownType(t *testing.T) {
	svc, _ := newEntityService()
	doc := entityDoc("e1", "Trattoria Uno")
	doc.Type = "spaceport"

	_, err := svc.Create(context.Background(), "u1", doc)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestEntityUpdate_MatchingVersionAdvancesByOne(t *testing.T) {
	svc, _ := newEntityService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", entityDoc("e1", "Trattoria Uno"))
	require.NoError(t, err)

	doc := entityDoc("e1", "Trattoria Uno e Due")
	updated, err := svc.Update(ctx, doc, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "Trattoria Uno e Due", updated.Name)
	assert.Equal(t, "u1", updated.CreatedBy, "authorship survives updates")
}

func TestEntityUpdate_StaleVersionCarriesServerDocument(t *testing.T) {
	svc, _ := newEntityService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", entityDoc("e1", "Trattoria Uno"))
	require.NoError(t, err)
	_, err = svc.Update(ctx, entityDoc("e1", "Renamed Once"), 1)
	require.NoError(t, err)

	_, err = svc.Update(ctx, entityDoc("e1", "Racing Writer"), 1)
	require.ErrorIs(t, err, common.ErrVersionConflict)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, int64(2), conflict.ServerVersion)

	doc, ok := conflict.Document.(*models.Entity)
	require.True(t, ok)
	assert.Equal(t, "Renamed Once", doc.Name)

	cur, err := svc.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Once", cur.Name, "rejected write changed nothing")
}

func TestEntityDelete_RemovesEntityAndItsCurations(t *testing.T) {
	svc, m := newEntityService()
	csvc := NewCurationService(nil, m)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", entityDoc("e1", "Trattoria Uno"))
	require.NoError(t, err)
	_, err = csvc.Create(ctx, "u1", &models.Curation{
		CurationID: "c1", EntityID: "e1",
		Notes: models.Notes{Public: "great pizza"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "e1", 1))

	_, err = svc.Get(ctx, "e1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = csvc.Get(ctx, "c1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEntityDelete_StaleVersionRejected(t *testing.T) {
	svc, _ := newEntityService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", entityDoc("e1", "Trattoria Uno"))
	require.NoError(t, err)

	err = svc.Delete(ctx, "e1", 7)
	assert.ErrorIs(t, err, common.ErrVersionConflict)

	_, err = svc.Get(ctx, "e1")
	assert.NoError(t, err)
}

func TestEntityList_FiltersAndPages(t *testing.T) {
	svc, _ := newEntityService()
	ctx := context.Background()

	for _, id := range []string{"e1", "e2", "e3"} {
		_, err := svc.Create(ctx, "u1", entityDoc(id, "Venue "+id))
		require.NoError(t, err)
	}
	doc := entityDoc("e9", "Bar Nove")
	doc.Type = models.EntityTypeBar
	_, err := svc.Create(ctx, "u1", doc)
	require.NoError(t, err)

	items, total, err := svc.List(ctx, entities.Filter{Type: "restaurant"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 3)

	items, total, err = svc.List(ctx, entities.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, items, 2)
}
