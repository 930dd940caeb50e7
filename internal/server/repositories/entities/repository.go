// Package entities stores canonical venue records.
package entities

import (
	"context"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/server/models"
)

// Filter narrows List calls. Zero values mean "any". Results are ordered by
// update time, then entity id, so offset paging is stable.
type Filter struct {
	Type      string
	Status    string
	CreatedBy string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// Repository is the persistence contract for entities. Update and Delete are
// version-guarded: a stale expected version yields ErrVersionConflict and
// writes nothing.
type Repository interface {
	Add(ctx context.Context, e *models.Entity) error
	GetByEntityID(ctx context.Context, entityID string) (*models.Entity, error)
	Update(ctx context.Context, e *models.Entity, expectedVersion int64) error
	Delete(ctx context.Context, entityID string, expectedVersion int64) error
	List(ctx context.Context, f Filter) ([]*models.Entity, int, error)
}
