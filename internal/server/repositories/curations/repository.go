// Package curations stores curator annotations of entities.
package curations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/server/models"
)

// Filter narrows List calls. Zero values mean "any". Results are ordered by
// update time, then curation id, so offset paging is stable.
type Filter struct {
	EntityID  string
	CuratorID string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// Repository is the persistence contract for curations. Update and Delete
// are version-guarded the same way the entity repository is.
type Repository interface {
	Add(ctx context.Context, c *models.Curation) error
	GetByCurationID(ctx context.Context, curationID string) (*models.Curation, error)
	Update(ctx context.Context, c *models.Curation, expectedVersion int64) error
	Delete(ctx context.Context, curationID string, expectedVersion int64) error
	List(ctx context.Context, f Filter) ([]*models.Curation, int, error)
	DeleteByEntityID(ctx context.Context, entityID string) error
}
