package curations

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/server/models"
)

// InMemoryRepository backs tests and local development without PostgreSQL.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Curation
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]*models.Curation)}
}

func (r *InMemoryRepository) Add(_ context.Context, c *models.Curation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.CurationID]; ok {
		return common.ErrAlreadyExists
	}
	cp := *c
	r.items[c.CurationID] = &cp
	return nil
}

func (r *InMemoryRepository) GetByCurationID(_ context.Context, curationID string) (*models.Curation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[curationID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *InMemoryRepository) Update(_ context.Context, c *models.Curation, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[c.CurationID]
	if !ok {
		return common.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	cp := *c
	r.items[c.CurationID] = &cp
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, curationID string, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[curationID]
	if !ok {
		return common.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	delete(r.items, curationID)
	return nil
}

func (r *InMemoryRepository) DeleteByEntityID(_ context.Context, entityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.items {
		if c.EntityID == entityID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]*models.Curation, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Curation
	for _, c := range r.items {
		if f.EntityID != "" && c.EntityID != f.EntityID {
			continue
		}
		if f.CuratorID != "" && c.Curator.ID != f.CuratorID {
			continue
		}
		if !f.From.IsZero() && c.UpdatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && c.UpdatedAt.After(f.To) {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
		}
		return matched[i].CurationID < matched[j].CurationID
	})

	total := len(matched)
	limit := pageLimit(f.Limit)
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}
