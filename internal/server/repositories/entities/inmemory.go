package entities

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
	items map[string]*models.Entity
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]*models.Entity)}
}

func (r *InMemoryRepository) Add(_ context.Context, e *models.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[e.EntityID]; ok {
		return common.ErrAlreadyExists
	}
	cp := *e
	r.items[e.EntityID] = &cp
	return nil
}

func (r *InMemoryRepository) GetByEntityID(_ context.Context, entityID string) (*models.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[entityID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *InMemoryRepository) Update(_ context.Context, e *models.Entity, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[e.EntityID]
	if !ok {
		return common.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	cp := *e
	r.items[e.EntityID] = &cp
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, entityID string, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[entityID]
	if !ok {
		return common.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	delete(r.items, entityID)
	return nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]*models.Entity, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Entity
	for _, e := range r.items {
		if f.Type != "" && string(e.Type) != f.Type {
			continue
		}
		if f.Status != "" && string(e.Status) != f.Status {
			continue
		}
		if f.CreatedBy != "" && e.CreatedBy != f.CreatedBy {
			continue
		}
		if !f.From.IsZero() && e.UpdatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.UpdatedAt.After(f.To) {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
		}
		return matched[i].EntityID < matched[j].EntityID
	})

	total := len(matched)
	return page(matched, f.Offset, pageLimit(f.Limit)), total, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
