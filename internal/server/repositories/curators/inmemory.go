package curators

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/server/models"
)

// InMemoryRepository backs tests and local development without PostgreSQL.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byLogin map[string]*models.Curator
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byLogin: make(map[string]*models.Curator)}
}

func (r *InMemoryRepository) Add(_ context.Context, c *models.Curator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byLogin[c.Login]; ok {
		return common.ErrAlreadyExists
	}
	cp := *c
	r.byLogin[c.Login] = &cp
	return nil
}

func (r *InMemoryRepository) GetByLogin(_ context.Context, login string) (*models.Curator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byLogin[login]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*models.Curator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byLogin {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}
