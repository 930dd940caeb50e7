package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/placekeeper/internal/dbx"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/curations"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/curators"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/entities"
)

// InMemoryRepositoryManager serves tests and local development. The db
// argument of the accessors is ignored; state lives in the manager itself.
type InMemoryRepositoryManager struct {
	entities  *entities.InMemoryRepository
	curations *curations.InMemoryRepository
	curators  *curators.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		entities:  entities.NewInMemoryRepository(),
		curations: curations.NewInMemoryRepository(),
		curators:  curators.NewInMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *InMemoryRepositoryManager) Entities(dbx.DBTX) entities.Repository {
	return m.entities
}

func (m *InMemoryRepositoryManager) Curations(dbx.DBTX) curations.Repository {
	return m.curations
}

func (m *InMemoryRepositoryManager) Curators(dbx.DBTX) curators.Repository {
	return m.curators
}
