// Package repomanager vends repository implementations for one storage
// backend and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/placekeeper/internal/dbx"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/curations"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/curators"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/entities"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Entities(db dbx.DBTX) entities.Repository
	Curations(db dbx.DBTX) curations.Repository
	Curators(db dbx.DBTX) curators.Repository
}
