// Package curators stores registered curator accounts.
package curators

import (
	"context"

	"github.com/dmitrijs2005/placekeeper/internal/server/models"
)

// Repository is the persistence contract for curator accounts. Add returns
// ErrAlreadyExists when the login is taken.
type Repository interface {
	Add(ctx context.Context, c *models.Curator) error
	GetByLogin(ctx context.Context, login string) (*models.Curator, error)
	GetByID(ctx context.Context, id string) (*models.Curator, error)
}
