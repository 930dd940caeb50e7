package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/server/models"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/entities"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// EntityService owns the entity write rules: a create lands at version 1, an
// accepted update or delete must name the current version exactly, and every
// accepted write raises the version by one.
type EntityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewEntityService(db *sql.DB, m repomanager.RepositoryManager) *EntityService {
	return &EntityService{db: db, repomanager: m}
}

// Create stores a new entity authored by curatorID. A duplicate entity_id
// yields ErrAlreadyExists with nothing written.
func (s *EntityService) Create(ctx context.Context, curatorID string, doc *models.Entity) (*models.Entity, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	now := timeNow().UTC()
	e := *doc
	e.ID = uuid.NewString()
	e.Version = 1
	if e.CreatedBy == "" {
		e.CreatedBy = curatorID
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	repo := s.repomanager.Entities(s.db)
	if err := repo.Add(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *EntityService) Get(ctx context.Context, entityID string) (*models.Entity, error) {
	return s.repomanager.Entities(s.db).GetByEntityID(ctx, entityID)
}

// Update replaces the mutable fields of an entity. expectedVersion must equal
// the stored version; otherwise nothing is written and the returned
// ConflictError carries the current server document.
func (s *EntityService) Update(ctx context.Context, doc *models.Entity, expectedVersion int64) (*models.Entity, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Entities(s.db)
	cur, err := repo.GetByEntityID(ctx, doc.EntityID)
	if err != nil {
		return nil, err
	}
	if cur.Version != expectedVersion {
		return nil, &ConflictError{ServerVersion: cur.Version, Document: cur}
	}

	e := *cur
	e.Type = doc.Type
	e.Name = doc.Name
	e.Status = doc.Status
	e.Data = doc.Data
	e.Metadata = doc.Metadata
	e.Version = expectedVersion + 1
	e.UpdatedAt = timeNow().UTC()

	if err := repo.Update(ctx, &e, expectedVersion); err != nil {
		return nil, s.mapWriteErr(ctx, err, doc.EntityID)
	}
	return &e, nil
}

// Delete removes an entity and its curations. The same version rule applies
// as for Update.
func (s *EntityService) Delete(ctx context.Context, entityID string, expectedVersion int64) error {
	repo := s.repomanager.Entities(s.db)

	if err := repo.Delete(ctx, entityID, expectedVersion); err != nil {
		return s.mapWriteErr(ctx, err, entityID)
	}
	// PostgreSQL cascades this through the foreign key; the in-memory backend
	// needs it spelled out.
	if err := s.repomanager.Curations(s.db).DeleteByEntityID(ctx, entityID); err != nil {
		return fmt.Errorf("failed to delete curations of %s: %w", entityID, err)
	}
	return nil
}

func (s *EntityService) List(ctx context.Context, f entities.Filter) ([]*models.Entity, int, error) {
	return s.repomanager.Entities(s.db).List(ctx, f)
}

// mapWriteErr turns the repository's bare conflict signal into a ConflictError
// carrying the winning document.
func (s *EntityService) mapWriteErr(ctx context.Context, err error, entityID string) error {
	if !errors.Is(err, common.ErrVersionConflict) {
		return err
	}
	cur, getErr := s.repomanager.Entities(s.db).GetByEntityID(ctx, entityID)
	if getErr != nil {
		return err
	}
	return &ConflictError{ServerVersion: cur.Version, Document: cur}
}
