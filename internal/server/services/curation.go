package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/server/models"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/curations"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// CurationService applies the same optimistic-locking rules as
// EntityService, plus the referential rule that a curation may only be
// created against an existing entity.
type CurationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewCurationService(db *sql.DB, m repomanager.RepositoryManager) *CurationService {
	return &CurationService{db: db, repomanager: m}
}

// Create stores a new curation. A reference to an unknown entity is rejected
// before anything is written.
func (s *CurationService) Create(ctx context.Context, curatorID string, doc *models.Curation) (*models.Curation, error) {
	now := timeNow().UTC()
	c := *doc
	if c.Curator.ID == "" {
		c.Curator.ID = curatorID
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Entities(s.db).GetByEntityID(ctx, c.EntityID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrUnknownEntity, c.EntityID)
		}
		return nil, err
	}

	// The stored display name may be stale on the wire; the account is the
	// source of truth.
	if curator, err := s.repomanager.Curators(s.db).GetByID(ctx, c.Curator.ID); err == nil {
		c.Curator.Name = curator.Name
	}

	c.ID = uuid.NewString()
	c.Version = 1
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if err := s.repomanager.Curations(s.db).Add(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CurationService) Get(ctx context.Context, curationID string) (*models.Curation, error) {
	return s.repomanager.Curations(s.db).GetByCurationID(ctx, curationID)
}

// Update replaces the concepts and notes of a curation under the version
// rule. The curator and entity references are immutable.
func (s *CurationService) Update(ctx context.Context, doc *models.Curation, expectedVersion int64) (*models.Curation, error) {
	repo := s.repomanager.Curations(s.db)
	cur, err := repo.GetByCurationID(ctx, doc.CurationID)
	if err != nil {
		return nil, err
	}
	if cur.Version != expectedVersion {
		return nil, &ConflictError{ServerVersion: cur.Version, Document: cur}
	}

	c := *cur
	c.Concepts = doc.Concepts
	c.Notes = doc.Notes
	c.Version = expectedVersion + 1
	c.UpdatedAt = timeNow().UTC()

	if err := repo.Update(ctx, &c, expectedVersion); err != nil {
		return nil, s.mapWriteErr(ctx, err, doc.CurationID)
	}
	return &c, nil
}

func (s *CurationService) Delete(ctx context.Context, curationID string, expectedVersion int64) error {
	if err := s.repomanager.Curations(s.db).Delete(ctx, curationID, expectedVersion); err != nil {
		return s.mapWriteErr(ctx, err, curationID)
	}
	return nil
}

func (s *CurationService) List(ctx context.Context, f curations.Filter) ([]*models.Curation, int, error) {
	return s.repomanager.Curations(s.db).List(ctx, f)
}

func (s *CurationService) mapWriteErr(ctx context.Context, err error, curationID string) error {
	if !errors.Is(err, common.ErrVersionConflict) {
		return err
	}
	cur, getErr := s.repomanager.Curations(s.db).GetByCurationID(ctx, curationID)
	if getErr != nil {
		return err
	}
	return &ConflictError{ServerVersion: cur.Version, Document: cur}
}
