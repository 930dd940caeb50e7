package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/server/auth"
	"github.com/dmitrijs2005/placekeeper/internal/server/config"
	"github.com/dmitrijs2005/placekeeper/internal/server/models"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Session is a freshly authenticated curator plus their token.
type Session struct {
	Token   string
	Curator *models.Curator
}

// CuratorService handles registration and login.
type CuratorService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
}

func NewCuratorService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *CuratorService {
	return &CuratorService{db: db, repomanager: m, config: cfg}
}

// Register creates an account and logs it in. A taken login yields
// ErrAlreadyExists.
func (s *CuratorService) Register(ctx context.Context, login, name, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, fmt.Errorf("%w: login and password are required", common.ErrValidation)
	}
	if name == "" {
		name = login
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	curator := &models.Curator{
		ID:           uuid.NewString(),
		Login:        login,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    timeNow().UTC(),
	}
	if err := s.repomanager.Curators(s.db).Add(ctx, curator); err != nil {
		return nil, err
	}
	return s.newSession(curator)
}

// Login verifies the credentials. A missing account and a wrong password are
// indistinguishable to the caller.
func (s *CuratorService) Login(ctx context.Context, login, password string) (*Session, error) {
	curator, err := s.repomanager.Curators(s.db).GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(curator.PasswordHash), []byte(password)) != nil {
		return nil, common.ErrUnauthorized
	}
	return s.newSession(curator)
}

func (s *CuratorService) newSession(curator *models.Curator) (*Session, error) {
	token, err := auth.GenerateToken(s.config.SecretKey, curator.ID, s.config.AccessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Curator: curator}, nil
}
