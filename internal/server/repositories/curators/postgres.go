package curators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/dbx"
	"github.com/dmitrijs2005/placekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, c *models.Curator) error {
	query :=
		`INSERT INTO curators (id, login, name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (login) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, c.ID, c.Login, c.Name, c.PasswordHash, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if rows == 0 {
		return common.ErrAlreadyExists
	}
	return nil
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*models.Curator, error) {
	query :=
		`SELECT id, login, name, password_hash, created_at FROM curators
		 WHERE login = $1
		 `

	return scanCurator(r.db.QueryRowContext(ctx, query, login))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Curator, error) {
	query :=
		`SELECT id, login, name, password_hash, created_at FROM curators
		 WHERE id = $1
		 `

	return scanCurator(r.db.QueryRowContext(ctx, query, id))
}

func scanCurator(row dbx.RowScanner) (*models.Curator, error) {
	var c models.Curator
	err := row.Scan(&c.ID, &c.Login, &c.Name, &c.PasswordHash, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
