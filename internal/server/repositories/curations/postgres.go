package curations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

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

func (r *PostgresRepository) Add(ctx context.Context, c *models.Curation) error {
	concepts, notes, err := marshalDocFields(c)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO curations (id, curation_id, entity_id, curator_id, curator_name, concepts, notes, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (curation_id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.CurationID, c.EntityID, c.Curator.ID, c.Curator.Name,
		concepts, notes, c.Version, c.CreatedAt, c.UpdatedAt)
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

func (r *PostgresRepository) GetByCurationID(ctx context.Context, curationID string) (*models.Curation, error) {
	query :=
		`SELECT id, curation_id, entity_id, curator_id, curator_name, concepts, notes, version, created_at, updated_at
		 FROM curations
		 WHERE curation_id = $1
		 `

	return scanCuration(r.db.QueryRowContext(ctx, query, curationID))
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Curation, expectedVersion int64) error {
	concepts, notes, err := marshalDocFields(c)
	if err != nil {
		return err
	}

	query :=
		`UPDATE curations
		 SET concepts = $1, notes = $2, version = $3, updated_at = $4
		 WHERE curation_id = $5 AND version = $6
		 `

	res, err := r.db.ExecContext(ctx, query,
		concepts, notes, c.Version, c.UpdatedAt, c.CurationID, expectedVersion)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return guardResult(ctx, r.db, res, c.CurationID)
}

func (r *PostgresRepository) Delete(ctx context.Context, curationID string, expectedVersion int64) error {
	query := `DELETE FROM curations WHERE curation_id = $1 AND version = $2`

	res, err := r.db.ExecContext(ctx, query, curationID, expectedVersion)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return guardResult(ctx, r.db, res, curationID)
}

func (r *PostgresRepository) DeleteByEntityID(ctx context.Context, entityID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM curations WHERE entity_id = $1`, entityID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*models.Curation, int, error) {
	where, args := listWhere(f)

	var total int
	countQuery := `SELECT count(*) FROM curations` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	query :=
		`SELECT id, curation_id, entity_id, curator_id, curator_name, concepts, notes, version, created_at, updated_at
		 FROM curations` + where +
			` ORDER BY updated_at, curation_id
		 LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, pageLimit(f.Limit), f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []*models.Curation
	for rows.Next() {
		c, err := scanCuration(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return items, total, nil
}

func guardResult(ctx context.Context, db dbx.DBTX, res sql.Result, curationID string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var one int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM curations WHERE curation_id = $1`, curationID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return common.ErrVersionConflict
}

func listWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if f.EntityID != "" {
		add("entity_id = ?", f.EntityID)
	}
	if f.CuratorID != "" {
		add("curator_id = ?", f.CuratorID)
	}
	if !f.From.IsZero() {
		add("updated_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		add("updated_at <= ?", f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return common.DefaultListLimit
	}
	if limit > common.MaxListLimit {
		return common.MaxListLimit
	}
	return limit
}

func marshalDocFields(c *models.Curation) ([]byte, []byte, error) {
	concepts, err := json.Marshal(c.Concepts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode concepts: %w", err)
	}
	notes, err := json.Marshal(c.Notes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode notes: %w", err)
	}
	return concepts, notes, nil
}

func scanCuration(row dbx.RowScanner) (*models.Curation, error) {
	var c models.Curation
	var concepts, notes []byte

	err := row.Scan(&c.ID, &c.CurationID, &c.EntityID, &c.Curator.ID, &c.Curator.Name,
		&concepts, &notes, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(concepts, &c.Concepts); err != nil {
		return nil, fmt.Errorf("failed to decode concepts: %w", err)
	}
	if err := json.Unmarshal(notes, &c.Notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
