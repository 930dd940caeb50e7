package entities

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

func (r *PostgresRepository) Add(ctx context.Context, e *models.Entity) error {
	data, metadata, err := marshalDocFields(e)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO entities (id, entity_id, type, name, status, data, metadata, version, created_at, updated_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (entity_id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query,
		e.ID, e.EntityID, e.Type, e.Name, e.Status, data, metadata,
		e.Version, e.CreatedAt, e.UpdatedAt, e.CreatedBy)
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

func (r *PostgresRepository) GetByEntityID(ctx context.Context, entityID string) (*models.Entity, error) {
	query :=
		`SELECT id, entity_id, type, name, status, data, metadata, version, created_at, updated_at, created_by
		 FROM entities
		 WHERE entity_id = $1
		 `

	return scanEntity(r.db.QueryRowContext(ctx, query, entityID))
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.Entity, expectedVersion int64) error {
	data, metadata, err := marshalDocFields(e)
	if err != nil {
		return err
	}

	query :=
		`UPDATE entities
		 SET type = $1, name = $2, status = $3, data = $4, metadata = $5, version = $6, updated_at = $7
		 WHERE entity_id = $8 AND version = $9
		 `

	res, err := r.db.ExecContext(ctx, query,
		e.Type, e.Name, e.Status, data, metadata, e.Version, e.UpdatedAt,
		e.EntityID, expectedVersion)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return guardResult(ctx, r.db, res, e.EntityID)
}

func (r *PostgresRepository) Delete(ctx context.Context, entityID string, expectedVersion int64) error {
	query := `DELETE FROM entities WHERE entity_id = $1 AND version = $2`

	res, err := r.db.ExecContext(ctx, query, entityID, expectedVersion)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return guardResult(ctx, r.db, res, entityID)
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*models.Entity, int, error) {
	where, args := listWhere(f)

	var total int
	countQuery := `SELECT count(*) FROM entities` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	query :=
		`SELECT id, entity_id, type, name, status, data, metadata, version, created_at, updated_at, created_by
		 FROM entities` + where +
			` ORDER BY updated_at, entity_id
		 LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, pageLimit(f.Limit), f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []*models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return items, total, nil
}

// guardResult distinguishes a stale version from a missing row after a
// version-guarded write touched nothing.
func guardResult(ctx context.Context, db dbx.DBTX, res sql.Result, entityID string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var one int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM entities WHERE entity_id = $1`, entityID).Scan(&one)
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

	if f.Type != "" {
		add("type = ?", f.Type)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.CreatedBy != "" {
		add("created_by = ?", f.CreatedBy)
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

func marshalDocFields(e *models.Entity) ([]byte, []byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode data: %w", err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, metadata, nil
}

func scanEntity(row dbx.RowScanner) (*models.Entity, error) {
	var e models.Entity
	var data, metadata []byte

	err := row.Scan(&e.ID, &e.EntityID, &e.Type, &e.Name, &e.Status, &data, &metadata,
		&e.Version, &e.CreatedAt, &e.UpdatedAt, &e.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(data, &e.Data); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}
