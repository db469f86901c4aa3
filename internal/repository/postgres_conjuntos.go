package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"conjuntos-api/internal/domain"

	"github.com/lib/pq"
)

// PostgresConjuntosRepository implements ConjuntosRepository over postgres.
type PostgresConjuntosRepository struct {
	db *sql.DB
}

func NewPostgresConjuntosRepository(db *sql.DB) *PostgresConjuntosRepository {
	return &PostgresConjuntosRepository{db: db}
}

var _ ConjuntosRepository = (*PostgresConjuntosRepository)(nil)

const conjuntoColumns = `id::text, name, address, city, access_code, created_at`

func scanConjunto(row interface{ Scan(...any) error }) (*domain.Conjunto, error) {
	var c domain.Conjunto
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.City, &c.AccessCode, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresConjuntosRepository) Create(ctx context.Context, c *domain.Conjunto) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conjuntos (id, name, address, city, access_code, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, c.Address, c.City, c.AccessCode, c.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create conjunto: %w", err)
	}
	return nil
}

func (r *PostgresConjuntosRepository) Get(ctx context.Context, id string) (*domain.Conjunto, error) {
	if !validUUID(id) {
		return nil, ErrNotFound
	}
	c, err := scanConjunto(r.db.QueryRowContext(ctx,
		`SELECT `+conjuntoColumns+` FROM conjuntos WHERE id = $1::uuid`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conjunto: %w", err)
	}
	return c, nil
}

func (r *PostgresConjuntosRepository) GetByAccessCode(ctx context.Context, code string) (*domain.Conjunto, error) {
	if code == "" {
		return nil, fmt.Errorf("access code is required")
	}
	c, err := scanConjunto(r.db.QueryRowContext(ctx,
		`SELECT `+conjuntoColumns+` FROM conjuntos WHERE access_code = $1 LIMIT 1`, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conjunto by access code: %w", err)
	}
	return c, nil
}

func (r *PostgresConjuntosRepository) List(ctx context.Context) ([]*domain.Conjunto, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+conjuntoColumns+` FROM conjuntos ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conjuntos: %w", err)
	}
	defer rows.Close()

	out := []*domain.Conjunto{}
	for rows.Next() {
		c, err := scanConjunto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conjunto: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conjuntos: %w", err)
	}
	return out, nil
}

func (r *PostgresConjuntosRepository) Update(ctx context.Context, id string, patch ConjuntoPatch) (*domain.Conjunto, error) {
	if !validUUID(id) {
		return nil, ErrNotFound
	}
	set := []string{}
	args := []any{id}
	argIdx := 2

	addSet := func(col string, v any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}
	if patch.Name != nil {
		addSet("name", *patch.Name)
	}
	if patch.Address != nil {
		addSet("address", *patch.Address)
	}
	if patch.City != nil {
		addSet("city", *patch.City)
	}
	if patch.AccessCode != nil {
		addSet("access_code", *patch.AccessCode)
	}
	if len(set) == 0 {
		return r.Get(ctx, id)
	}

	query := fmt.Sprintf(
		`UPDATE conjuntos SET %s WHERE id = $1::uuid RETURNING `+conjuntoColumns,
		strings.Join(set, ", "),
	)
	c, err := scanConjunto(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update conjunto: %w", err)
	}
	return c, nil
}
