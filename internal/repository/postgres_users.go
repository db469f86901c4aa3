package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"conjuntos-api/internal/domain"

	"github.com/lib/pq"
)

// PostgresUsersRepository implements UsersRepository over postgres.
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `id, auth_id, email, display_name, conjunto_id::text, unit, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	var conjuntoID, unit sql.NullString
	err := row.Scan(&u.ID, &u.AuthID, &u.Email, &u.DisplayName, &conjuntoID, &unit, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if conjuntoID.Valid {
		u.ConjuntoID = &conjuntoID.String
	}
	if unit.Valid {
		u.Unit = &unit.String
	}
	return &u, nil
}

func (r *PostgresUsersRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, auth_id, email, display_name, conjunto_id, unit, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5::uuid, $6, $7, $8, $9)`,
		u.ID, u.AuthID, u.Email, u.DisplayName, nullString(u.ConjuntoID), nullString(u.Unit), u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUsersRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *PostgresUsersRepository) GetByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	return r.getBy(ctx, "auth_id", authID)
}

func (r *PostgresUsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *PostgresUsersRepository) getBy(ctx context.Context, col, value string) (*domain.User, error) {
	if value == "" {
		return nil, fmt.Errorf("%s is required", col)
	}
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+col+` = $1 LIMIT 1`, value))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", col, err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}
	argIdx := 2

	addSet := func(col string, v any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}
	if patch.DisplayName != nil {
		addSet("display_name", *patch.DisplayName)
	}
	if patch.Role != nil {
		addSet("role", string(*patch.Role))
	}
	if patch.ConjuntoID.Set {
		addSet("conjunto_id", nullString(patch.ConjuntoID.Value))
	}
	if patch.Unit.Set {
		addSet("unit", nullString(patch.Unit.Value))
	}

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $1 RETURNING `+userColumns,
		strings.Join(set, ", "),
	)
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) ListByConjunto(ctx context.Context, conjuntoID string) ([]*domain.User, error) {
	if !validUUID(conjuntoID) {
		return []*domain.User{}, nil
	}
	return r.list(ctx,
		`SELECT `+userColumns+` FROM users WHERE conjunto_id = $1::uuid ORDER BY created_at`, conjuntoID)
}

func (r *PostgresUsersRepository) ListAll(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
}

func (r *PostgresUsersRepository) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return out, nil
}

func (r *PostgresUsersRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
