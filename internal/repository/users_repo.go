package repository

import (
	"context"

	"conjuntos-api/internal/domain"
)

// UsersRepository is the data-access contract for users. The id equals the
// external auth identifier, so Create is keyed by it and rejects duplicates.
type UsersRepository interface {
	// Create persists a new user, or returns ErrAlreadyExists.
	Create(ctx context.Context, u *domain.User) error

	// Get returns the user by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.User, error)

	// GetByAuthID returns the user by external auth id, or ErrNotFound.
	GetByAuthID(ctx context.Context, authID string) (*domain.User, error)

	// GetByEmail returns the user by email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update applies a partial-field merge patch (per-field presence, so an
	// absent field never clobbers the stored value), touches updated_at and
	// returns the updated user, or ErrNotFound.
	Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error)

	// ListByConjunto returns the members of a conjunto.
	ListByConjunto(ctx context.Context, conjuntoID string) ([]*domain.User, error)

	// ListAll returns every user.
	ListAll(ctx context.Context) ([]*domain.User, error)

	// Delete hard-deletes the user, or returns ErrNotFound. Reports and
	// comments authored by the user are left in place.
	Delete(ctx context.Context, id string) error
}

// UserPatch is a partial update. ConjuntoID and Unit are tri-state because
// both columns are nullable and must be clearable.
type UserPatch struct {
	DisplayName *string
	Role        *domain.Role
	ConjuntoID  OptionalString
	Unit        OptionalString
}
