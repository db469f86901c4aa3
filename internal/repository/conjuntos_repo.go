package repository

import (
	"context"

	"conjuntos-api/internal/domain"
)

// ConjuntosRepository is the data-access contract for conjuntos.
// Access-code uniqueness is checked by the service layer before insert;
// the repository performs no uniqueness enforcement of its own.
type ConjuntosRepository interface {
	// Create persists a new conjunto. The caller assigns the id.
	Create(ctx context.Context, c *domain.Conjunto) error

	// Get returns the conjunto by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Conjunto, error)

	// GetByAccessCode returns the conjunto holding the given access code,
	// or ErrNotFound. Used by the public self-service join flow.
	GetByAccessCode(ctx context.Context, code string) (*domain.Conjunto, error)

	// List returns every conjunto.
	List(ctx context.Context) ([]*domain.Conjunto, error)

	// Update applies a partial-field merge patch and returns the updated
	// conjunto, or ErrNotFound.
	Update(ctx context.Context, id string, patch ConjuntoPatch) (*domain.Conjunto, error)
}

// ConjuntoPatch is a partial update; nil fields are left untouched.
type ConjuntoPatch struct {
	Name       *string
	Address    *string
	City       *string
	AccessCode *string
}
