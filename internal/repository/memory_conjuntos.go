package repository

import (
	"context"
	"sort"
	"sync"

	"conjuntos-api/internal/domain"
)

// MemoryConjuntosRepository is the in-memory twin of the postgres
// implementation, used in tests and when the DB is disabled.
type MemoryConjuntosRepository struct {
	mu        sync.RWMutex
	conjuntos map[string]domain.Conjunto
}

func NewMemoryConjuntosRepository() *MemoryConjuntosRepository {
	return &MemoryConjuntosRepository{conjuntos: map[string]domain.Conjunto{}}
}

var _ ConjuntosRepository = (*MemoryConjuntosRepository)(nil)

func (r *MemoryConjuntosRepository) Create(_ context.Context, c *domain.Conjunto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conjuntos[c.ID]; ok {
		return ErrAlreadyExists
	}
	for _, existing := range r.conjuntos {
		// access_code carries a unique index in postgres.
		if existing.AccessCode == c.AccessCode {
			return ErrAlreadyExists
		}
	}
	r.conjuntos[c.ID] = *c
	return nil
}

func (r *MemoryConjuntosRepository) Get(_ context.Context, id string) (*domain.Conjunto, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conjuntos[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryConjuntosRepository) GetByAccessCode(_ context.Context, code string) (*domain.Conjunto, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conjuntos {
		if c.AccessCode == code {
			out := c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryConjuntosRepository) List(_ context.Context) ([]*domain.Conjunto, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Conjunto, 0, len(r.conjuntos))
	for _, c := range r.conjuntos {
		cc := c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryConjuntosRepository) Update(_ context.Context, id string, patch ConjuntoPatch) (*domain.Conjunto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conjuntos[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Address != nil {
		c.Address = *patch.Address
	}
	if patch.City != nil {
		c.City = *patch.City
	}
	if patch.AccessCode != nil {
		c.AccessCode = *patch.AccessCode
	}
	r.conjuntos[id] = c
	return &c, nil
}
