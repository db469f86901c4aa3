package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"conjuntos-api/internal/domain"
)

// MemoryUsersRepository is the in-memory twin of the postgres implementation.
type MemoryUsersRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{users: map[string]domain.User{}}
}

var _ UsersRepository = (*MemoryUsersRepository)(nil)

func (r *MemoryUsersRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return ErrAlreadyExists
	}
	r.users[u.ID] = cloneUser(*u)
	return nil
}

func (r *MemoryUsersRepository) Get(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (r *MemoryUsersRepository) GetByAuthID(_ context.Context, authID string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.AuthID == authID })
}

func (r *MemoryUsersRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *MemoryUsersRepository) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUsersRepository) Update(_ context.Context, id string, patch UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.ConjuntoID.Set {
		u.ConjuntoID = copyString(patch.ConjuntoID.Value)
	}
	if patch.Unit.Set {
		u.Unit = copyString(patch.Unit.Value)
	}
	u.UpdatedAt = time.Now()
	r.users[id] = u
	out := cloneUser(u)
	return &out, nil
}

func (r *MemoryUsersRepository) ListByConjunto(_ context.Context, conjuntoID string) ([]*domain.User, error) {
	return r.list(func(u domain.User) bool {
		return u.ConjuntoID != nil && *u.ConjuntoID == conjuntoID
	})
}

func (r *MemoryUsersRepository) ListAll(_ context.Context) ([]*domain.User, error) {
	return r.list(func(domain.User) bool { return true })
}

func (r *MemoryUsersRepository) list(match func(domain.User) bool) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.User{}
	for _, u := range r.users {
		if match(u) {
			uu := cloneUser(u)
			out = append(out, &uu)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryUsersRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func cloneUser(u domain.User) domain.User {
	u.ConjuntoID = copyString(u.ConjuntoID)
	u.Unit = copyString(u.Unit)
	return u
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
