package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conjuntos-api/internal/domain"
	"conjuntos-api/internal/repository"

	"go.uber.org/zap"
)

// UserService manages platform accounts. User records are keyed by the
// external auth identifier and created lazily after the first login.
type UserService interface {
	Create(ctx context.Context, req CreateUserRequest) (*domain.User, error)
	// Sync is the idempotent counterpart of Create: it returns the existing
	// record for the verified identity, creating one from the token claims
	// when missing. Replaces the client-driven find-or-create dance.
	Sync(ctx context.Context, authID, email, displayName string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByAuthID(ctx context.Context, authID string) (*domain.User, error)
	Update(ctx context.Context, id string, req UpdateUserRequest) (*domain.User, error)
	ListByConjunto(ctx context.Context, conjuntoID string) ([]*domain.User, error)
	ListAll(ctx context.Context) ([]*domain.User, error)
	// AssignAdmin grants the admin role by email, moving the user to the
	// given conjunto. The unit is cleared when the conjunto changes.
	AssignAdmin(ctx context.Context, req AssignAdminRequest) (*AssignAdminResult, error)
	// Delete hard-deletes the user and returns the deleted record.
	Delete(ctx context.Context, id string) (*domain.User, error)
}

type userService struct {
	repo   repository.UsersRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UsersRepository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// CreateUserRequest carries the fields of a new account. Role defaults to
// resident; ConjuntoID and Unit are optional.
type CreateUserRequest struct {
	AuthID      string      `json:"auth_id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	ConjuntoID  *string     `json:"conjunto_id"`
	Unit        *string     `json:"unit"`
	Role        domain.Role `json:"role"`
}

// UpdateUserRequest is a partial-field merge patch. Absent fields never
// clobber stored values; ConjuntoID and Unit distinguish absent from null.
type UpdateUserRequest struct {
	DisplayName *string
	Role        *domain.Role
	ConjuntoID  repository.OptionalString
	Unit        repository.OptionalString
}

// AssignAdminRequest grants admin over a conjunto to the user with the
// given email.
type AssignAdminRequest struct {
	Email      string `json:"email"`
	ConjuntoID string `json:"conjunto_id"`
}

// UserRoleState is the {role, conjunto, unit} triple reported before and
// after an admin grant.
type UserRoleState struct {
	Role       domain.Role `json:"role"`
	ConjuntoID *string     `json:"conjunto_id"`
	Unit       *string     `json:"unit"`
}

// AssignAdminResult reports the grant outcome with a before/after diff.
type AssignAdminResult struct {
	User          *domain.User  `json:"user"`
	PreviousState UserRoleState `json:"previous_state"`
	NewState      UserRoleState `json:"new_state"`
	Changes       []string      `json:"changes"`
}

func (s *userService) Create(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if req.AuthID == "" || req.Email == "" || req.DisplayName == "" {
		return nil, fmt.Errorf("%w: auth_id, email and display_name are required", ErrValidation)
	}
	role := req.Role
	if role == "" {
		role = domain.RoleResident
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", ErrValidation, req.Role)
	}

	now := time.Now()
	u := &domain.User{
		ID:          req.AuthID,
		AuthID:      req.AuthID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		ConjuntoID:  req.ConjuntoID,
		Unit:        req.Unit,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("user_id", u.ID),
		zap.String("email", u.Email),
		zap.String("role", string(u.Role)),
	)
	return u, nil
}

func (s *userService) Sync(ctx context.Context, authID, email, displayName string) (*domain.User, error) {
	u, err := s.repo.GetByAuthID(ctx, authID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if displayName == "" {
		displayName = email
	}
	u, err = s.Create(ctx, CreateUserRequest{
		AuthID:      authID,
		Email:       email,
		DisplayName: displayName,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		// Lost a race with a concurrent sync; the record exists now.
		return s.repo.GetByAuthID(ctx, authID)
	}
	return u, err
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *userService) GetByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	return s.repo.GetByAuthID(ctx, authID)
}

func (s *userService) Update(ctx context.Context, id string, req UpdateUserRequest) (*domain.User, error) {
	if req.Role != nil && !req.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", ErrValidation, *req.Role)
	}
	return s.repo.Update(ctx, id, repository.UserPatch{
		DisplayName: req.DisplayName,
		Role:        req.Role,
		ConjuntoID:  req.ConjuntoID,
		Unit:        req.Unit,
	})
}

func (s *userService) ListByConjunto(ctx context.Context, conjuntoID string) ([]*domain.User, error) {
	return s.repo.ListByConjunto(ctx, conjuntoID)
}

func (s *userService) ListAll(ctx context.Context) ([]*domain.User, error) {
	return s.repo.ListAll(ctx)
}

func (s *userService) AssignAdmin(ctx context.Context, req AssignAdminRequest) (*AssignAdminResult, error) {
	if req.Email == "" || req.ConjuntoID == "" {
		return nil, fmt.Errorf("%w: email and conjunto_id are required", ErrValidation)
	}

	target, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	previous := UserRoleState{
		Role:       target.Role,
		ConjuntoID: target.ConjuntoID,
		Unit:       target.Unit,
	}
	conjuntoChanged := target.ConjuntoID != nil && *target.ConjuntoID != req.ConjuntoID

	role := domain.RoleAdmin
	patch := repository.UserPatch{
		Role:       &role,
		ConjuntoID: repository.SetString(req.ConjuntoID),
	}
	if conjuntoChanged {
		patch.Unit = repository.SetNull()
	}

	updated, err := s.repo.Update(ctx, target.ID, patch)
	if err != nil {
		return nil, err
	}

	changes := []string{}
	if previous.Role != domain.RoleAdmin {
		changes = append(changes, fmt.Sprintf("role changed from %q to %q", previous.Role, domain.RoleAdmin))
	} else {
		changes = append(changes, "role kept as \"admin\"")
	}
	switch {
	case conjuntoChanged:
		changes = append(changes, fmt.Sprintf("conjunto changed (previous: %s, new: %s)", *previous.ConjuntoID, req.ConjuntoID))
	case previous.ConjuntoID == nil:
		changes = append(changes, "conjunto assigned for the first time")
	default:
		changes = append(changes, "conjunto kept")
	}
	if conjuntoChanged && previous.Unit != nil {
		changes = append(changes, "unit cleared due to conjunto change")
	}

	s.logger.Info("Admin role assigned",
		zap.String("user_id", updated.ID),
		zap.String("email", updated.Email),
		zap.String("conjunto_id", req.ConjuntoID),
		zap.Bool("conjunto_changed", conjuntoChanged),
	)

	return &AssignAdminResult{
		User:          updated,
		PreviousState: previous,
		NewState: UserRoleState{
			Role:       updated.Role,
			ConjuntoID: updated.ConjuntoID,
			Unit:       updated.Unit,
		},
		Changes: changes,
	}, nil
}

func (s *userService) Delete(ctx context.Context, id string) (*domain.User, error) {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("User deleted",
		zap.String("user_id", target.ID),
		zap.String("email", target.Email),
		zap.String("role", string(target.Role)),
	)
	return target, nil
}
