package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"conjuntos-api/internal/domain"
	"conjuntos-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// accessCodeAlphabet is the character set of conjunto access codes.
const accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxCodeAttempts bounds the uniqueness retry loop on code generation.
const maxCodeAttempts = 5

// ErrValidation marks a caller-input problem; handlers map it to 400.
var ErrValidation = errors.New("validation failed")

// ConjuntoService manages residential complexes and their access codes.
type ConjuntoService interface {
	Create(ctx context.Context, req CreateConjuntoRequest) (*domain.Conjunto, error)
	Get(ctx context.Context, id string) (*domain.Conjunto, error)
	GetByAccessCode(ctx context.Context, code string) (*domain.Conjunto, error)
	ListAll(ctx context.Context) ([]*domain.Conjunto, error)
	Update(ctx context.Context, id string, req UpdateConjuntoRequest) (*domain.Conjunto, error)
	// RegenerateAccessCode overwrites the stored code and returns the new
	// one; lookups by the previous code fail from then on.
	RegenerateAccessCode(ctx context.Context, id string) (string, error)
}

type conjuntoService struct {
	repo   repository.ConjuntosRepository
	logger *zap.Logger
}

func NewConjuntoService(repo repository.ConjuntosRepository, logger *zap.Logger) ConjuntoService {
	return &conjuntoService{repo: repo, logger: logger}
}

// CreateConjuntoRequest carries the fields of a new conjunto. AccessCode is
// optional; when empty the service generates one.
type CreateConjuntoRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	AccessCode string `json:"access_code"`
}

// UpdateConjuntoRequest is a partial-field merge patch.
type UpdateConjuntoRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	City    *string `json:"city"`
}

func (s *conjuntoService) Create(ctx context.Context, req CreateConjuntoRequest) (*domain.Conjunto, error) {
	if req.Name == "" || req.Address == "" || req.City == "" {
		return nil, fmt.Errorf("%w: name, address and city are required", ErrValidation)
	}

	code := req.AccessCode
	if code == "" {
		generated, err := s.generateUniqueAccessCode(ctx)
		if err != nil {
			return nil, err
		}
		code = generated
	}

	c := &domain.Conjunto{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Address:    req.Address,
		City:       req.City,
		AccessCode: code,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Conjunto created",
		zap.String("conjunto_id", c.ID),
		zap.String("name", c.Name),
		zap.String("city", c.City),
	)
	return c, nil
}

func (s *conjuntoService) Get(ctx context.Context, id string) (*domain.Conjunto, error) {
	return s.repo.Get(ctx, id)
}

func (s *conjuntoService) GetByAccessCode(ctx context.Context, code string) (*domain.Conjunto, error) {
	return s.repo.GetByAccessCode(ctx, code)
}

func (s *conjuntoService) ListAll(ctx context.Context) ([]*domain.Conjunto, error) {
	return s.repo.List(ctx)
}

func (s *conjuntoService) Update(ctx context.Context, id string, req UpdateConjuntoRequest) (*domain.Conjunto, error) {
	return s.repo.Update(ctx, id, repository.ConjuntoPatch{
		Name:    req.Name,
		Address: req.Address,
		City:    req.City,
	})
}

func (s *conjuntoService) RegenerateAccessCode(ctx context.Context, id string) (string, error) {
	code, err := s.generateUniqueAccessCode(ctx)
	if err != nil {
		return "", err
	}
	if _, err := s.repo.Update(ctx, id, repository.ConjuntoPatch{AccessCode: &code}); err != nil {
		return "", err
	}

	s.logger.Info("Conjunto access code regenerated", zap.String("conjunto_id", id))
	return code, nil
}

// generateUniqueAccessCode draws random codes until one is free. Collisions
// are astronomically unlikely with 36^10 codes, so a handful of attempts is
// plenty; the check also guards against operator-entered explicit codes.
func (s *conjuntoService) generateUniqueAccessCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateAccessCode()
		if err != nil {
			return "", err
		}
		_, err = s.repo.GetByAccessCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
		s.logger.Warn("Access code collision, retrying", zap.Int("attempt", attempt+1))
	}
	return "", fmt.Errorf("failed to generate a unique access code after %d attempts", maxCodeAttempts)
}

// GenerateAccessCode returns a random 10-character code from [A-Z0-9].
func GenerateAccessCode() (string, error) {
	b := make([]byte, domain.AccessCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i := range b {
		b[i] = accessCodeAlphabet[int(b[i])%len(accessCodeAlphabet)]
	}
	return string(b), nil
}
