package service

import (
	"context"
	"regexp"
	"testing"

	"conjuntos-api/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var accessCodePattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

func newConjuntoServiceForTest() ConjuntoService {
	return NewConjuntoService(repository.NewMemoryConjuntosRepository(), zap.NewNop())
}

func TestGenerateAccessCodeFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := GenerateAccessCode()
		require.NoError(t, err)
		require.Regexp(t, accessCodePattern, code)
		seen[code] = true
	}
	// 100 draws from 36^10 codes should never repeat.
	require.Len(t, seen, 100)
}

func TestCreateConjuntoGeneratesCode(t *testing.T) {
	svc := newConjuntoServiceForTest()

	c, err := svc.Create(context.Background(), CreateConjuntoRequest{
		Name:    "Torres del Parque",
		Address: "Calle 26 #25-48",
		City:    "Bogota",
	})
	require.NoError(t, err)
	require.Regexp(t, accessCodePattern, c.AccessCode)

	found, err := svc.GetByAccessCode(context.Background(), c.AccessCode)
	require.NoError(t, err)
	require.Equal(t, c.ID, found.ID)
}

func TestCreateConjuntoRespectsExplicitCode(t *testing.T) {
	svc := newConjuntoServiceForTest()

	c, err := svc.Create(context.Background(), CreateConjuntoRequest{
		Name:       "Altos de la Colina",
		Address:    "Carrera 7 #12-30",
		City:       "Medellin",
		AccessCode: "CUSTOM0001",
	})
	require.NoError(t, err)
	require.Equal(t, "CUSTOM0001", c.AccessCode)
}

func TestCreateConjuntoDuplicateExplicitCode(t *testing.T) {
	svc := newConjuntoServiceForTest()

	_, err := svc.Create(context.Background(), CreateConjuntoRequest{
		Name:       "Altos de la Colina",
		Address:    "Carrera 7 #12-30",
		City:       "Medellin",
		AccessCode: "CUSTOM0001",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateConjuntoRequest{
		Name:       "Balcones del Rio",
		Address:    "Calle 10 #43-12",
		City:       "Medellin",
		AccessCode: "CUSTOM0001",
	})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestCreateConjuntoValidation(t *testing.T) {
	svc := newConjuntoServiceForTest()

	_, err := svc.Create(context.Background(), CreateConjuntoRequest{Name: "Sin Direccion"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestRegenerateAccessCodeInvalidatesOldCode(t *testing.T) {
	svc := newConjuntoServiceForTest()

	c, err := svc.Create(context.Background(), CreateConjuntoRequest{
		Name:    "Mirador de Suba",
		Address: "Calle 145 #91-19",
		City:    "Bogota",
	})
	require.NoError(t, err)
	oldCode := c.AccessCode

	newCode, err := svc.RegenerateAccessCode(context.Background(), c.ID)
	require.NoError(t, err)
	require.Regexp(t, accessCodePattern, newCode)
	require.NotEqual(t, oldCode, newCode)

	_, err = svc.GetByAccessCode(context.Background(), oldCode)
	require.ErrorIs(t, err, repository.ErrNotFound)

	found, err := svc.GetByAccessCode(context.Background(), newCode)
	require.NoError(t, err)
	require.Equal(t, c.ID, found.ID)
}

func TestUpdateConjuntoPartialMerge(t *testing.T) {
	svc := newConjuntoServiceForTest()

	c, err := svc.Create(context.Background(), CreateConjuntoRequest{
		Name:    "Prados del Norte",
		Address: "Av 19 #120-50",
		City:    "Cali",
	})
	require.NoError(t, err)

	newName := "Prados del Norte II"
	updated, err := svc.Update(context.Background(), c.ID, UpdateConjuntoRequest{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, newName, updated.Name)
	require.Equal(t, c.Address, updated.Address)
	require.Equal(t, c.AccessCode, updated.AccessCode)
}
