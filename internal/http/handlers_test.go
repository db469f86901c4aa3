package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"conjuntos-api/internal/auth"
	"conjuntos-api/internal/domain"
	"conjuntos-api/internal/repository"
	"conjuntos-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeVerifier maps bearer tokens to identities without a network call.
type fakeVerifier struct {
	identities map[string]auth.Identity
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	id, ok := f.identities[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &id, nil
}

type testEnv struct {
	router    *Router
	verifier  *fakeVerifier
	conjuntos service.ConjuntoService
	users     service.UserService
	reports   service.ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	conjuntos := service.NewConjuntoService(repository.NewMemoryConjuntosRepository(), logger)
	users := service.NewUserService(repository.NewMemoryUsersRepository(), logger)
	reports := service.NewReportService(repository.NewMemoryReportsRepository(), logger)

	verifier := &fakeVerifier{identities: map[string]auth.Identity{}}
	authmw := NewAuthMiddleware(verifier, users, logger)

	router := NewRouter(logger)
	router.RegisterConjuntoRoutes(NewConjuntoHandler(conjuntos, logger), authmw)
	router.RegisterUserRoutes(NewUserHandler(users, logger), authmw)
	router.RegisterReportRoutes(NewReportHandler(reports, logger), authmw)

	return &testEnv{
		router:    router,
		verifier:  verifier,
		conjuntos: conjuntos,
		users:     users,
		reports:   reports,
	}
}

// seedUser creates an account and registers a bearer token for it. The
// token equals "tok-" + authID.
func (e *testEnv) seedUser(t *testing.T, authID, email string, role domain.Role, conjuntoID *string) (*domain.User, string) {
	t.Helper()
	u, err := e.users.Create(context.Background(), service.CreateUserRequest{
		AuthID:      authID,
		Email:       email,
		DisplayName: email,
		Role:        role,
		ConjuntoID:  conjuntoID,
	})
	require.NoError(t, err)
	token := "tok-" + authID
	e.verifier.identities[token] = auth.Identity{AuthID: authID, Email: email}
	return u, token
}

func (e *testEnv) seedConjunto(t *testing.T, name string) *domain.Conjunto {
	t.Helper()
	c, err := e.conjuntos.Create(context.Background(), service.CreateConjuntoRequest{
		Name:    name,
		Address: "Calle 1 #2-3",
		City:    "Bogota",
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func dataAsMap(t *testing.T, env Envelope) map[string]any {
	t.Helper()
	m, ok := env.Data.(map[string]any)
	require.True(t, ok, "data is not an object: %v", env.Data)
	return m
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"timestamp"`)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/api/conjuntos", "/api/reports", "/api/users/me"} {
		rec := e.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := e.do(t, http.MethodGet, "/api/reports", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConjuntoByAccessCodeIsPublic(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedConjunto(t, "Torres del Parque")

	rec := e.do(t, http.MethodGet, "/api/conjuntos/code/"+c.AccessCode, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, c.ID, data["id"])

	rec = e.do(t, http.MethodGet, "/api/conjuntos/code/WRONGCODE1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConjuntosByRole(t *testing.T) {
	e := newTestEnv(t)
	c1 := e.seedConjunto(t, "Conjunto Uno")
	e.seedConjunto(t, "Conjunto Dos")

	_, superTok := e.seedUser(t, "sa", "sa@example.com", domain.RoleSuperAdmin, nil)
	_, adminTok := e.seedUser(t, "ad", "ad@example.com", domain.RoleAdmin, &c1.ID)
	_, resTok := e.seedUser(t, "re", "re@example.com", domain.RoleResident, &c1.ID)

	rec := e.do(t, http.MethodGet, "/api/conjuntos", superTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Count)
	assert.Equal(t, 2, *env.Count)

	rec = e.do(t, http.MethodGet, "/api/conjuntos", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)

	rec = e.do(t, http.MethodGet, "/api/conjuntos", resTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateConjuntoRequiresSuperAdmin(t *testing.T) {
	e := newTestEnv(t)
	_, adminTok := e.seedUser(t, "ad", "ad@example.com", domain.RoleAdmin, nil)
	_, superTok := e.seedUser(t, "sa", "sa@example.com", domain.RoleSuperAdmin, nil)

	body := map[string]string{"name": "Nuevo", "address": "Calle 9", "city": "Cali"}
	rec := e.do(t, http.MethodPost, "/api/conjuntos", adminTok, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/conjuntos", superTok, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Len(t, data["access_code"], 10)
}

func TestRegenerateCodeScopedToOwnConjunto(t *testing.T) {
	e := newTestEnv(t)
	c1 := e.seedConjunto(t, "Conjunto Uno")
	c2 := e.seedConjunto(t, "Conjunto Dos")
	_, adminTok := e.seedUser(t, "ad", "ad@example.com", domain.RoleAdmin, &c1.ID)

	rec := e.do(t, http.MethodPost, "/api/conjuntos/"+c2.ID+"/regenerate-code", adminTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/conjuntos/"+c1.ID+"/regenerate-code", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Len(t, data["access_code"], 10)
	assert.NotEqual(t, c1.AccessCode, data["access_code"])
}

func TestUserSyncIdempotent(t *testing.T) {
	e := newTestEnv(t)
	e.verifier.identities["tok-new"] = auth.Identity{AuthID: "new-user", Email: "new@example.com"}

	rec := e.do(t, http.MethodPost, "/api/users/sync", "tok-new", map[string]string{"display_name": "New User"})
	require.Equal(t, http.StatusOK, rec.Code)
	first := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, "new-user", first["id"])
	assert.Equal(t, string(domain.RoleResident), first["role"])

	rec = e.do(t, http.MethodPost, "/api/users/sync", "tok-new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, first["id"], second["id"])
}

func TestUsersMeWithoutRecordIs404(t *testing.T) {
	e := newTestEnv(t)
	e.verifier.identities["tok-ghost"] = auth.Identity{AuthID: "ghost", Email: "ghost@example.com"}

	rec := e.do(t, http.MethodGet, "/api/users/me", "tok-ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicUserCreateIgnoresRequestedRole(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"auth_id":      "sneaky",
		"email":        "sneaky@example.com",
		"display_name": "Sneaky",
		"role":         "super_admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, string(domain.RoleResident), data["role"])

	// Duplicate registration conflicts.
	rec = e.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"auth_id":      "sneaky",
		"email":        "sneaky@example.com",
		"display_name": "Sneaky",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteUserRules(t *testing.T) {
	e := newTestEnv(t)
	superUser, superTok := e.seedUser(t, "sa", "sa@example.com", domain.RoleSuperAdmin, nil)
	otherSuper, _ := e.seedUser(t, "sa2", "sa2@example.com", domain.RoleSuperAdmin, nil)
	resident, _ := e.seedUser(t, "re", "re@example.com", domain.RoleResident, nil)
	_, adminTok := e.seedUser(t, "ad", "ad@example.com", domain.RoleAdmin, nil)

	// Only super admins may delete.
	rec := e.do(t, http.MethodDelete, "/api/users/"+resident.ID, adminTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Never self.
	rec = e.do(t, http.MethodDelete, "/api/users/"+superUser.ID, superTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Never another super admin.
	rec = e.do(t, http.MethodDelete, "/api/users/"+otherSuper.ID, superTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/users/"+resident.ID, superTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, resident.Email, data["email"])

	rec = e.do(t, http.MethodDelete, "/api/users/"+resident.ID, superTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateUserRoleChangeRequiresSuperAdmin(t *testing.T) {
	e := newTestEnv(t)
	resident, resTok := e.seedUser(t, "re", "re@example.com", domain.RoleResident, nil)

	rec := e.do(t, http.MethodPut, "/api/users/"+resident.ID, resTok, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/users/"+resident.ID, resTok, map[string]string{"display_name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, "Renamed", data["display_name"])
}

func TestAssignAdminEndpoint(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedConjunto(t, "Conjunto Uno")
	_, superTok := e.seedUser(t, "sa", "sa@example.com", domain.RoleSuperAdmin, nil)
	e.seedUser(t, "re", "re@example.com", domain.RoleResident, nil)

	rec := e.do(t, http.MethodPost, "/api/users/assign-admin", superTok, map[string]string{
		"email":       "re@example.com",
		"conjunto_id": c.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	user, ok := data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(domain.RoleAdmin), user["role"])
	assert.NotEmpty(t, data["changes"])
}

func TestCreateReportForcesConjuntoAndStatus(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedConjunto(t, "Conjunto Uno")
	_, resTok := e.seedUser(t, "re", "re@example.com", domain.RoleResident, &c.ID)

	rec := e.do(t, http.MethodPost, "/api/reports", resTok, map[string]any{
		"title":       "Broken gate",
		"description": "Main gate does not close",
		"category":    "security",
		"conjunto_id": "someone-elses-conjunto",
		"status":      "resolved",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, c.ID, data["conjunto_id"])
	assert.Equal(t, string(domain.StatusOpen), data["status"])
}

func TestCreateReportWithoutConjuntoRejected(t *testing.T) {
	e := newTestEnv(t)
	_, resTok := e.seedUser(t, "re", "re@example.com", domain.RoleResident, nil)

	rec := e.do(t, http.MethodPost, "/api/reports", resTok, map[string]string{
		"title":       "Broken gate",
		"description": "Main gate does not close",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportCrossTenantAccessDenied(t *testing.T) {
	e := newTestEnv(t)
	c1 := e.seedConjunto(t, "Conjunto Uno")
	c2 := e.seedConjunto(t, "Conjunto Dos")
	author, _ := e.seedUser(t, "au", "au@example.com", domain.RoleResident, &c1.ID)
	_, outsiderTok := e.seedUser(t, "out", "out@example.com", domain.RoleResident, &c2.ID)
	_, superTok := e.seedUser(t, "sa", "sa@example.com", domain.RoleSuperAdmin, nil)

	rep, err := e.reports.Create(context.Background(), service.CreateReportRequest{
		ConjuntoID:   c1.ID,
		AuthorUserID: author.ID,
		Title:        "Leak",
		Description:  "Water leak in parking",
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/api/reports/"+rep.ID, outsiderTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/reports/"+rep.ID, superTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReportUpdateAdminTierOnly(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedConjunto(t, "Conjunto Uno")
	author, resTok := e.seedUser(t, "au", "au@example.com", domain.RoleResident, &c.ID)
	_, adminTok := e.seedUser(t, "ad", "ad@example.com", domain.RoleAdmin, &c.ID)

	rep, err := e.reports.Create(context.Background(), service.CreateReportRequest{
		ConjuntoID:   c.ID,
		AuthorUserID: author.ID,
		Title:        "Leak",
		Description:  "Water leak in parking",
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodPut, "/api/reports/"+rep.ID, resTok, map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/reports/"+rep.ID, adminTok, map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, string(domain.StatusResolved), data["status"])
}

func TestInternalCommentsHiddenFromResidents(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedConjunto(t, "Conjunto Uno")
	author, resTok := e.seedUser(t, "au", "au@example.com", domain.RoleResident, &c.ID)
	admin, adminTok := e.seedUser(t, "ad", "ad@example.com", domain.RoleAdmin, &c.ID)

	rep, err := e.reports.Create(context.Background(), service.CreateReportRequest{
		ConjuntoID:   c.ID,
		AuthorUserID: author.ID,
		Title:        "Leak",
		Description:  "Water leak in parking",
	})
	require.NoError(t, err)

	// A resident posting is_internal=true is demoted to a public comment.
	rec := e.do(t, http.MethodPost, "/api/reports/"+rep.ID+"/comments", resTok, map[string]any{
		"body":        "Please fix soon",
		"is_internal": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, false, data["is_internal"])

	_, err = e.reports.AddComment(context.Background(), rep.ID, admin.ID, "Vendor quoted 3 days", true)
	require.NoError(t, err)

	rec = e.do(t, http.MethodGet, "/api/reports/"+rep.ID, resTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := dataAsMap(t, decodeEnvelope(t, rec))
	comments, ok := detail["comments"].([]any)
	require.True(t, ok)
	assert.Len(t, comments, 1)

	rec = e.do(t, http.MethodGet, "/api/reports/"+rep.ID, adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail = dataAsMap(t, decodeEnvelope(t, rec))
	comments, ok = detail["comments"].([]any)
	require.True(t, ok)
	assert.Len(t, comments, 2)
}

func TestAnonymousReportHidesAuthorFromResidents(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedConjunto(t, "Conjunto Uno")
	author, authorTok := e.seedUser(t, "au", "au@example.com", domain.RoleResident, &c.ID)
	_, neighborTok := e.seedUser(t, "nb", "nb@example.com", domain.RoleResident, &c.ID)
	_, adminTok := e.seedUser(t, "ad", "ad@example.com", domain.RoleAdmin, &c.ID)

	rep, err := e.reports.Create(context.Background(), service.CreateReportRequest{
		ConjuntoID:   c.ID,
		AuthorUserID: author.ID,
		Title:        "Noise at night",
		Description:  "Loud parties on weekends",
		IsAnonymous:  true,
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/api/reports/"+rep.ID, neighborTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.NotContains(t, data, "author_user_id")

	// Admins and the author still see who filed it.
	rec = e.do(t, http.MethodGet, "/api/reports/"+rep.ID, adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data = dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, author.ID, data["author_user_id"])

	rec = e.do(t, http.MethodGet, "/api/reports/"+rep.ID, authorTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data = dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, author.ID, data["author_user_id"])
}

func TestStatisticsSuperAdminOnly(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedConjunto(t, "Conjunto Uno")
	author, _ := e.seedUser(t, "au", "au@example.com", domain.RoleResident, &c.ID)
	_, adminTok := e.seedUser(t, "ad", "ad@example.com", domain.RoleAdmin, &c.ID)
	_, superTok := e.seedUser(t, "sa", "sa@example.com", domain.RoleSuperAdmin, nil)

	_, err := e.reports.Create(context.Background(), service.CreateReportRequest{
		ConjuntoID:   c.ID,
		AuthorUserID: author.ID,
		Title:        "Leak",
		Description:  "Water leak in parking",
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/api/reports/statistics", adminTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/reports/statistics", superTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataAsMap(t, decodeEnvelope(t, rec))
	assert.Equal(t, float64(1), data["total"])

	rec = e.do(t, http.MethodGet, "/api/reports/statistics/export", superTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
}

func TestReportListScopedByRole(t *testing.T) {
	e := newTestEnv(t)
	c1 := e.seedConjunto(t, "Conjunto Uno")
	c2 := e.seedConjunto(t, "Conjunto Dos")
	a1, tok1 := e.seedUser(t, "u1", "u1@example.com", domain.RoleResident, &c1.ID)
	a2, _ := e.seedUser(t, "u2", "u2@example.com", domain.RoleResident, &c2.ID)
	_, superTok := e.seedUser(t, "sa", "sa@example.com", domain.RoleSuperAdmin, nil)

	for _, seed := range []struct {
		conjunto string
		author   string
	}{
		{c1.ID, a1.ID},
		{c2.ID, a2.ID},
	} {
		_, err := e.reports.Create(context.Background(), service.CreateReportRequest{
			ConjuntoID:   seed.conjunto,
			AuthorUserID: seed.author,
			Title:        "Issue",
			Description:  "Something broke",
		})
		require.NoError(t, err)
	}

	rec := e.do(t, http.MethodGet, "/api/reports", tok1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)

	rec = e.do(t, http.MethodGet, "/api/reports", superTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Count)
	assert.Equal(t, 2, *env.Count)

	rec = e.do(t, http.MethodGet, "/api/reports?mine=true", tok1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)
	h := CORS("https://conjuntos.example.com", e.router)

	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://conjuntos.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
