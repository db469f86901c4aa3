package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"conjuntos-api/internal/domain"
	"conjuntos-api/internal/repository"
	"conjuntos-api/internal/service"

	"go.uber.org/zap"
)

// UserHandler serves account routes.
type UserHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewUserHandler(users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// ServeHTTP dispatches the authenticated user routes. POST /api/users
// (explicit create) is served by Create, mounted without auth.
func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users")
	rest = strings.TrimPrefix(rest, "/")

	switch {
	case rest == "sync" && r.Method == http.MethodPost:
		h.Sync(w, r)
	case rest == "me" && r.Method == http.MethodGet:
		h.Me(w, r)
	case rest == "all" && r.Method == http.MethodGet:
		h.ListAll(w, r)
	case strings.HasPrefix(rest, "conjunto/") && r.Method == http.MethodGet:
		h.ListByConjunto(w, r, strings.TrimPrefix(rest, "conjunto/"))
	case rest == "assign-admin" && r.Method == http.MethodPost:
		h.AssignAdmin(w, r)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.Get(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodPut:
		h.Update(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodDelete:
		h.Delete(w, r, rest)
	default:
		writeError(w, http.StatusNotFound, "route not found", nil)
	}
}

// Create is the explicit registration route. Public: it runs during
// sign-up, before the caller holds a token the API accepts.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	// Roles are never self-assigned at registration.
	req.Role = domain.RoleResident

	u, err := h.users.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, u)
}

// Sync returns the account for the verified token, creating it on first
// login. Idempotent: repeated calls return the same record.
func (h *UserHandler) Sync(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
		return
	}

	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	u, err := h.users.Sync(r.Context(), p.Identity.AuthID, p.Identity.Email, body.DisplayName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

// Me returns the caller's own record, 404 until the first sync.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
		return
	}
	if p.User == nil {
		writeError(w, http.StatusNotFound, "user not found", nil)
		return
	}
	writeData(w, http.StatusOK, p.User)
}

func (h *UserHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if p.User.Role != domain.RoleSuperAdmin {
		h.denied(p, r, "list all users")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	users, err := h.users.ListAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeList(w, users)
}

func (h *UserHandler) ListByConjunto(w http.ResponseWriter, r *http.Request, conjuntoID string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	allowed := p.User.Role == domain.RoleSuperAdmin ||
		(p.User.Role == domain.RoleAdmin && p.User.BelongsTo(conjuntoID))
	if !allowed {
		h.denied(p, r, "list conjunto users")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	users, err := h.users.ListByConjunto(r.Context(), conjuntoID)
	if err != nil {
		h.logger.Error("Failed to list conjunto users", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeList(w, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	target, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	allowed := p.User.ID == target.ID ||
		p.User.Role == domain.RoleSuperAdmin ||
		(p.User.Role == domain.RoleAdmin && target.ConjuntoID != nil && p.User.BelongsTo(*target.ConjuntoID))
	if !allowed {
		h.denied(p, r, "read user")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}
	writeData(w, http.StatusOK, target)
}

// userPatchBody distinguishes absent fields from explicit nulls, so a PUT
// never clobbers what the client did not send.
type userPatchBody struct {
	DisplayName *string      `json:"display_name"`
	Role        *domain.Role `json:"role"`
	ConjuntoID  optionalJSON `json:"conjunto_id"`
	Unit        optionalJSON `json:"unit"`
}

// optionalJSON records whether a nullable string field was present at all.
type optionalJSON struct {
	present bool
	value   *string
}

func (o *optionalJSON) UnmarshalJSON(data []byte) error {
	o.present = true
	if string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, &o.value)
}

func (o optionalJSON) toOptionalString() repository.OptionalString {
	if !o.present {
		return repository.OptionalString{}
	}
	if o.value == nil {
		return repository.SetNull()
	}
	return repository.SetString(*o.value)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if p.User.ID != id && p.User.Role != domain.RoleSuperAdmin {
		h.denied(p, r, "update user")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	var body userPatchBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	// Role changes are a super-admin privilege, even on one's own record.
	if body.Role != nil && p.User.Role != domain.RoleSuperAdmin {
		h.denied(p, r, "change role")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	u, err := h.users.Update(r.Context(), id, service.UpdateUserRequest{
		DisplayName: body.DisplayName,
		Role:        body.Role,
		ConjuntoID:  body.ConjuntoID.toOptionalString(),
		Unit:        body.Unit.toOptionalString(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (h *UserHandler) AssignAdmin(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if p.User.Role != domain.RoleSuperAdmin {
		h.denied(p, r, "assign admin")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	var req service.AssignAdminRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.users.AssignAdmin(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, res, "admin role assigned")
}

// Delete hard-deletes an account. Super admins only; self-deletion and
// deleting another super admin are rejected before touching storage.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if p.User.Role != domain.RoleSuperAdmin {
		h.denied(p, r, "delete user")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}
	if p.User.ID == id {
		h.denied(p, r, "delete self")
		writeError(w, http.StatusForbidden, "cannot delete your own account", nil)
		return
	}

	target, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if target.Role == domain.RoleSuperAdmin {
		h.denied(p, r, "delete super admin")
		writeError(w, http.StatusForbidden, "cannot delete a super admin account", nil)
		return
	}

	deleted, err := h.users.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, map[string]any{
		"id":           deleted.ID,
		"email":        deleted.Email,
		"display_name": deleted.DisplayName,
		"role":         deleted.Role,
	}, "user deleted")
}

func (h *UserHandler) denied(p *Principal, r *http.Request, action string) {
	h.logger.Warn("Authorization denied",
		zap.String("action", action),
		zap.String("user_id", p.User.ID),
		zap.String("role", string(p.User.Role)),
		zap.String("path", r.URL.Path),
	)
}
