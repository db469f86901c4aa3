package httpapi

import (
	"net/http"
	"strings"

	"conjuntos-api/internal/domain"
	"conjuntos-api/internal/service"

	"go.uber.org/zap"
)

// ConjuntoHandler serves conjunto management routes.
type ConjuntoHandler struct {
	conjuntos service.ConjuntoService
	logger    *zap.Logger
}

func NewConjuntoHandler(conjuntos service.ConjuntoService, logger *zap.Logger) *ConjuntoHandler {
	return &ConjuntoHandler{conjuntos: conjuntos, logger: logger}
}

// ServeHTTP dispatches the authenticated conjunto routes. The public
// lookup-by-code route is served by GetByAccessCode, mounted separately.
func (h *ConjuntoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/conjuntos")
	rest = strings.TrimPrefix(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.List(w, r)
	case rest == "" && r.Method == http.MethodPost:
		h.Create(w, r)
	case strings.HasSuffix(rest, "/regenerate-code") && r.Method == http.MethodPost:
		h.RegenerateCode(w, r, strings.TrimSuffix(rest, "/regenerate-code"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.Get(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodPut:
		h.Update(w, r, rest)
	default:
		writeError(w, http.StatusNotFound, "route not found", nil)
	}
}

// GetByAccessCode resolves a conjunto from its access code. Public: the
// registration flow runs before the caller has a token.
func (h *ConjuntoHandler) GetByAccessCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/api/conjuntos/code/")
	if code == "" || strings.Contains(code, "/") {
		writeError(w, http.StatusNotFound, "route not found", nil)
		return
	}

	c, err := h.conjuntos.GetByAccessCode(r.Context(), strings.ToUpper(code))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

// List returns all conjuntos for super admins and the admin's own conjunto
// as a one-element list. Residents are denied.
func (h *ConjuntoHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	switch p.User.Role {
	case domain.RoleSuperAdmin:
		items, err := h.conjuntos.ListAll(r.Context())
		if err != nil {
			h.logger.Error("Failed to list conjuntos", zap.Error(err))
			writeServiceError(w, err)
			return
		}
		writeList(w, items)
	case domain.RoleAdmin:
		if p.User.ConjuntoID == nil {
			writeList(w, []*domain.Conjunto{})
			return
		}
		c, err := h.conjuntos.Get(r.Context(), *p.User.ConjuntoID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeList(w, []*domain.Conjunto{c})
	default:
		h.denied(p, r, "list conjuntos")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
	}
}

func (h *ConjuntoHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if p.User.Role != domain.RoleSuperAdmin {
		h.denied(p, r, "create conjunto")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	var req service.CreateConjuntoRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	c, err := h.conjuntos.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

func (h *ConjuntoHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if p.User.Role != domain.RoleSuperAdmin && !p.User.BelongsTo(id) {
		h.denied(p, r, "read conjunto")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	c, err := h.conjuntos.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *ConjuntoHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if p.User.Role != domain.RoleSuperAdmin {
		h.denied(p, r, "update conjunto")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	var req service.UpdateConjuntoRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	c, err := h.conjuntos.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

// RegenerateCode rotates the access code. Allowed for super admins and for
// the admin of that conjunto.
func (h *ConjuntoHandler) RegenerateCode(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	allowed := p.User.Role == domain.RoleSuperAdmin ||
		(p.User.Role == domain.RoleAdmin && p.User.BelongsTo(id))
	if !allowed {
		h.denied(p, r, "regenerate access code")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	code, err := h.conjuntos.RegenerateAccessCode(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, map[string]string{"access_code": code}, "access code regenerated")
}

func (h *ConjuntoHandler) denied(p *Principal, r *http.Request, action string) {
	h.logger.Warn("Authorization denied",
		zap.String("action", action),
		zap.String("user_id", p.User.ID),
		zap.String("role", string(p.User.Role)),
		zap.String("path", r.URL.Path),
	)
}
