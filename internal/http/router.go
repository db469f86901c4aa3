package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router wraps the standard library ServeMux; no third-party router needed
// for a surface this size.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
	r.mux.HandleFunc("/api/health", r.health)
	r.mux.HandleFunc("/api/", r.notFound)
	return r
}

func (r *Router) Handle(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "conjuntos-api is running",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// notFound is the JSON fallback for unknown /api routes.
func (r *Router) notFound(w http.ResponseWriter, req *http.Request) {
	r.logger.Warn("Unknown route",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
	)
	writeError(w, http.StatusNotFound, "route not found", nil)
}

// RegisterConjuntoRoutes mounts conjunto management. Lookup-by-code stays
// public; the registration flow runs before the caller holds a token.
func (r *Router) RegisterConjuntoRoutes(h *ConjuntoHandler, auth *AuthMiddleware) {
	r.Handle("/api/conjuntos", auth.RequireAuth(h))
	r.Handle("/api/conjuntos/", auth.RequireAuth(h))
	r.Handle("/api/conjuntos/code/", http.HandlerFunc(h.GetByAccessCode))
}

// RegisterUserRoutes mounts account management. POST /api/users is the
// public registration route; everything else needs a bearer token.
func (r *Router) RegisterUserRoutes(h *UserHandler, auth *AuthMiddleware) {
	protected := auth.RequireAuth(h)
	r.Handle("/api/users", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPost {
			h.Create(w, req)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	}))
	r.Handle("/api/users/", protected)
}

func (r *Router) RegisterReportRoutes(h *ReportHandler, auth *AuthMiddleware) {
	r.Handle("/api/reports", auth.RequireAuth(h))
	r.Handle("/api/reports/", auth.RequireAuth(h))
}
