package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"conjuntos-api/internal/auth"
	"conjuntos-api/internal/domain"
	"conjuntos-api/internal/repository"
	"conjuntos-api/internal/service"

	"go.uber.org/zap"
)

// Principal is the resolved caller, attached to the request context by
// RequireAuth. User is nil when the token is valid but no account record
// exists yet; handlers that need a record respond 403.
type Principal struct {
	Identity auth.Identity
	User     *domain.User
}

// Role returns the caller's role, defaulting to resident when no account
// record exists yet.
func (p *Principal) Role() domain.Role {
	if p.User == nil {
		return domain.RoleResident
	}
	return p.User.Role
}

type principalKey struct{}

// PrincipalFrom extracts the caller resolved by RequireAuth.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

// withPrincipal attaches the resolved caller for downstream handlers.
func withPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// AuthMiddleware verifies the bearer token and loads the matching account
// once per request, so handlers never re-verify or re-fetch.
type AuthMiddleware struct {
	verifier auth.TokenVerifier
	users    service.UserService
	logger   *zap.Logger
}

func NewAuthMiddleware(verifier auth.TokenVerifier, users service.UserService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, users: users, logger: logger}
}

// RequireAuth rejects requests without a valid bearer token and attaches
// the Principal to the context before calling next.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}

		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				m.logger.Warn("Request with invalid token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid or expired token", nil)
				return
			}
			m.logger.Error("Token verification failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "authentication unavailable", err)
			return
		}

		principal := &Principal{Identity: *identity}
		user, err := m.users.GetByAuthID(r.Context(), identity.AuthID)
		switch {
		case err == nil:
			principal.User = user
		case errors.Is(err, repository.ErrNotFound):
			// Valid token, no account record yet. Only /api/users/sync is
			// useful in this state.
		default:
			m.logger.Error("Failed to load user for verified token",
				zap.String("auth_id", identity.AuthID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "internal server error", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireUser returns the caller's account record or responds 403. A token
// alone is not an account; user-scoped routes need the record.
func requireUser(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
		return nil, false
	}
	if p.User == nil {
		logger.Warn("Authenticated caller without account record",
			zap.String("auth_id", p.Identity.AuthID),
			zap.String("path", r.URL.Path),
		)
		writeError(w, http.StatusForbidden, "no user record for this account, call /api/users/sync first", nil)
		return nil, false
	}
	return p, true
}
