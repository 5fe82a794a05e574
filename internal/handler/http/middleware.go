package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shari-ar/Assets/internal/audit"
	"github.com/shari-ar/Assets/internal/auth"
	"github.com/shari-ar/Assets/internal/domain"
	"github.com/shari-ar/Assets/internal/repository"
	"github.com/shari-ar/Assets/internal/service"
	"github.com/shari-ar/Assets/pkg/middleware"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// exemptPaths are never challenged even when the gatekeeper wraps them.
// Each entry also covers its trailing-slash variant and subpaths.
var exemptPaths = []string{
	"/api/auth/login",
	"/api/auth/register",
}

func isExempt(path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, exempt := range exemptPaths {
		if path == exempt || strings.HasPrefix(path, exempt+"/") {
			return true
		}
	}
	return false
}

// Gatekeeper authenticates requests before they reach protected handlers.
// It accepts a bearer token in the Authorization header, falling back to
// the access_token cookie, validates it, and resolves the subject to a
// live user record so deactivated accounts are cut off immediately. Every
// rejection is audited as an access_denied event.
type Gatekeeper struct {
	codec   *auth.TokenCodec
	users   repository.UserRepository
	auditor service.Auditor
}

// NewGatekeeper creates the authentication middleware.
func NewGatekeeper(codec *auth.TokenCodec, users repository.UserRepository, auditor service.Auditor) *Gatekeeper {
	return &Gatekeeper{codec: codec, users: users, auditor: auditor}
}

// Authenticate is the middleware entry point.
func (g *Gatekeeper) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			g.deny(w, r, "", "missing credentials")
			return
		}

		claims, err := g.codec.Validate(token)
		if err != nil {
			g.deny(w, r, "", denialReason(err))
			return
		}

		user, err := g.users.GetByID(r.Context(), claims.Subject)
		if err != nil {
			g.deny(w, r, claims.Subject, "unknown user")
			return
		}

		if !user.IsActive {
			g.auditor.Record(r.Context(), audit.Event{
				Action:     domain.AuditAccessDenied,
				UserID:     user.ID,
				Email:      user.Email,
				Successful: false,
				IPAddress:  middleware.ClientIP(r),
				UserAgent:  r.UserAgent(),
				Metadata:   map[string]any{"reason": "inactive account", "path": r.URL.Path},
			})
			writeJSON(w, http.StatusForbidden, response{
				Error: &errorResponse{Code: "FORBIDDEN", Message: "user account is inactive"},
			})
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole returns a middleware that allows only users whose role
// matches exactly. There is no role hierarchy; an admin is not implicitly
// granted user-scoped routes.
func (g *Gatekeeper) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				g.deny(w, r, "", "missing credentials")
				return
			}

			if user.Role != role {
				g.auditor.Record(r.Context(), audit.Event{
					Action:     domain.AuditAccessDenied,
					UserID:     user.ID,
					Email:      user.Email,
					Successful: false,
					IPAddress:  middleware.ClientIP(r),
					UserAgent:  r.UserAgent(),
					Metadata:   map[string]any{"reason": "insufficient role", "required_role": string(role)},
				})
				writeJSON(w, http.StatusForbidden, response{
					Error: &errorResponse{Code: "FORBIDDEN", Message: "insufficient permissions"},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gatekeeper) deny(w http.ResponseWriter, r *http.Request, userID, reason string) {
	g.auditor.Record(r.Context(), audit.Event{
		Action:     domain.AuditAccessDenied,
		UserID:     userID,
		Successful: false,
		IPAddress:  middleware.ClientIP(r),
		UserAgent:  r.UserAgent(),
		Metadata:   map[string]any{"reason": reason, "path": r.URL.Path},
	})
	writeJSON(w, http.StatusUnauthorized, response{
		Error: &errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
	})
}

// extractToken pulls the access token from the Authorization header,
// falling back to the access_token cookie for browser clients. A header
// that carries no bearer token (wrong scheme, malformed) does not shadow
// the cookie; proxies may inject Authorization headers the client never
// set.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}

	cookie, err := r.Cookie(accessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "expired token"
	case errors.Is(err, auth.ErrWrongTokenType):
		return "wrong token type"
	default:
		return "invalid token"
	}
}

// UserFromContext returns the authenticated user stored by the gatekeeper.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	return user, ok
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
