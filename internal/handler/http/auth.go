package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shari-ar/Assets/internal/domain"
	"github.com/shari-ar/Assets/internal/service"
	"github.com/shari-ar/Assets/pkg/middleware"
	"github.com/shari-ar/Assets/pkg/validator"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	cookies CookieConfig
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	FullName string `json:"fullName" validate:"required,min=1,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// --- Response types ---

// SessionResponse carries the tokens of a freshly established session. The
// same tokens are also mirrored into HttpOnly cookies.
type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresAt    string `json:"expires_at"`
	Role         string `json:"role"`
}

// ProfileResponse is the public view of a user account.
type ProfileResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

func newSessionResponse(session *service.Session) SessionResponse {
	return SessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    session.AccessExpiresAt.UTC().Format(time.RFC3339),
		Role:         session.User.Role.String(),
	}
}

func newProfileResponse(user *domain.User) ProfileResponse {
	return ProfileResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName(),
		Role:     user.Role.String(),
	}
}

func clientInfo(r *http.Request) service.ClientInfo {
	return service.ClientInfo{
		UserAgent: r.UserAgent(),
		IPAddress: middleware.ClientIP(r),
	}
}

// --- Handlers ---

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := service.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	}

	user, err := h.service.Register(r.Context(), input, clientInfo(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: newProfileResponse(user)})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}

	session, err := h.service.Login(r.Context(), input, clientInfo(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	setSessionCookies(w, session, h.cookies)
	writeJSON(w, http.StatusOK, response{Data: newSessionResponse(session)})
}

// Refresh handles POST /api/auth/refresh. The refresh token travels only in
// its HttpOnly cookie; it is never accepted from the request body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "refresh token missing"},
		})
		return
	}

	session, err := h.service.Refresh(r.Context(), cookie.Value, clientInfo(r))
	if err != nil {
		clearSessionCookies(w, h.cookies)
		writeAppError(w, r, err)
		return
	}

	setSessionCookies(w, session, h.cookies)
	writeJSON(w, http.StatusOK, response{Data: newSessionResponse(session)})
}

// Logout handles POST /api/auth/logout. It always succeeds: the cookies are
// cleared regardless of whether a revocable token was presented.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		raw = cookie.Value
	}

	h.service.Logout(r.Context(), raw, clientInfo(r))

	clearSessionCookies(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	writeJSON(w, http.StatusOK, response{Data: newProfileResponse(user)})
}

// Status handles GET /api/auth/status, a public liveness signal for the
// auth module itself.
func (h *AuthHandler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"service": "auth", "status": "ok"},
	})
}
