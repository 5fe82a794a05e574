package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shari-ar/Assets/internal/audit"
	"github.com/shari-ar/Assets/internal/auth"
	"github.com/shari-ar/Assets/internal/domain"
	"github.com/shari-ar/Assets/internal/repository"
	apperrors "github.com/shari-ar/Assets/pkg/errors"
)

// bcryptCost is the cost factor for password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length accepted at registration.
const minPasswordLength = 8

// Auditor records authentication events best-effort; a false return is a
// valid outcome and never aborts the triggering operation.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event) bool
}

// EventPublisher publishes auth domain events. Publish failures are logged
// and never fail the triggering operation.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserLoggedIn(ctx context.Context, user *domain.User) error
}

// Throttle limits failed login attempts per email/IP pair. Implementations
// may be unavailable; callers treat errors as fail-open.
type Throttle interface {
	Blocked(ctx context.Context, email, ip string) (bool, error)
	RecordFailure(ctx context.Context, email, ip string) error
	Reset(ctx context.Context, email, ip string) error
}

// ClientInfo carries request metadata recorded with tokens and audit
// entries.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// LoginInput holds the credentials submitted at login.
type LoginInput struct {
	Email    string
	Password string
}

// RegisterInput holds the fields submitted at registration.
type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// Session is the result of a successful login or refresh: a short-lived
// access token plus the raw refresh secret, delivered to the client exactly
// once.
type Session struct {
	User             *domain.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthService composes credential verification, token issuance, rotation,
// and auditing into the login/refresh/logout/register workflows.
type AuthService struct {
	users           repository.UserRepository
	tokens          repository.RefreshTokenRepository
	codec           *auth.TokenCodec
	auditor         Auditor
	events          EventPublisher
	throttle        Throttle // nil when redis is not configured
	refreshLifetime time.Duration
	logger          *slog.Logger
}

// NewAuthService creates the auth service. throttle may be nil to disable
// login throttling.
func NewAuthService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	codec *auth.TokenCodec,
	auditor Auditor,
	events EventPublisher,
	throttle Throttle,
	refreshLifetime time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:           users,
		tokens:          tokens,
		codec:           codec,
		auditor:         auditor,
		events:          events,
		throttle:        throttle,
		refreshLifetime: refreshLifetime,
		logger:          logger,
	}
}

// VerifyCredentials checks an email/password pair against the stored hash.
// Unknown-user and bad-password collapse into one generic failure so the
// response never reveals which occurred; an inactive account is reported
// distinctly.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	if !user.IsActive {
		return user, apperrors.Forbidden("user account is inactive")
	}

	return user, nil
}

// Login verifies credentials and establishes a new session.
func (s *AuthService) Login(ctx context.Context, input LoginInput, client ClientInfo) (*Session, error) {
	email := domain.NormalizeEmail(input.Email)

	if s.throttle != nil {
		blocked, err := s.throttle.Blocked(ctx, email, client.IPAddress)
		if err != nil {
			// Fail open: the throttle is a safety net, not a gate.
			s.logger.WarnContext(ctx, "login throttle unavailable", slog.String("error", err.Error()))
		} else if blocked {
			s.auditFailure(ctx, domain.AuditLogin, "", email, client, "too many failed attempts")
			return nil, apperrors.RateLimited("too many failed login attempts")
		}
	}

	user, err := s.VerifyCredentials(ctx, email, input.Password)
	if err != nil {
		userID := ""
		if user != nil {
			userID = user.ID
		}
		s.auditFailure(ctx, domain.AuditLogin, userID, email, client, failureReason(err))
		if s.throttle != nil {
			if terr := s.throttle.RecordFailure(ctx, email, client.IPAddress); terr != nil {
				s.logger.WarnContext(ctx, "recording login failure in throttle failed", slog.String("error", terr.Error()))
			}
		}
		return nil, err
	}

	session, _, err := s.establishSession(ctx, user, client)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Event{
		Action:     domain.AuditLogin,
		UserID:     user.ID,
		Email:      user.Email,
		Successful: true,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
	})

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email, client.IPAddress); err != nil {
			s.logger.WarnContext(ctx, "resetting login throttle failed", slog.String("error", err.Error()))
		}
	}

	if s.events != nil {
		if err := s.events.PublishUserLoggedIn(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish user_logged_in event",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return session, nil
}

// Refresh rotates a refresh token: the presented record is marked used and
// revoked, and a brand-new record is issued, so any secret authenticates at
// most one successful refresh. Reuse of an already-rotated secret fails as
// an ordinary auth failure.
func (s *AuthService) Refresh(ctx context.Context, rawSecret string, client ClientInfo) (*Session, error) {
	record, err := s.tokens.GetByHash(ctx, auth.HashSecret(rawSecret))
	if err != nil {
		s.auditFailure(ctx, domain.AuditRefresh, "", "", client, "unknown refresh token")
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	now := time.Now().UTC()
	if !record.Usable(now) {
		// Defensive re-assertion: an expired record is pinned revoked so it
		// can never come back, even through clock adjustments.
		if _, rerr := s.tokens.Revoke(ctx, record.TokenHash); rerr != nil {
			s.logger.ErrorContext(ctx, "failed to revoke stale refresh token",
				slog.String("token_id", record.ID),
				slog.String("error", rerr.Error()),
			)
		}
		s.auditFailure(ctx, domain.AuditRefresh, record.UserID, "", client, "refresh token expired or revoked")
		return nil, apperrors.Unauthorized("refresh token has expired or been revoked")
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		s.auditFailure(ctx, domain.AuditRefresh, record.UserID, "", client, "unknown user")
		return nil, apperrors.Unauthorized("user not found")
	}

	if !user.IsActive {
		// A deactivated account forfeits every session, not just the one
		// presenting this token.
		if rerr := s.tokens.RevokeAllForUser(ctx, user.ID); rerr != nil {
			s.logger.ErrorContext(ctx, "failed to revoke refresh tokens of inactive user",
				slog.String("user_id", user.ID),
				slog.String("error", rerr.Error()),
			)
		}
		s.auditor.Record(ctx, audit.Event{
			Action:     domain.AuditTokenRevoked,
			UserID:     user.ID,
			Email:      user.Email,
			Successful: true,
			IPAddress:  client.IPAddress,
			UserAgent:  client.UserAgent,
			Metadata:   map[string]any{"reason": "inactive account"},
		})
		return nil, apperrors.Forbidden("user account is inactive")
	}

	// Rotation order matters: mark used, then win the revoke, then issue.
	if err := s.tokens.MarkUsed(ctx, record.ID, now); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("mark refresh token used: %w", err))
	}

	won, err := s.tokens.Revoke(ctx, record.TokenHash)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("revoke refresh token: %w", err))
	}
	if !won {
		// A concurrent refresh presented the same secret first.
		s.auditFailure(ctx, domain.AuditRefresh, user.ID, user.Email, client, "refresh token already rotated")
		return nil, apperrors.Unauthorized("refresh token has expired or been revoked")
	}

	session, newRecord, err := s.establishSession(ctx, user, client)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Event{
		Action:     domain.AuditRefresh,
		UserID:     user.ID,
		Email:      user.Email,
		Successful: true,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
		Metadata:   map[string]any{"refresh_token_id": newRecord.ID},
	})

	s.logger.InfoContext(ctx, "session refreshed", slog.String("user_id", user.ID))

	return session, nil
}

// Logout revokes the presented refresh token when it resolves to a known
// record. It never fails: an absent or unknown token still audits a
// successful logout tagged with the reason.
func (s *AuthService) Logout(ctx context.Context, rawSecret string, client ClientInfo) {
	if rawSecret == "" {
		s.auditor.Record(ctx, audit.Event{
			Action:     domain.AuditLogout,
			Successful: true,
			IPAddress:  client.IPAddress,
			UserAgent:  client.UserAgent,
			Metadata:   map[string]any{"reason": "no refresh token"},
		})
		return
	}

	record, err := s.tokens.GetByHash(ctx, auth.HashSecret(rawSecret))
	if err != nil {
		s.auditor.Record(ctx, audit.Event{
			Action:     domain.AuditLogout,
			Successful: true,
			IPAddress:  client.IPAddress,
			UserAgent:  client.UserAgent,
			Metadata:   map[string]any{"reason": "unknown refresh token"},
		})
		return
	}

	if _, err := s.tokens.Revoke(ctx, record.TokenHash); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh token at logout",
			slog.String("token_id", record.ID),
			slog.String("error", err.Error()),
		)
	}

	s.auditor.Record(ctx, audit.Event{
		Action:     domain.AuditLogout,
		UserID:     record.UserID,
		Successful: true,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
		Metadata:   map[string]any{"refresh_token_id": record.ID},
	})

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", record.UserID))
}

// Register validates the password policy, creates the user record, and
// audits the outcome. A duplicate email surfaces as a generic conflict.
func (s *AuthService) Register(ctx context.Context, input RegisterInput, client ClientInfo) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)

	if msg := checkPasswordStrength(input.Password); msg != "" {
		s.auditFailure(ctx, domain.AuditRegister, "", email, client, "weak password")
		return nil, apperrors.Validation(map[string]string{"password": msg})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("hash password: %w", err))
	}

	first, last := domain.SplitFullName(input.FullName)
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    first,
		LastName:     last,
		Role:         domain.RoleUser,
		IsActive:     true,
		DateJoined:   time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			s.auditFailure(ctx, domain.AuditRegister, "", email, client, "duplicate email")
			// Surfaced as a field-level failure, same shape as any other
			// rejected registration input.
			return nil, apperrors.Validation(map[string]string{"email": "an account with this email already exists"})
		}
		return nil, apperrors.Internal(fmt.Errorf("create user: %w", err))
	}

	s.auditor.Record(ctx, audit.Event{
		Action:     domain.AuditRegister,
		UserID:     user.ID,
		Email:      user.Email,
		Successful: true,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
	})

	if s.events != nil {
		if err := s.events.PublishUserRegistered(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish user_registered event",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// establishSession mints an access token and persists a fresh refresh token
// record carrying the client metadata.
func (s *AuthService) establishSession(ctx context.Context, user *domain.User, client ClientInfo) (*Session, *domain.RefreshToken, error) {
	accessToken, accessExpiresAt, err := s.codec.Issue(user)
	if err != nil {
		return nil, nil, apperrors.Internal(fmt.Errorf("issue access token: %w", err))
	}

	raw, hash, err := auth.NewRefreshSecret()
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	record := &domain.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: hash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshLifetime),
		UserAgent: domain.TruncateUserAgent(client.UserAgent),
		IPAddress: domain.TruncateIPAddress(client.IPAddress),
	}

	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, nil, apperrors.Internal(fmt.Errorf("store refresh token: %w", err))
	}

	return &Session{
		User:             user,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     raw,
		RefreshExpiresAt: record.ExpiresAt,
	}, record, nil
}

func (s *AuthService) auditFailure(ctx context.Context, action domain.AuditAction, userID, email string, client ClientInfo, reason string) {
	s.auditor.Record(ctx, audit.Event{
		Action:     action,
		UserID:     userID,
		Email:      email,
		Successful: false,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
		Metadata:   map[string]any{"reason": reason},
	})
}

func failureReason(err error) string {
	if apperrors.HTTPStatus(err) == http.StatusForbidden {
		return "inactive account"
	}
	return "invalid credentials"
}

// checkPasswordStrength returns an empty string when the password satisfies
// the policy, or a field-level message describing what is missing.
func checkPasswordStrength(password string) string {
	if len(password) < minPasswordLength {
		return fmt.Sprintf("must be at least %d characters", minPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return "must contain at least one uppercase letter, one lowercase letter, and one digit"
	}

	return ""
}
