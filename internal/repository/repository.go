package repository

import (
	"context"
	"time"

	"github.com/shari-ar/Assets/internal/domain"
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	// Create inserts a new user. A duplicate email yields ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by normalized email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// RefreshTokenRepository defines refresh token persistence operations.
// Records are never physically deleted; retention is an external concern.
type RefreshTokenRepository interface {
	// Create stores a new refresh token record holding only the secret's hash.
	Create(ctx context.Context, token *domain.RefreshToken) error

	// GetByHash retrieves a refresh token record by its secret hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// MarkUsed stamps last_used_at on the record. Side effect only; it does
	// not affect validity.
	MarkUsed(ctx context.Context, id string, usedAt time.Time) error

	// Revoke flips the revoked flag if it is not already set. It reports
	// whether this call performed the transition, so concurrent rotations of
	// the same token resolve to exactly one winner.
	Revoke(ctx context.Context, tokenHash string) (bool, error)

	// RevokeAllForUser revokes every non-revoked token belonging to the user.
	RevokeAllForUser(ctx context.Context, userID string) error
}

// AuditLogRepository appends authentication events. Entries are immutable;
// no update or delete exists.
type AuditLogRepository interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
}
