package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shari-ar/Assets/internal/domain"
	apperrors "github.com/shari-ar/Assets/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using
// PostgreSQL.
type RefreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository creates a PostgreSQL-backed refresh token
// repository.
func NewRefreshTokenRepository(db DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create stores a new refresh token record.
func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at, revoked, last_used_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		t.ID,
		t.UserID,
		t.TokenHash,
		t.CreatedAt,
		t.ExpiresAt,
		t.Revoked,
		t.LastUsedAt,
		t.UserAgent,
		t.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token record by its secret hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, created_at, expires_at, revoked, last_used_at, user_agent, ip_address
		FROM refresh_tokens
		WHERE token_hash = $1`

	var t domain.RefreshToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.CreatedAt,
		&t.ExpiresAt,
		&t.Revoked,
		&t.LastUsedAt,
		&t.UserAgent,
		&t.IPAddress,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &t, nil
}

// MarkUsed stamps last_used_at on the record.
func (r *RefreshTokenRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	query := `UPDATE refresh_tokens SET last_used_at = $1 WHERE id = $2`

	_, err := r.db.Exec(ctx, query, usedAt, id)
	if err != nil {
		return fmt.Errorf("mark refresh token used: %w", err)
	}

	return nil
}

// Revoke performs a compare-and-set on the revoked flag. The WHERE clause
// guards against the lost-update race: of two concurrent rotations of the
// same token, exactly one sees a row flip.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	query := `UPDATE refresh_tokens SET revoked = true WHERE token_hash = $1 AND revoked = false`

	ct, err := r.db.Exec(ctx, query, tokenHash)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// RevokeAllForUser revokes every non-revoked token belonging to the user.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query := `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`

	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens for user: %w", err)
	}

	return nil
}
