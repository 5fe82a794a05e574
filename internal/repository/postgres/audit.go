package postgres

import (
	"context"
	"fmt"

	"github.com/shari-ar/Assets/internal/domain"
)

// AuditLogRepository implements repository.AuditLogRepository using
// PostgreSQL. The table is append-only; no update or delete statements
// exist here.
type AuditLogRepository struct {
	db DB
}

// NewAuditLogRepository creates a PostgreSQL-backed audit log repository.
func NewAuditLogRepository(db DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Insert appends an audit entry.
func (r *AuditLogRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	query := `
		INSERT INTO auth_audit_log (id, user_id, email, action, successful, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	_, err := r.db.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.Email,
		string(e.Action),
		e.Successful,
		e.IPAddress,
		e.UserAgent,
		metadata,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}
