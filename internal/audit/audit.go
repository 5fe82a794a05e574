// Package audit records authentication events on a best-effort basis.
// Persistence failures are absorbed so that an unavailable audit store can
// never fail the authentication decision it describes.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shari-ar/Assets/internal/domain"
	"github.com/shari-ar/Assets/internal/repository"
)

// Event describes one authentication-relevant occurrence to record.
type Event struct {
	Action     domain.AuditAction
	UserID     string // empty when no user was resolved
	Email      string
	Successful bool
	IPAddress  string
	UserAgent  string
	Metadata   map[string]any
}

// Recorder appends events to the audit log, swallowing storage errors.
type Recorder struct {
	repo   repository.AuditLogRepository
	logger *slog.Logger
}

// NewRecorder creates an audit recorder backed by the given repository.
func NewRecorder(repo repository.AuditLogRepository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record attempts a durable append and reports whether it was persisted.
// A false return is an expected outcome, not an error path: the audit store
// may be missing its table before migrations run, or temporarily down, and
// authentication must keep working regardless.
func (r *Recorder) Record(ctx context.Context, ev Event) bool {
	entry := &domain.AuditEntry{
		ID:         uuid.New().String(),
		Email:      ev.Email,
		Action:     ev.Action,
		Successful: ev.Successful,
		IPAddress:  domain.TruncateIPAddress(ev.IPAddress),
		UserAgent:  domain.TruncateUserAgent(ev.UserAgent),
		Metadata:   ev.Metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if ev.UserID != "" {
		id := ev.UserID
		entry.UserID = &id
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}

	if err := r.repo.Insert(ctx, entry); err != nil {
		r.logger.WarnContext(ctx, "skipping audit log write; store unavailable",
			slog.String("action", string(ev.Action)),
			slog.String("error", err.Error()),
		)
		return false
	}

	return true
}
