package domain

import "time"

// AuditAction enumerates the authentication events the audit trail records.
type AuditAction string

const (
	AuditLogin        AuditAction = "login"
	AuditRegister     AuditAction = "register"
	AuditLogout       AuditAction = "logout"
	AuditRefresh      AuditAction = "refresh"
	AuditAccessDenied AuditAction = "access_denied"
	AuditTokenRevoked AuditAction = "token_revoked"
)

// AuditEntry is an append-only record of an authentication event. UserID is
// nil when no user could be resolved for the event. Entries are immutable
// once written.
type AuditEntry struct {
	ID         string         `json:"id"`
	UserID     *string        `json:"user_id,omitempty"`
	Email      string         `json:"email"`
	Action     AuditAction    `json:"action"`
	Successful bool           `json:"successful"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}
