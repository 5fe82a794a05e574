package domain

import "time"

// Truncation bounds for stored client metadata.
const (
	MaxUserAgentLen = 500
	MaxIPAddressLen = 64
)

// RefreshToken is a durable record of a long-lived opaque session token.
// Only the SHA-256 hex digest of the secret is stored; the raw secret is
// handed to the client exactly once at creation.
type RefreshToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	TokenHash  string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Revoked    bool       `json:"revoked"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
}

// Usable reports whether the token may still authenticate a refresh:
// not revoked and strictly unexpired. A token whose expiry equals now is
// already expired.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

// TruncateUserAgent bounds a client user-agent string for storage.
func TruncateUserAgent(ua string) string {
	if len(ua) > MaxUserAgentLen {
		return ua[:MaxUserAgentLen]
	}
	return ua
}

// TruncateIPAddress bounds a client address string for storage.
func TruncateIPAddress(ip string) string {
	if len(ip) > MaxIPAddressLen {
		return ip[:MaxIPAddressLen]
	}
	return ip
}
