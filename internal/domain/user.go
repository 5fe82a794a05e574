package domain

import (
	"strings"
	"time"
)

// User represents a registered account. Email is the unique natural key and
// is stored case-normalized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	DateJoined   time.Time `json:"date_joined"`
}

// FullName joins the non-empty name parts with a space.
func (u *User) FullName() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(u.FirstName); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(u.LastName); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// NormalizeEmail lowercases and trims an email address for lookup and
// storage so the unique key is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitFullName splits a submitted full name into first and last parts.
// A single word becomes the first name; everything after the first word
// becomes the last name.
func SplitFullName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
