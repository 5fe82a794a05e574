package http

import (
	"net/http"
	"time"

	"github.com/shari-ar/Assets/internal/service"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// CookieConfig controls the attributes of the auth cookies.
type CookieConfig struct {
	Secure   bool
	SameSite string // "lax", "strict", or "none"
}

func (c CookieConfig) sameSite() http.SameSite {
	switch c.SameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// setSessionCookies mirrors the session tokens into HttpOnly cookies so
// browser clients work without handling tokens in script.
func setSessionCookies(w http.ResponseWriter, session *service.Session, cfg CookieConfig) {
	now := time.Now()

	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    session.AccessToken,
		Path:     "/",
		MaxAge:   int(session.AccessExpiresAt.Sub(now).Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.sameSite(),
	})

	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    session.RefreshToken,
		Path:     "/",
		MaxAge:   int(session.RefreshExpiresAt.Sub(now).Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.sameSite(),
	})
}

// clearSessionCookies expires both auth cookies.
func clearSessionCookies(w http.ResponseWriter, cfg CookieConfig) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: cfg.sameSite(),
		})
	}
}
