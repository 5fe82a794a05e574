package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shari-ar/Assets/internal/domain"
)

// Token type discriminator embedded in every access token. Tokens minted for
// any other purpose are rejected at validation even when validly signed.
const accessTokenType = "access"

// Validation failure classes surfaced to callers. Signature failures and
// malformed tokens collapse into ErrInvalidToken.
var (
	ErrExpiredToken   = errors.New("token has expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// AccessClaims is the self-contained claim set carried by an access token.
type AccessClaims struct {
	TokenType string      `json:"type"`
	Role      domain.Role `json:"role"`
	Email     string      `json:"email"`
	jwt.RegisteredClaims
}

// TokenCodec mints and validates stateless HS256 access tokens. It holds the
// single process-wide signing secret; nothing is ever persisted.
type TokenCodec struct {
	secret       []byte
	accessExpiry time.Duration
}

// NewTokenCodec creates a codec with the given signing secret and access
// token lifetime.
func NewTokenCodec(secret string, accessExpiry time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
	}
}

// Issue creates a signed access token embedding the user's id, role, and
// email, returning the token and its absolute expiry.
func (c *TokenCodec) Issue(user *domain.User) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(c.accessExpiry)

	claims := &AccessClaims{
		TokenType: accessTokenType,
		Role:      user.Role,
		Email:     user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "assets-auth",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate verifies signature and expiry and checks the type discriminator,
// returning the embedded claims on success.
func (c *TokenCodec) Validate(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != accessTokenType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
