package session

import (
	"time"

	"github.com/desertthunder/folio/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
//
// The client cannot verify backend tokens; the claim is only used to drop sessions that are
// certainly stale. Opaque tokens and tokens without exp report ok=false.
func TokenExpiry(raw string) (exp time.Time, ok bool) {
	if raw == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	date, err := claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}

// NewToken wraps a raw bearer token, filling the expiry from its exp claim when present.
func NewToken(raw string) *oauth2.Token {
	if raw == "" {
		return nil
	}
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if exp, ok := TokenExpiry(raw); ok {
		tok.Expiry = exp
	}
	return tok
}

// New builds a session for user from the raw token returned by login.
func New(user models.User, rawToken string) *models.Session {
	return &models.Session{User: user, Token: NewToken(rawToken)}
}
