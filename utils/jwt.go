package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "table-order"

// Token scopes. A browser token lives for a year and names the local
// storage namespace; a session token is set as a session cookie and names
// the session storage namespace.
const (
	ScopeBrowser = "browser"
	ScopeSession = "session"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type VisitorClaims struct {
	VisitorID string `json:"vid"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies visitor tokens with an HMAC secret.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), ttl: ttl}
}

// Issue mints a token for a fresh visitor id in the given scope.
func (s *TokenSigner) Issue(scope string) (string, *VisitorClaims, error) {
	now := time.Now()
	claims := &VisitorClaims{
		VisitorID: uuid.NewString(),
		Scope:     scope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   tokenIssuer,
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse verifies tokenString and checks it carries the expected scope.
func (s *TokenSigner) Parse(tokenString, scope string) (*VisitorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &VisitorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*VisitorClaims)
	if !ok || claims.VisitorID == "" || claims.Scope != scope {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
