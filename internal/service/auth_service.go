package service

import (
	"crypto/subtle"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// StaticTokenVerifier implements ports.AuthVerifier with a single configured
// bearer token, compared in constant time.
type StaticTokenVerifier struct {
	token []byte
}

// NewStaticTokenVerifier creates a verifier for the configured token.
func NewStaticTokenVerifier(token string) *StaticTokenVerifier {
	return &StaticTokenVerifier{token: []byte(token)}
}

// Verify accepts only an exact match of the configured token.
func (v *StaticTokenVerifier) Verify(token string) error {
	if len(v.token) == 0 {
		return fmt.Errorf("no bearer token configured")
	}
	if subtle.ConstantTimeCompare(v.token, []byte(token)) != 1 {
		return fmt.Errorf("bearer token mismatch")
	}
	return nil
}

// JWTVerifier implements ports.AuthVerifier for HS256-signed bearer tokens.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier with the shared HMAC secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token signature and registered claims.
func (v *JWTVerifier) Verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// NoopVerifier implements ports.AuthVerifier for deployments that disable
// authentication (local development only).
type NoopVerifier struct{}

// Verify always succeeds.
func (NoopVerifier) Verify(string) error { return nil }
