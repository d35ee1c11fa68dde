package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTokenVerifier(t *testing.T) {
	v := NewStaticTokenVerifier("sk_live_abc123")

	assert.NoError(t, v.Verify("sk_live_abc123"))
	assert.Error(t, v.Verify("sk_live_wrong"))
	assert.Error(t, v.Verify(""))
}

func TestStaticTokenVerifier_UnconfiguredRejectsAll(t *testing.T) {
	v := NewStaticTokenVerifier("")

	assert.Error(t, v.Verify(""), "empty configured token must not accept empty input")
	assert.Error(t, v.Verify("anything"))
}

func TestJWTVerifier(t *testing.T) {
	secret := "jwt-shared-secret"
	v := NewJWTVerifier(secret)

	sign := func(secret string, exp time.Time) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "agent-platform",
			"exp": exp.Unix(),
		})
		s, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}

	t.Run("valid token", func(t *testing.T) {
		assert.NoError(t, v.Verify(sign(secret, time.Now().Add(time.Hour))))
	})

	t.Run("expired token", func(t *testing.T) {
		assert.Error(t, v.Verify(sign(secret, time.Now().Add(-time.Hour))))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.Error(t, v.Verify(sign("other-secret", time.Now().Add(time.Hour))))
	})

	t.Run("garbage", func(t *testing.T) {
		assert.Error(t, v.Verify("not.a.jwt"))
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"})
		s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		assert.Error(t, v.Verify(s))
	})
}

func TestNoopVerifier(t *testing.T) {
	assert.NoError(t, NoopVerifier{}.Verify(""))
	assert.NoError(t, NoopVerifier{}.Verify("anything"))
}
