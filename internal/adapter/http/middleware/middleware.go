package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"agentic-checkout/internal/core/ports"
	"agentic-checkout/pkg/apperror"
	"agentic-checkout/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Protocol headers
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRequestID      = "Request-Id"
	HeaderSignature      = "Signature"
	HeaderTimestamp      = "Timestamp"
	HeaderAPIVersion     = "API-Version"

	// Context keys
	CtxIdempotencyKey = "idempotency_key"
	CtxRequestID      = "request_id"
)

// RequestContext extracts the protocol headers, generates a request id when
// the client sent none, and echoes both back on the response along with the
// advertised API version.
func RequestContext(apiVersion string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(CtxRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderAPIVersion, apiVersion)

		if idemKey := c.GetHeader(HeaderIdempotencyKey); idemKey != "" {
			c.Set(CtxIdempotencyKey, idemKey)
			c.Header(HeaderIdempotencyKey, idemKey)
		}

		c.Next()
	}
}

// MaxBodySize caps the request body so a hostile agent cannot exhaust memory.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// BearerAuth validates the Authorization header against the configured
// verifier. All failures collapse to a single 401 so probes learn nothing.
func BearerAuth(verifier ports.AuthVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Error(c, apperror.Unauthorized())
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if err := verifier.Verify(token); err != nil {
			response.Error(c, apperror.Unauthorized())
			c.Abort()
			return
		}

		c.Next()
	}
}

// SignatureVerify checks the request HMAC when a shared secret is configured.
// The signature covers "timestamp.body"; the timestamp header bounds replay.
func SignatureVerify(sigSvc ports.SignatureService, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, apperror.Validation("", "cannot read request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		signature := c.GetHeader(HeaderSignature)
		timestamp := c.GetHeader(HeaderTimestamp)
		if err := sigSvc.Verify(secret, timestamp, bodyBytes, signature); err != nil {
			response.Error(c, apperror.SignatureInvalid(err.Error()))
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware that renders the protocol
// error envelope instead of an empty 500.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.Internal(nil))
				c.Abort()
			}
		}()
		c.Next()
	}
}
