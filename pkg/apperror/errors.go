package apperror

import (
	"fmt"
	"net/http"
)

// Type is the coarse error class carried in the error envelope.
type Type string

const (
	TypeInvalidRequest Type = "invalid_request_error"
	TypeAuthentication Type = "authentication_error"
	TypeRateLimit      Type = "rate_limit_error"
	TypeAPI            Type = "api_error"
)

// AppError is a structured protocol error that maps to the HTTP envelope.
// The wrapped internal error is never exposed to clients.
type AppError struct {
	Type       Type   `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Param      string `json:"param,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError.
func New(typ Type, code, message string, httpStatus int) *AppError {
	return &AppError{Type: typ, Code: code, Message: message, HTTPStatus: httpStatus}
}

// ---- Request validation ----

// Validation reports a malformed body or failed constraint. param is the
// path of the first offending field (e.g. "items[0].quantity").
func Validation(param, message string) *AppError {
	e := New(TypeInvalidRequest, "validation_error", message, http.StatusBadRequest)
	e.Param = param
	return e
}

// InvalidJSON reports an unparseable request body.
func InvalidJSON() *AppError {
	return New(TypeInvalidRequest, "invalid_json", "Request body is not valid JSON", http.StatusBadRequest)
}

// ---- Session lifecycle ----

// SessionNotFound reports a missing or expired session.
func SessionNotFound(id string) *AppError {
	return New(TypeInvalidRequest, "session_not_found", fmt.Sprintf("Checkout session %q not found", id), http.StatusNotFound)
}

// InvalidState reports a state machine rejection; reason names the states.
func InvalidState(reason string) *AppError {
	return New(TypeInvalidRequest, "invalid_state", reason, http.StatusBadRequest)
}

// ---- Payment ----

// PaymentAuthorizationFailed reports a PSP authorization decline.
func PaymentAuthorizationFailed(reason string) *AppError {
	return New(TypeInvalidRequest, "payment_authorization_failed", reason, http.StatusBadRequest)
}

// PaymentCaptureFailed reports a PSP capture rejection.
func PaymentCaptureFailed(reason string) *AppError {
	return New(TypeInvalidRequest, "payment_capture_failed", reason, http.StatusBadRequest)
}

// ---- Authentication ----

// Unauthorized reports a missing or wrong bearer credential.
func Unauthorized() *AppError {
	return New(TypeAuthentication, "unauthorized", "Missing or invalid credentials", http.StatusUnauthorized)
}

// SignatureInvalid reports a bad HMAC or stale timestamp.
func SignatureInvalid(message string) *AppError {
	return New(TypeAuthentication, "signature_invalid", message, http.StatusUnauthorized)
}

// ---- Idempotency ----

// IdempotentRequestFailed reports a replay against a key whose original
// execution failed. Clients must retry with a fresh key.
func IdempotentRequestFailed() *AppError {
	return New(TypeInvalidRequest, "idempotent_request_failed", "A previous request with this idempotency key failed; retry with a new key", http.StatusConflict)
}

// IdempotencyTimeout reports exhaustion while waiting on a concurrent
// execution holding the same key.
func IdempotencyTimeout() *AppError {
	return New(TypeInvalidRequest, "idempotency_timeout", "Timed out waiting for a concurrent request with this idempotency key", http.StatusConflict)
}

// ---- Rate limiting ----

// RateLimitExceeded reports an over-limit request.
func RateLimitExceeded() *AppError {
	return New(TypeRateLimit, "rate_limit_exceeded", "Too many requests", http.StatusTooManyRequests)
}

// ---- Internal ----

// Internal wraps an unexpected error as an opaque api_error. Stack traces,
// store keys, and provider responses stay server-side.
func Internal(err error) *AppError {
	e := New(TypeAPI, "api_error", "Internal server error", http.StatusInternalServerError)
	e.Err = err
	return e
}
