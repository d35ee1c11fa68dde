package response

import (
	"errors"
	"net/http"

	"agentic-checkout/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the inner object of the protocol error envelope.
type ErrorBody struct {
	Type    apperror.Type `json:"type"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Param   string        `json:"param,omitempty"`
}

// ErrorEnvelope is the wire shape of every error response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSON writes v as an application/json response.
func JSON(c *gin.Context, status int, v interface{}) {
	c.JSON(status, v)
}

// Raw writes pre-serialized JSON bytes unchanged, preserving byte equality
// between a fresh result and its idempotent replay.
func Raw(c *gin.Context, status int, body []byte) {
	c.Data(status, "application/json", body)
}

// Error renders err as the protocol envelope. *apperror.AppError values map
// to their declared status and code; anything else becomes an opaque 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, ErrorEnvelope{Error: ErrorBody{
			Type:    appErr.Type,
			Code:    appErr.Code,
			Message: appErr.Message,
			Param:   appErr.Param,
		}})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorEnvelope{Error: ErrorBody{
		Type:    apperror.TypeAPI,
		Code:    "api_error",
		Message: "Internal server error",
	}})
}
