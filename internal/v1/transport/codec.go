// Package transport is the MessagePack-over-HTTP surface of the sync
// backend: request framing, the bearer-password filter, the API handlers
// and the router.
package transport

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/shoutwars/backend-go/internal/v1/apierr"
	"github.com/shoutwars/backend-go/internal/v1/logging"
)

// ContentType is the wire content type for every request and response.
const ContentType = "application/msgpack"

// errorResponse is the body for all caller-induced errors.
type errorResponse struct {
	Error string `msgpack:"error"`
}

// decode reads and unmarshals a msgpack request body.
func decode(c *gin.Context, dst any) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return apierr.BadRequest("Invalid request body.")
	}
	if len(body) == 0 {
		return apierr.BadRequest("Empty request body.")
	}
	if err := msgpack.Unmarshal(body, dst); err != nil {
		return apierr.BadRequest("Invalid request body.")
	}
	return nil
}

// respond marshals v as msgpack with the given status.
func respond(c *gin.Context, status int, v any) {
	body, err := msgpack.Marshal(v)
	if err != nil {
		// Serialization faults are internal: log, return an empty 500.
		logging.Error(c.Request.Context(), "Failed to encode response",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(status, ContentType, body)
}

// respondError maps err to its HTTP status. Caller-induced errors carry a
// msgpack {"error": message} body; internal faults are logged with the
// request method and path and return an empty 500.
func respondError(c *gin.Context, err error) {
	status := apierr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logging.Error(c.Request.Context(), "Internal server error",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Status(status)
		return
	}
	respond(c, status, errorResponse{Error: err.Error()})
}
