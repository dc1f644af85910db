package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hay-kot/courier/internal/core/broker"
)

var errInvalidBody = errors.New("invalid request body")

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

// writeError maps err to a status code and a caller-safe message. Errors
// without a mapping are logged and reported as a generic 500.
func (s *Server) writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"

	switch {
	case errors.Is(err, errInvalidBody):
		status, msg = http.StatusBadRequest, "invalid request body"
	case errors.Is(err, broker.ErrEmptyBody):
		status, msg = http.StatusBadRequest, "message required"
	case errors.Is(err, broker.ErrInvalidTopic):
		status, msg = http.StatusBadRequest, "invalid topic"
	case errors.Is(err, broker.ErrInvalidPattern):
		status, msg = http.StatusBadRequest, "invalid topic pattern"
	case errors.Is(err, broker.ErrQueueFull):
		status, msg = http.StatusServiceUnavailable, "queue full"
	case errors.Is(err, broker.ErrClosed):
		status, msg = http.StatusServiceUnavailable, "broker closed"
	default:
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.AbortWithStatusJSON(status, errorBody(msg))
}
