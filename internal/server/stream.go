package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hay-kot/courier/internal/core/broker"
)

var keepaliveFrame = []byte(": keepalive\n\n")

// handleSubscribe attaches the request to a topic and streams every delivered
// message as one server-sent event until the client disconnects or the
// subscription is closed.
func (s *Server) handleSubscribe(c *gin.Context) {
	sub, err := s.broker.Subscribe(c.Param("topic"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer s.broker.Unsubscribe(sub)

	logger := s.logger.With().
		Str("topic", sub.Topic()).
		Uint64("subscription", sub.ID()).
		Logger()

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	logger.Debug().Msg("stream opened")

	reason := s.stream(c, sub)

	logger.Debug().Str("reason", reason).Uint64("dropped", sub.Dropped()).Msg("stream closed")
}

// stream runs the delivery loop and reports why it ended. Once the
// subscription leaves Active no further frames are written, even if messages
// are still buffered.
func (s *Server) stream(c *gin.Context, sub *broker.Subscription) string {
	var heartbeat <-chan time.Time
	if s.cfg.HeartbeatInterval > 0 {
		ticker := time.NewTicker(s.cfg.HeartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-sub.Done():
			return "subscription closed"
		default:
		}

		select {
		case <-ctx.Done():
			return "client disconnected"
		case <-sub.Done():
			return "subscription closed"
		case msg, ok := <-sub.C():
			if !ok {
				return "subscription closed"
			}
			if err := writeFrame(c.Writer, msg); err != nil {
				return "write failed"
			}
		case <-heartbeat:
			if _, err := c.Writer.Write(keepaliveFrame); err != nil {
				return "write failed"
			}
			c.Writer.Flush()
		}
	}
}

// writeFrame writes msg as a single `data: <json>\n\n` event and flushes it.
// JSON encoding escapes newlines, so the payload always fits one data line.
func writeFrame(w gin.ResponseWriter, msg broker.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	w.Flush()
	return nil
}
