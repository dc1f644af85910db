package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hay-kot/courier/internal/core/broker"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 1000
)

type messageRequest struct {
	Message string `json:"message"`
	Topic   string `json:"topic"`
}

// receivedMessage is the point-to-point wire shape returned by /receive.
type receivedMessage struct {
	Header string `json:"header"`
	Body   string `json:"body"`
}

// bindMessage decodes a JSON request body. An empty body decodes to the zero
// request so that it is reported as a missing message.
func bindMessage(c *gin.Context) (messageRequest, error) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return messageRequest{}, errInvalidBody
	}
	return req, nil
}

func (s *Server) handleSend(c *gin.Context) {
	req, err := bindMessage(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if _, err := s.broker.Enqueue(req.Message); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (s *Server) handleReceive(c *gin.Context) {
	msg, ok := s.broker.Dequeue()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": receivedMessage{Header: msg.Header, Body: msg.Body},
	})
}

func (s *Server) handlePublish(c *gin.Context) {
	req, err := bindMessage(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	result, err := s.broker.Publish(req.Topic, req.Message)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "published",
		"topic":  result.Message.Topic,
	})
}

func (s *Server) handleTopics(c *gin.Context) {
	topics, err := s.broker.Topics(c.Query("match"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"queueDepth": s.broker.QueueLen(),
		"topics":     s.broker.TopicCount(),
	})
}

func (s *Server) handleActivity(c *gin.Context) {
	if s.activity == nil {
		c.JSON(http.StatusNotFound, errorBody("activity log disabled"))
		return
	}

	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, errorBody("invalid limit"))
			return
		}
		limit = min(n, maxActivityLimit)
	}

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody("invalid since, expected RFC3339"))
			return
		}
		since = t
	}

	activities, err := s.activity.ListSince(since, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if activities == nil {
		activities = []broker.Activity{}
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

// handleRoute answers in the representation named by the type query parameter.
func handleRoute(c *gin.Context) {
	switch c.Query("type") {
	case "text":
		c.String(http.StatusOK, "Mensaje de texto enviado.")
	case "json":
		c.JSON(http.StatusOK, gin.H{"message": "Mensaje en formato JSON enviado."})
	default:
		c.String(http.StatusBadRequest, "Tipo de mensaje no soportado.")
	}
}
