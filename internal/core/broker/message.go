// Package broker implements the in-process message broker: a point-to-point
// FIFO queue and a topic based publish/subscribe bus.
package broker

import (
	"time"

	"github.com/google/uuid"
)

// Header is the fixed label carried by every message.
const Header = "Mensaje"

// DefaultTopic is used when a publisher or subscriber does not name a topic.
const DefaultTopic = "default"

// Message is a single unit of delivery. Messages are passed by value and are
// never modified after construction.
type Message struct {
	ID        string    `json:"id"`
	Header    string    `json:"header"`
	Body      string    `json:"body"`
	Topic     string    `json:"topic,omitempty"` // empty for point-to-point messages
	CreatedAt time.Time `json:"timestamp"`
}

// IsPointToPoint reports whether the message was sent through the queue
// rather than published to a topic.
func (m Message) IsPointToPoint() bool {
	return m.Topic == ""
}

func newMessage(topic, body string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Header:    Header,
		Body:      body,
		Topic:     topic,
		CreatedAt: now,
	}
}
