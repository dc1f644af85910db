package broker

import "errors"

var (
	// ErrClosed is returned by operations attempted after Close.
	ErrClosed = errors.New("broker: closed")
	// ErrQueueFull is returned by Enqueue when the queue is at its configured depth.
	ErrQueueFull = errors.New("broker: queue full")
	// ErrSubscriptionClosed is returned when delivering to a subscription that is
	// no longer active.
	ErrSubscriptionClosed = errors.New("broker: subscription closed")
	// ErrEmptyBody is returned when a message has no body.
	ErrEmptyBody = errors.New("broker: message required")
	// ErrInvalidTopic is returned for topic names that fail validation.
	ErrInvalidTopic = errors.New("broker: invalid topic")
	// ErrInvalidPattern is returned when a topic filter is not a valid glob.
	ErrInvalidPattern = errors.New("broker: invalid topic pattern")
)
