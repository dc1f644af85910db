package broker

import (
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a Subscription.
type State int32

const (
	// StateActive subscriptions receive deliveries.
	StateActive State = iota
	// StateClosing subscriptions have been removed from their topic and accept
	// no further deliveries. Messages already buffered may still be drained.
	StateClosing
	// StateClosed is terminal. The delivery channel is closed.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// offerResult describes what happened to a single delivery attempt.
type offerResult int

const (
	offerDelivered offerResult = iota
	offerDroppedOldest
	offerOverflow
)

// Subscription is a consumer's attachment to a topic. It owns a bounded
// delivery channel; the registry owns its membership in the topic.
type Subscription struct {
	id    uint64
	topic string
	state atomic.Int32

	// mu serializes sends on ch with the close of ch.
	mu      sync.Mutex
	ch      chan Message
	done    chan struct{}
	dropped atomic.Uint64
}

func newSubscription(id uint64, topic string, buffer int) *Subscription {
	return &Subscription{
		id:    id,
		topic: topic,
		ch:    make(chan Message, buffer),
		done:  make(chan struct{}),
	}
}

// ID returns the subscription identifier. Identifiers are never reused within
// a broker.
func (s *Subscription) ID() uint64 { return s.id }

// Topic returns the name of the topic the subscription is attached to.
func (s *Subscription) Topic() string { return s.topic }

// C returns the delivery channel. It is closed once the subscription reaches
// StateClosed; buffered messages remain readable until then.
func (s *Subscription) C() <-chan Message { return s.ch }

// Done is closed as soon as the subscription leaves StateActive.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Subscription) State() State { return State(s.state.Load()) }

// Dropped returns how many buffered messages were discarded to make room for
// newer ones.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// beginClose moves the subscription from Active to Closing. Only the first
// caller succeeds. The registry calls it while holding its lock so that topic
// membership and state change together.
func (s *Subscription) beginClose() bool {
	if !s.state.CompareAndSwap(int32(StateActive), int32(StateClosing)) {
		return false
	}
	close(s.done)
	return true
}

// finishClose closes the delivery channel and marks the subscription Closed.
// It must run exactly once, after a successful beginClose.
func (s *Subscription) finishClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.ch)
	s.state.Store(int32(StateClosed))
}

// offer attempts a non-blocking delivery of msg. When the buffer is full the
// overflow policy decides between discarding the oldest buffered message and
// reporting an overflow so the caller can disconnect the subscription.
func (s *Subscription) offer(msg Message, policy OverflowPolicy) (offerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateActive {
		return 0, ErrSubscriptionClosed
	}

	select {
	case s.ch <- msg:
		return offerDelivered, nil
	default:
	}

	if policy == OverflowDisconnect {
		return offerOverflow, nil
	}

	result := offerDelivered
	select {
	case <-s.ch:
		s.dropped.Add(1)
		result = offerDroppedOldest
	default:
		// the consumer drained a slot in the meantime
	}

	select {
	case s.ch <- msg:
		return result, nil
	default:
		return offerOverflow, nil
	}
}
