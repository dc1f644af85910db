package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// OverflowPolicy decides what happens when a subscriber's buffer is full at
// publish time. The publisher is never blocked by either policy.
type OverflowPolicy string

const (
	// OverflowDropOldest discards the oldest buffered message of the slow
	// subscriber to admit the new one.
	OverflowDropOldest OverflowPolicy = "drop_oldest"
	// OverflowDisconnect closes the slow subscription.
	OverflowDisconnect OverflowPolicy = "disconnect"
)

// Valid reports whether p is a known policy.
func (p OverflowPolicy) Valid() bool {
	return p == OverflowDropOldest || p == OverflowDisconnect
}

// Reap reasons passed to the reaper.
const (
	ReasonClosed   = "closed"
	ReasonOverflow = "overflow"
	ReasonPanic    = "delivery failed"
)

// PublishResult summarizes one fan-out. Delivered counts subscriptions whose
// buffer accepted the message; it says nothing about receipt by the client.
type PublishResult struct {
	Message   Message
	Delivered int
	Dropped   int
	Reaped    int
}

// reaper removes a subscription after a failed delivery and reports whether
// the removal happened.
type reaper func(sub *Subscription, reason string) bool

// PubSubDispatcher fans published messages out to the live subscribers of a
// topic. It copies the subscriber set under the registry lock and delivers
// outside of it.
type PubSubDispatcher struct {
	registry *TopicRegistry
	policy   OverflowPolicy
	reap     reaper
	logger   zerolog.Logger
	now      func() time.Time
}

// NewPubSubDispatcher creates a dispatcher over registry. Failed subscriptions
// are removed through reap.
func NewPubSubDispatcher(registry *TopicRegistry, policy OverflowPolicy, reap reaper, logger zerolog.Logger) *PubSubDispatcher {
	if !policy.Valid() {
		policy = OverflowDropOldest
	}
	if reap == nil {
		reap = func(sub *Subscription, _ string) bool { return registry.Unsubscribe(sub) }
	}
	return &PubSubDispatcher{
		registry: registry,
		policy:   policy,
		reap:     reap,
		logger:   logger,
		now:      time.Now,
	}
}

// Publish builds a message for topic and offers it once to every subscription
// active on the topic at this moment. A subscription that is closed, overflows
// under the disconnect policy, or fails delivery is reaped; the remaining
// subscribers are unaffected.
func (d *PubSubDispatcher) Publish(topic, body string) PublishResult {
	msg := newMessage(topic, body, d.now())

	if !d.registry.pruneEmpty {
		d.registry.EnsureTopic(topic)
	}

	result := PublishResult{Message: msg}
	for _, sub := range d.registry.Subscribers(topic) {
		outcome, err := d.deliver(sub, msg)
		switch {
		case err != nil:
			reason := ReasonClosed
			if !errors.Is(err, ErrSubscriptionClosed) {
				reason = ReasonPanic
				d.logger.Error().Err(err).Uint64("subscription", sub.ID()).Str("topic", topic).Msg("delivery failed")
			}
			if d.reap(sub, reason) {
				result.Reaped++
			}
		case outcome == offerOverflow:
			d.logger.Warn().Uint64("subscription", sub.ID()).Str("topic", topic).Msg("subscriber buffer full, disconnecting")
			if d.reap(sub, ReasonOverflow) {
				result.Reaped++
			}
		case outcome == offerDroppedOldest:
			result.Delivered++
			result.Dropped++
		default:
			result.Delivered++
		}
	}

	return result
}

// deliver isolates a single delivery attempt so a failure cannot escape into
// the fan-out loop.
func (d *PubSubDispatcher) deliver(sub *Subscription, msg Message) (outcome offerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deliver to subscription %d: %v", sub.ID(), r)
		}
	}()
	return sub.offer(msg, d.policy)
}
