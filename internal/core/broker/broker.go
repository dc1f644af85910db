package broker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/hay-kot/courier/internal/core/validate"
)

// Options configures a Broker.
type Options struct {
	// SubscriberBuffer is the capacity of each subscription's delivery channel.
	SubscriberBuffer int
	// OverflowPolicy applies when a subscription's buffer is full.
	OverflowPolicy OverflowPolicy
	// PruneEmptyTopics removes a topic once its last subscriber leaves.
	PruneEmptyTopics bool
	// MaxQueueDepth caps the point-to-point queue. Zero means unbounded.
	MaxQueueDepth int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		SubscriberBuffer: 64,
		OverflowPolicy:   OverflowDropOldest,
		MaxQueueDepth:    10000,
	}
}

// Broker owns the point-to-point queue and the topic registry and is shared
// by every request handler.
type Broker struct {
	queue      *MessageQueue
	registry   *TopicRegistry
	dispatcher *PubSubDispatcher
	recorder   ActivityRecorder
	logger     zerolog.Logger
	now        func() time.Time
	closed     atomic.Bool
}

// New creates a broker. A nil recorder disables the activity log.
func New(opts Options, logger zerolog.Logger, recorder ActivityRecorder) *Broker {
	if recorder == nil {
		recorder = nopRecorder{}
	}

	b := &Broker{
		queue:    NewMessageQueue(opts.MaxQueueDepth),
		registry: NewTopicRegistry(opts.SubscriberBuffer, opts.PruneEmptyTopics),
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
	b.dispatcher = NewPubSubDispatcher(b.registry, opts.OverflowPolicy, b.reap, logger)
	return b
}

// Enqueue appends a point-to-point message with the given body.
func (b *Broker) Enqueue(body string) (Message, error) {
	if b.closed.Load() {
		return Message{}, ErrClosed
	}
	if err := validate.MessageBody(body); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrEmptyBody, err)
	}

	msg := newMessage("", body, b.now())
	if err := b.queue.Enqueue(msg); err != nil {
		return Message{}, err
	}

	b.logger.Info().Str("message", msg.ID).Msg("message enqueued")
	b.record(Activity{Type: ActivityEnqueue, MessageID: msg.ID})
	return msg, nil
}

// Dequeue removes the oldest queued message. The boolean is false when the
// queue is empty. Messages left in the queue can still be drained after Close.
func (b *Broker) Dequeue() (Message, bool) {
	msg, ok := b.queue.Dequeue()
	if ok {
		b.record(Activity{Type: ActivityDequeue, MessageID: msg.ID})
	}
	return msg, ok
}

// QueueLen returns the number of messages waiting in the queue.
func (b *Broker) QueueLen() int {
	return b.queue.Len()
}

// Publish fans body out to the current subscribers of topic. An empty topic
// publishes to DefaultTopic.
func (b *Broker) Publish(topic, body string) (PublishResult, error) {
	if b.closed.Load() {
		return PublishResult{}, ErrClosed
	}

	topic, err := normalizeTopic(topic)
	if err != nil {
		return PublishResult{}, err
	}
	if err := validate.MessageBody(body); err != nil {
		return PublishResult{}, fmt.Errorf("%w: %w", ErrEmptyBody, err)
	}

	result := b.dispatcher.Publish(topic, body)

	b.logger.Info().
		Str("topic", topic).
		Str("message", result.Message.ID).
		Int("delivered", result.Delivered).
		Int("dropped", result.Dropped).
		Int("reaped", result.Reaped).
		Msg("message published")
	b.record(Activity{
		Type:       ActivityPublish,
		Topic:      topic,
		MessageID:  result.Message.ID,
		Recipients: result.Delivered,
	})
	return result, nil
}

// Subscribe attaches a new subscription to topic. An empty topic subscribes to
// DefaultTopic. The caller must eventually pass the subscription to
// Unsubscribe.
func (b *Broker) Subscribe(topic string) (*Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	topic, err := normalizeTopic(topic)
	if err != nil {
		return nil, err
	}

	sub, err := b.registry.Subscribe(topic)
	if err != nil {
		return nil, err
	}

	b.logger.Debug().Str("topic", topic).Uint64("subscription", sub.ID()).Msg("subscribed")
	b.record(Activity{Type: ActivitySubscribe, Topic: topic, SubscriptionID: sub.ID()})
	return sub, nil
}

// Unsubscribe detaches sub from its topic and closes it. It is safe to call
// more than once; only the first call has an effect.
func (b *Broker) Unsubscribe(sub *Subscription) bool {
	return b.unsubscribe(sub, "")
}

func (b *Broker) reap(sub *Subscription, reason string) bool {
	return b.unsubscribe(sub, reason)
}

func (b *Broker) unsubscribe(sub *Subscription, reason string) bool {
	if !b.registry.Unsubscribe(sub) {
		return false
	}

	b.logger.Debug().Str("topic", sub.Topic()).Uint64("subscription", sub.ID()).Str("reason", reason).Msg("unsubscribed")
	b.record(Activity{
		Type:           ActivityUnsubscribe,
		Topic:          sub.Topic(),
		SubscriptionID: sub.ID(),
		Reason:         reason,
	})
	return true
}

// Topics returns every topic with its number of live subscribers. A non-empty
// match restricts the result to topic names matching the glob pattern. A topic
// whose name contains glob metacharacters is also matched by its exact name.
func (b *Broker) Topics(match string) ([]TopicInfo, error) {
	infos := b.registry.Snapshot()
	if match == "" {
		return infos, nil
	}

	if err := validate.TopicPattern(match); err != nil {
		for _, info := range infos {
			if info.Name == match {
				return []TopicInfo{info}, nil
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	filtered := infos[:0]
	for _, info := range infos {
		if info.Name == match {
			filtered = append(filtered, info)
			continue
		}
		if ok, _ := doublestar.Match(match, info.Name); ok {
			filtered = append(filtered, info)
		}
	}
	return filtered, nil
}

// TopicCount returns the number of known topics.
func (b *Broker) TopicCount() int {
	return b.registry.Len()
}

// Close stops the broker. Further enqueue, publish and subscribe calls fail
// with ErrClosed, and every live subscription is closed so streams consuming
// them terminate. Close returns ctx.Err() if ctx ends before all subscriptions
// are closed.
func (b *Broker) Close(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	detached := b.registry.detachAll()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, sub := range detached {
			sub.finishClose()
		}
	}()

	select {
	case <-done:
		b.logger.Info().Int("subscriptions", len(detached)).Msg("broker closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broker) record(a Activity) {
	if a.Timestamp.IsZero() {
		a.Timestamp = b.now()
	}
	if err := b.recorder.Record(a); err != nil {
		b.logger.Debug().Err(err).Str("type", string(a.Type)).Msg("record activity")
	}
}

func normalizeTopic(topic string) (string, error) {
	if topic == "" {
		return DefaultTopic, nil
	}
	if err := validate.TopicName(topic); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTopic, err)
	}
	return topic, nil
}
