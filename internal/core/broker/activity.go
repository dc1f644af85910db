package broker

import "time"

// ActivityType identifies a broker event in the activity log.
type ActivityType string

const (
	ActivityEnqueue     ActivityType = "enqueue"
	ActivityDequeue     ActivityType = "dequeue"
	ActivityPublish     ActivityType = "publish"
	ActivitySubscribe   ActivityType = "subscribe"
	ActivityUnsubscribe ActivityType = "unsubscribe"
)

// Activity is one recorded broker event.
type Activity struct {
	ID             string       `json:"id"`
	Type           ActivityType `json:"type"`
	Topic          string       `json:"topic,omitempty"`
	MessageID      string       `json:"message_id,omitempty"`
	SubscriptionID uint64       `json:"subscription_id,omitempty"`
	Recipients     int          `json:"recipients,omitempty"` // for publish events
	Reason         string       `json:"reason,omitempty"`     // for unsubscribe events
	Timestamp      time.Time    `json:"timestamp"`
}

// ActivityRecorder persists activity events. Recording is best effort: the
// broker logs and ignores recorder errors.
type ActivityRecorder interface {
	Record(activity Activity) error
}

// ActivityReader reads recorded activity.
type ActivityReader interface {
	// List returns recent activity events, newest first.
	// Limit of 0 returns all events.
	List(limit int) ([]Activity, error)
	// ListSince returns activity events since the given time, newest first.
	ListSince(since time.Time, limit int) ([]Activity, error)
}

type nopRecorder struct{}

func (nopRecorder) Record(Activity) error { return nil }
