package broker

import (
	"sort"
	"sync"
)

// TopicInfo is a point-in-time view of one topic.
type TopicInfo struct {
	Name            string `json:"name"`
	SubscriberCount int    `json:"subscriberCount"`
}

// topic holds the live subscriptions of one name. Every member of subs is
// Active: removal from the set and the Active to Closing transition happen in
// the same critical section.
type topic struct {
	name string
	subs map[uint64]*Subscription
}

// TopicRegistry maps topic names to their live subscriptions. Topics are
// created on demand by publish and subscribe.
type TopicRegistry struct {
	mu         sync.RWMutex
	topics     map[string]*topic
	nextID     uint64
	buffer     int
	pruneEmpty bool
	closed     bool
}

// NewTopicRegistry creates a registry whose subscriptions buffer up to buffer
// messages each. With pruneEmpty set, a topic is removed when its last
// subscriber leaves.
func NewTopicRegistry(buffer int, pruneEmpty bool) *TopicRegistry {
	if buffer < 1 {
		buffer = 1
	}
	return &TopicRegistry{
		topics:     make(map[string]*topic),
		buffer:     buffer,
		pruneEmpty: pruneEmpty,
	}
}

// EnsureTopic returns the topic with the given name, creating it when it does
// not exist yet.
func (r *TopicRegistry) EnsureTopic(name string) TopicInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.ensureTopicLocked(name)
	return TopicInfo{Name: t.name, SubscriberCount: len(t.subs)}
}

func (r *TopicRegistry) ensureTopicLocked(name string) *topic {
	t, ok := r.topics[name]
	if !ok {
		t = &topic{name: name, subs: make(map[uint64]*Subscription)}
		r.topics[name] = t
	}
	return t
}

// Subscribe attaches a new Active subscription to the named topic.
func (r *TopicRegistry) Subscribe(name string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	r.nextID++
	sub := newSubscription(r.nextID, name, r.buffer)
	r.ensureTopicLocked(name).subs[sub.id] = sub
	return sub, nil
}

// Unsubscribe removes sub from its topic and closes it. It reports whether
// this call performed the removal; repeated calls, or calls for a subscription
// already detached by Close, do nothing and return false.
func (r *TopicRegistry) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}

	r.mu.Lock()
	if !sub.beginClose() {
		r.mu.Unlock()
		return false
	}
	if t, ok := r.topics[sub.topic]; ok {
		delete(t.subs, sub.id)
		if r.pruneEmpty && len(t.subs) == 0 {
			delete(r.topics, sub.topic)
		}
	}
	r.mu.Unlock()

	sub.finishClose()
	return true
}

// Snapshot returns every topic with its number of active subscriptions,
// sorted by name.
func (r *TopicRegistry) Snapshot() []TopicInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]TopicInfo, 0, len(r.topics))
	for _, t := range r.topics {
		infos = append(infos, TopicInfo{Name: t.name, SubscriberCount: len(t.subs)})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Subscribers returns a copy of the active subscriptions of the named topic.
// The copy may be used without holding the registry lock.
func (r *TopicRegistry) Subscribers(name string) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.topics[name]
	if !ok {
		return nil
	}

	subs := make([]*Subscription, 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	return subs
}

// Len returns the number of known topics.
func (r *TopicRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}

// detachAll marks the registry closed and moves every subscription to
// Closing. The caller finishes closing the returned subscriptions.
func (r *TopicRegistry) detachAll() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	var detached []*Subscription
	for _, t := range r.topics {
		for id, s := range t.subs {
			if s.beginClose() {
				detached = append(detached, s)
			}
			delete(t.subs, id)
		}
	}
	return detached
}
