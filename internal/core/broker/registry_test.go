package broker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicRegistry_SubscribeCreatesTopic(t *testing.T) {
	r := NewTopicRegistry(4, false)

	sub, err := r.Subscribe("news")
	require.NoError(t, err)

	assert.Equal(t, "news", sub.Topic())
	assert.Equal(t, StateActive, sub.State())
	assert.Equal(t, []TopicInfo{{Name: "news", SubscriberCount: 1}}, r.Snapshot())

	r.Unsubscribe(sub)
}

func TestTopicRegistry_IDsAreUnique(t *testing.T) {
	r := NewTopicRegistry(1, false)

	a, err := r.Subscribe("news")
	require.NoError(t, err)
	r.Unsubscribe(a)

	b, err := r.Subscribe("news")
	require.NoError(t, err)
	defer r.Unsubscribe(b)

	assert.NotEqual(t, a.ID(), b.ID())
}

func TestTopicRegistry_UnsubscribeIsIdempotent(t *testing.T) {
	r := NewTopicRegistry(1, false)

	sub, err := r.Subscribe("news")
	require.NoError(t, err)

	assert.True(t, r.Unsubscribe(sub))
	assert.False(t, r.Unsubscribe(sub))
	assert.False(t, r.Unsubscribe(nil))

	assert.Equal(t, StateClosed, sub.State())
	_, open := <-sub.C()
	assert.False(t, open, "delivery channel is closed")

	select {
	case <-sub.Done():
	default:
		t.Fatal("done channel should be closed")
	}

	// The topic is retained without pruning.
	assert.Equal(t, []TopicInfo{{Name: "news", SubscriberCount: 0}}, r.Snapshot())
}

func TestTopicRegistry_PruneEmptyTopics(t *testing.T) {
	r := NewTopicRegistry(1, true)

	a, err := r.Subscribe("news")
	require.NoError(t, err)
	b, err := r.Subscribe("news")
	require.NoError(t, err)

	r.Unsubscribe(a)
	assert.Equal(t, []TopicInfo{{Name: "news", SubscriberCount: 1}}, r.Snapshot())

	r.Unsubscribe(b)
	assert.Empty(t, r.Snapshot())
	assert.Equal(t, 0, r.Len())
}

func TestTopicRegistry_SnapshotSortedByName(t *testing.T) {
	r := NewTopicRegistry(1, false)

	for _, name := range []string{"sports", "alerts", "news"} {
		r.EnsureTopic(name)
	}

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "alerts", snap[0].Name)
	assert.Equal(t, "news", snap[1].Name)
	assert.Equal(t, "sports", snap[2].Name)
}

func TestTopicRegistry_EnsureTopicIsIdempotent(t *testing.T) {
	r := NewTopicRegistry(1, false)

	sub, err := r.Subscribe("news")
	require.NoError(t, err)
	defer r.Unsubscribe(sub)

	info := r.EnsureTopic("news")
	assert.Equal(t, TopicInfo{Name: "news", SubscriberCount: 1}, info)
	assert.Equal(t, 1, r.Len())
}

func TestTopicRegistry_SubscribersReturnsCopy(t *testing.T) {
	r := NewTopicRegistry(1, false)

	sub, err := r.Subscribe("news")
	require.NoError(t, err)

	subs := r.Subscribers("news")
	require.Len(t, subs, 1)

	r.Unsubscribe(sub)
	assert.Len(t, subs, 1, "copy is unaffected by later removal")
	assert.Empty(t, r.Subscribers("news"))
	assert.Nil(t, r.Subscribers("missing"))
}

func TestTopicRegistry_DetachAll(t *testing.T) {
	r := NewTopicRegistry(1, false)

	a, err := r.Subscribe("news")
	require.NoError(t, err)
	b, err := r.Subscribe("sports")
	require.NoError(t, err)

	detached := r.detachAll()
	assert.ElementsMatch(t, []*Subscription{a, b}, detached)
	for _, s := range detached {
		assert.Equal(t, StateClosing, s.State())
		s.finishClose()
	}

	assert.False(t, r.Unsubscribe(a), "already detached")

	_, err = r.Subscribe("news")
	require.ErrorIs(t, err, ErrClosed)
}

func TestTopicRegistry_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	r := NewTopicRegistry(1, false)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				sub, err := r.Subscribe("news")
				if err != nil {
					t.Error(err)
					return
				}
				_ = r.Snapshot()
				if !r.Unsubscribe(sub) {
					t.Error("first unsubscribe should perform the removal")
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []TopicInfo{{Name: "news", SubscriberCount: 0}}, r.Snapshot())
}

func TestTopicRegistry_ConcurrentUnsubscribeSingleWinner(t *testing.T) {
	r := NewTopicRegistry(1, false)

	sub, err := r.Subscribe("news")
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Unsubscribe(sub) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, StateClosed, sub.State())
}
