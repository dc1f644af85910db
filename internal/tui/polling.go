package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/courier/internal/client"
	"github.com/hay-kot/courier/internal/core/broker"
)

const requestTimeout = 5 * time.Second

// API is the part of the courier client the monitor uses.
type API interface {
	Topics(ctx context.Context, match string) ([]broker.TopicInfo, error)
	Health(ctx context.Context) (client.Health, error)
	Publish(ctx context.Context, topic, message string) (string, error)
	Subscribe(ctx context.Context, topic string, fn func(broker.Message) error) error
}

var _ API = (*client.Client)(nil)

// topicsLoadedMsg carries the result of one poll.
type topicsLoadedMsg struct {
	topics []broker.TopicInfo
	health client.Health
	err    error
}

// pollTickMsg is sent to trigger the next poll.
type pollTickMsg struct{}

// tailMsg carries one message received on the tailed topic.
type tailMsg struct {
	topic string
	msg   broker.Message
}

// tailEndedMsg is sent when the tail stream closes.
type tailEndedMsg struct {
	topic string
	err   error
}

// publishedMsg reports the outcome of a publish from the form.
type publishedMsg struct {
	topic string
	err   error
}

// loadTopics returns a command that fetches the topic list and health.
func loadTopics(api API, match string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		topics, err := api.Topics(ctx, match)
		if err != nil {
			return topicsLoadedMsg{err: err}
		}

		health, err := api.Health(ctx)
		if err != nil {
			return topicsLoadedMsg{err: err}
		}

		return topicsLoadedMsg{topics: topics, health: health}
	}
}

// schedulePollTick returns a command that schedules the next poll tick.
func schedulePollTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// startTail subscribes to topic in the background. Messages are delivered
// on the returned channel, which is closed after a final tailEndedMsg.
func startTail(ctx context.Context, api API, topic string) <-chan tea.Msg {
	ch := make(chan tea.Msg, 64)

	go func() {
		defer close(ch)

		err := api.Subscribe(ctx, topic, func(msg broker.Message) error {
			select {
			case ch <- tailMsg{topic: topic, msg: msg}:
				return nil
			case <-ctx.Done():
				return client.ErrStop
			}
		})
		if errors.Is(err, context.Canceled) {
			err = nil
		}

		select {
		case ch <- tailEndedMsg{topic: topic, err: err}:
		case <-ctx.Done():
		}
	}()

	return ch
}

// waitForTail returns a command that reads the next tail event.
func waitForTail(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// publish returns a command that publishes message to topic.
func publish(api API, topic, message string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := api.Publish(ctx, topic, message)
		return publishedMsg{topic: topic, err: err}
	}
}
