package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/courier/internal/client"
	"github.com/hay-kot/courier/internal/core/config"
)

type stubHealth struct {
	health client.Health
	err    error
}

func (s stubHealth) BaseURL() string { return "http://broker.test" }

func (s stubHealth) Health(context.Context) (client.Health, error) {
	return s.health, s.err
}

func statuses(r Result) []Status {
	out := make([]Status, 0, len(r.Items))
	for _, item := range r.Items {
		out = append(out, item.Status)
	}
	return out
}

func TestConfigCheck(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.yaml")

	t.Run("nil config fails", func(t *testing.T) {
		r := NewConfigCheck(nil, missing).Run(context.Background())
		assert.Equal(t, []Status{StatusFail}, statuses(r))
	})

	t.Run("defaults pass", func(t *testing.T) {
		cfg := config.DefaultConfig()
		r := NewConfigCheck(&cfg, missing).Run(context.Background())

		_, _, failed := Summary([]Result{r})
		assert.Zero(t, failed)
		assert.NotEmpty(t, r.Items)
	})

	t.Run("errors and warnings are reported", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Server.HeartbeatInterval = 0
		cfg.Broker.OverflowPolicy = "block"

		r := NewConfigCheck(&cfg, missing).Run(context.Background())

		_, warned, failed := Summary([]Result{r})
		assert.Equal(t, 1, warned)
		assert.Equal(t, 1, failed)
	})
}

func TestServerCheck(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		r := NewServerCheck(stubHealth{health: client.Health{Status: "ok", QueueDepth: 3, Topics: 2}}).
			Run(context.Background())

		assert.Equal(t, []Status{StatusPass, StatusPass, StatusPass}, statuses(r))
		assert.Equal(t, "http://broker.test", r.Items[0].Label)
		assert.Equal(t, "3 message(s) waiting", r.Items[1].Detail)
	})

	t.Run("unreachable", func(t *testing.T) {
		r := NewServerCheck(stubHealth{err: errors.New("connection refused")}).Run(context.Background())

		require.Len(t, r.Items, 1)
		assert.Equal(t, StatusFail, r.Items[0].Status)
		assert.Equal(t, "connection refused", r.Items[0].Detail)
	})
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(CheckItem{Label: "x", Status: StatusWarn})
	require.NoError(t, err)
	assert.JSONEq(t, `{"label":"x","status":"warn"}`, string(data))
}
