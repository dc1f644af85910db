package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/courier/internal/core/broker"
	"github.com/hay-kot/courier/internal/core/config"
	"github.com/hay-kot/courier/internal/printer"
	"github.com/hay-kot/courier/internal/server"
	"github.com/hay-kot/courier/internal/store/jsonfile"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	flags  *Flags
	broker *broker.Broker
	stdin  io.Reader
}

func newTestEnv(t *testing.T) *testEnv {
	return newEnv(t, false)
}

func newEnv(t *testing.T, withActivity bool) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Server.HeartbeatInterval = 0

	var (
		recorder broker.ActivityRecorder
		reader   broker.ActivityReader
	)
	if withActivity {
		store := jsonfile.NewActivityStore(cfg.DataDir)
		recorder, reader = store, store
	}

	b := broker.New(cfg.BrokerOptions(), zerolog.Nop(), recorder)
	ts := httptest.NewServer(server.New(cfg.Server, b, reader, zerolog.Nop()).Handler())
	t.Cleanup(func() {
		_ = b.Close(context.Background())
		ts.Close()
	})

	return &testEnv{
		flags: &Flags{
			URL:        ts.URL,
			ConfigPath: filepath.Join(cfg.DataDir, "missing.yaml"),
			DataDir:    cfg.DataDir,
			Config:     &cfg,
		},
		broker: b,
		stdin:  strings.NewReader(""),
	}
}

// run executes args against a root command wired like main and returns
// stdout and the printer output.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	ctx := printer.NewContext(context.Background(), printer.New(&stderr))

	msgCmd := NewMsgCmd(e.flags)
	msgCmd.stdin = e.stdin

	app := &cli.Command{
		Name:           "courier",
		Writer:         &stdout,
		ErrWriter:      io.Discard,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
	app = msgCmd.Register(app)
	app = NewDocCmd(e.flags).Register(app)
	app = NewConfigValidateCmd(e.flags).Register(app)
	app = NewDoctorCmd(e.flags).Register(app)

	err := app.Run(ctx, append([]string{"courier"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestMsg_SendReceive(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, err := env.run(t, "msg", "send", "hello", "world")
	require.NoError(t, err)
	assert.Contains(t, stderr, "queued")
	assert.Equal(t, 1, env.broker.QueueLen())

	stdout, _, err := env.run(t, "msg", "receive")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", stdout)
}

func TestMsg_SendFromStdin(t *testing.T) {
	env := newTestEnv(t)
	env.stdin = strings.NewReader("from stdin\n")

	_, _, err := env.run(t, "msg", "send")
	require.NoError(t, err)

	msg, ok := env.broker.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "from stdin", msg.Body)
}

func TestMsg_SendEmptyStdin(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, "msg", "send")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid message")
	assert.Zero(t, env.broker.QueueLen())
}

func TestMsg_ReceiveJSON(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.broker.Enqueue("payload")
	require.NoError(t, err)

	stdout, _, err := env.run(t, "msg", "receive", "--json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, map[string]string{"header": broker.Header, "body": "payload"}, got)
}

func TestMsg_ReceiveEmpty(t *testing.T) {
	env := newTestEnv(t)

	stdout, stderr, err := env.run(t, "msg", "receive")
	require.Error(t, err)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "queue is empty")
}

func TestMsg_PubFromFile(t *testing.T) {
	env := newTestEnv(t)

	sub, err := env.broker.Subscribe("logs")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "build.log")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\n"), 0o644))

	_, stderr, err := env.run(t, "msg", "pub", "--topic", "logs", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "published to logs")

	select {
	case msg := <-sub.C():
		assert.Equal(t, "line one\nline two", msg.Body)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMsg_PubInvalidTopic(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, "msg", "pub", "--topic", strings.Repeat("t", 300), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid topic")
}

func TestMsg_Sub(t *testing.T) {
	env := newTestEnv(t)

	type result struct {
		stdout string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		stdout, _, err := env.run(t, "msg", "sub", "orders", "--count", "2")
		done <- result{stdout, err}
	}()

	require.Eventually(t, func() bool {
		topics, err := env.broker.Topics("orders")
		return err == nil && len(topics) == 1 && topics[0].SubscriberCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := env.broker.Publish("orders", "first")
	require.NoError(t, err)
	_, err = env.broker.Publish("orders", "second")
	require.NoError(t, err)

	var res result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sub did not exit after --count messages")
	}
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)

	var msg broker.Message
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &msg))
	assert.Equal(t, "second", msg.Body)
	assert.Equal(t, "orders", msg.Topic)
}

func TestMsg_Topics(t *testing.T) {
	env := newTestEnv(t)
	for _, topic := range []string{"orders.created", "orders.paid", "users"} {
		_, err := env.broker.Publish(topic, "x")
		require.NoError(t, err)
	}

	t.Run("table", func(t *testing.T) {
		stdout, _, err := env.run(t, "msg", "topics")
		require.NoError(t, err)
		assert.Contains(t, stdout, "TOPIC")
		assert.Contains(t, stdout, "orders.paid")
		assert.Contains(t, stdout, "users")
	})

	t.Run("json with match", func(t *testing.T) {
		stdout, _, err := env.run(t, "msg", "topics", "--match", "orders.*", "--json")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 2)

		var info broker.TopicInfo
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &info))
		assert.Equal(t, "orders.created", info.Name)
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, _, err := env.run(t, "msg", "topics", "--match", "orders[")
		require.Error(t, err)
	})
}

func TestMsg_Activity(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t)

		_, _, err := env.run(t, "msg", "activity")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "activity log is disabled")
	})

	t.Run("table and json", func(t *testing.T) {
		env := newEnv(t, true)
		_, err := env.broker.Enqueue("a")
		require.NoError(t, err)
		_, err = env.broker.Publish("news", "b")
		require.NoError(t, err)

		stdout, _, err := env.run(t, "msg", "activity")
		require.NoError(t, err)
		assert.Contains(t, stdout, "TYPE")
		assert.Contains(t, stdout, "to 0 subscriber(s)")

		stdout, _, err = env.run(t, "msg", "activity", "--json", "--limit", "1")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 1)

		var a broker.Activity
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &a))
		assert.Equal(t, broker.ActivityPublish, a.Type)
		assert.Equal(t, "news", a.Topic)
	})
}

func TestDoc(t *testing.T) {
	env := newTestEnv(t)

	t.Run("api", func(t *testing.T) {
		stdout, _, err := env.run(t, "doc", "api", "--plain")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(stdout, "# courier HTTP API"))
		assert.Contains(t, stdout, "/subscribe/:topic")
	})

	t.Run("config", func(t *testing.T) {
		stdout, _, err := env.run(t, "doc", "config")
		require.NoError(t, err)
		assert.Contains(t, stdout, "overflow_policy: drop_oldest")
		assert.Contains(t, stdout, "heartbeat_interval: 30s")
		assert.NotContains(t, stdout, "datadir")

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(stdout), 0o644))

		cfg, err := config.Load(path, t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, config.DefaultConfig().Broker, cfg.Broker)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid text", func(t *testing.T) {
		env := newTestEnv(t)

		stdout, _, err := env.run(t, "config", "validate")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Configuration is valid")
	})

	t.Run("invalid json", func(t *testing.T) {
		env := newTestEnv(t)
		env.flags.Config.Queue.MaxDepth = -1

		stdout, _, err := env.run(t, "config", "validate", "--format", "json")
		require.Error(t, err)

		var out struct {
			Valid  bool `json:"valid"`
			Errors []struct {
				Item string `json:"item"`
			} `json:"errors"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.False(t, out.Valid)
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "queue.max_depth", out.Errors[0].Item)
	})

	t.Run("unknown format", func(t *testing.T) {
		env := newTestEnv(t)

		_, _, err := env.run(t, "config", "validate", "--format", "xml")
		require.Error(t, err)
	})
}

func TestDoctor(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.broker.Enqueue("waiting")
		require.NoError(t, err)

		stdout, _, err := env.run(t, "doctor")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Server")
		assert.Contains(t, stdout, "1 message(s) waiting")
		assert.Contains(t, stdout, "0 failed")
	})

	t.Run("unreachable json", func(t *testing.T) {
		env := newTestEnv(t)
		env.flags.URL = "http://127.0.0.1:1"

		stdout, _, err := env.run(t, "doctor", "--format", "json")
		require.Error(t, err)

		var out struct {
			Healthy bool `json:"healthy"`
			Summary struct {
				Failed int `json:"failed"`
			} `json:"summary"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.False(t, out.Healthy)
		assert.Equal(t, 1, out.Summary.Failed)
	})
}
