package printer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFatalError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "plain error",
			err:      errors.New("connection refused"),
			contains: []string{"╭ Error", "connection refused"},
		},
		{
			name:     "field errors keep context",
			err:      fmt.Errorf("load config: %w", criterio.NewFieldErrors("server.addr", errors.New("required"))),
			contains: []string{"Validation Error", "load config", "server.addr: ", "required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			New(&buf).FatalError(tt.err)

			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestFatalError_Nil(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).FatalError(nil)
	assert.Empty(t, buf.String())
}

func TestPlainOutputHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Successf("sent %d", 1)
	p.Warnf("careful")
	p.CheckItem("data dir", "writable")

	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), Check+" sent 1")
	assert.Contains(t, buf.String(), "  "+Check+" data dir: writable")
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Table([]string{"TOPIC", "SUBSCRIBERS"}, [][]string{
		{"orders", "2"},
		{"default", "0"},
	})

	out := buf.String()
	for _, want := range []string{"TOPIC", "SUBSCRIBERS", "orders", "default"} {
		assert.Contains(t, out, want)
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	ctx := NewContext(context.Background(), p)
	require.Same(t, p, Ctx(ctx))
	require.NotNil(t, Ctx(context.Background()))
}
