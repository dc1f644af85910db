package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hay-kot/courier/internal/core/broker"
)

// ErrStop may be returned by a Subscribe handler to end the stream without
// error.
var ErrStop = errors.New("stop stream")

// maxFrameSize bounds a single event line.
const maxFrameSize = 1 << 20

// Subscribe streams messages published to topic and calls fn for each one, in
// order. It returns nil when ctx is cancelled, the server ends the stream, or
// fn returns ErrStop; any other error from fn is returned as is.
func (c *Client) Subscribe(ctx context.Context, topic string, fn func(broker.Message) error) error {
	path := "/subscribe"
	if topic != "" {
		path += "/" + url.PathEscape(topic)
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}

	err = readEvents(resp.Body, func(data string) error {
		var msg broker.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		return fn(msg)
	})

	switch {
	case errors.Is(err, ErrStop):
		return nil
	case err != nil && ctx.Err() != nil:
		return nil
	default:
		return err
	}
}

// readEvents parses a server-sent event stream and calls fn with the data of
// each event. Comment lines and fields other than data are ignored.
func readEvents(r io.Reader, fn func(data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	var data []string
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if len(data) == 0 {
				continue
			}
			payload := strings.Join(data, "\n")
			data = data[:0]
			if err := fn(payload); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
			// comment, used for keepalives
		default:
			field, value, _ := strings.Cut(line, ":")
			if field == "data" {
				data = append(data, strings.TrimPrefix(value, " "))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
