// Package client is an HTTP client for a courier server.
package client

import (
	"bytes"
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

// APIError is returned for any non-success response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Received is a message taken from the point-to-point queue.
type Received struct {
	Header string `json:"header"`
	Body   string `json:"body"`
}

// Health is the server's liveness report.
type Health struct {
	Status     string `json:"status"`
	QueueDepth int    `json:"queueDepth"`
	Topics     int    `json:"topics"`
}

// Client talks to a courier server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL. A nil httpClient uses
// http.DefaultClient; it must not set a Timeout if Subscribe is used.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the server address the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send enqueues a point-to-point message.
func (c *Client) Send(ctx context.Context, message string) error {
	return c.doJSON(ctx, http.MethodPost, "/send", map[string]string{"message": message}, nil)
}

// Receive takes the oldest queued message. The boolean is false when the
// queue is empty.
func (c *Client) Receive(ctx context.Context) (Received, bool, error) {
	var out struct {
		Message Received `json:"message"`
	}

	resp, err := c.do(ctx, http.MethodGet, "/receive", nil)
	if err != nil {
		return Received{}, false, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNoContent {
		return Received{}, false, nil
	}
	if err := decodeResponse(resp, &out); err != nil {
		return Received{}, false, err
	}
	return out.Message, true, nil
}

// Publish sends message to topic and returns the topic the server used.
// An empty topic publishes to the server's default topic.
func (c *Client) Publish(ctx context.Context, topic, message string) (string, error) {
	req := map[string]string{"message": message}
	if topic != "" {
		req["topic"] = topic
	}

	var out struct {
		Topic string `json:"topic"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/publish", req, &out); err != nil {
		return "", err
	}
	return out.Topic, nil
}

// Topics lists topics and their subscriber counts, optionally filtered by a
// glob pattern.
func (c *Client) Topics(ctx context.Context, match string) ([]broker.TopicInfo, error) {
	path := "/topics"
	if match != "" {
		path += "?" + url.Values{"match": {match}}.Encode()
	}

	var out struct {
		Topics []broker.TopicInfo `json:"topics"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Topics, nil
}

// Health fetches the server's liveness report.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, &out)
	return out, err
}

// Activity lists recent broker activity, newest first.
func (c *Client) Activity(ctx context.Context, limit int) ([]broker.Activity, error) {
	path := "/activity"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var out struct {
		Activities []broker.Activity `json:"activities"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Activities, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	return decodeResponse(resp, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
