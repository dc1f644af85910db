// Package validate provides shared validation functions.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxTopicLength is the longest topic name accepted, in bytes.
const MaxTopicLength = 256

// MessageBody validates a message body is present. Whitespace-only bodies are
// accepted as-is.
func MessageBody(body string) error {
	if body == "" {
		return errors.New("message is required")
	}
	return nil
}

// TopicName validates a topic name. Any non-empty string up to
// MaxTopicLength bytes is accepted.
func TopicName(name string) error {
	if name == "" {
		return errors.New("topic is required")
	}
	if len(name) > MaxTopicLength {
		return fmt.Errorf("topic exceeds %d bytes", MaxTopicLength)
	}
	return nil
}

// TopicPattern validates a glob used to filter topic names.
func TopicPattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return errors.New("pattern is required")
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid pattern %q", pattern)
	}
	return nil
}
