package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/hay-kot/courier/internal/core/broker"
	"github.com/hay-kot/courier/internal/core/validate"
	"github.com/hay-kot/courier/internal/styles"
)

// PublishForm wraps a huh.Form that collects a topic and a message body.
type PublishForm struct {
	form      *huh.Form
	topic     string
	message   string
	submitted bool
	cancelled bool
}

// PublishFormResult contains the form submission result.
type PublishFormResult struct {
	Topic   string
	Message string
}

// NewPublishForm creates a publish form. An empty topic is prefilled with
// the default topic.
func NewPublishForm(topic string) *PublishForm {
	if topic == "" {
		topic = broker.DefaultTopic
	}

	f := &PublishForm{topic: topic}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Topic").
				Value(&f.topic).
				Validate(validateTopicField),
			huh.NewText().
				Title("Message").
				Description("Sent as-is to every current subscriber").
				Value(&f.message).
				Lines(5).
				Validate(validateMessageField),
		),
	).WithTheme(styles.FormTheme()).WithShowHelp(true)

	return f
}

func validateTopicField(s string) error {
	return validate.TopicName(strings.TrimSpace(s))
}

func validateMessageField(s string) error {
	return validate.MessageBody(strings.TrimSpace(s))
}

// Form returns the underlying huh.Form for tea.Model integration.
func (f *PublishForm) Form() *huh.Form {
	return f.form
}

// Run shows the form on its own and blocks until it is submitted or aborted.
func (f *PublishForm) Run(ctx context.Context) error {
	if err := f.form.RunWithContext(ctx); err != nil {
		f.cancelled = true
		return err
	}
	f.submitted = true
	return nil
}

// Submitted returns true if the form was submitted.
func (f *PublishForm) Submitted() bool {
	return f.submitted
}

// Cancelled returns true if the form was cancelled.
func (f *PublishForm) Cancelled() bool {
	return f.cancelled
}

// SetSubmitted marks the form as submitted.
func (f *PublishForm) SetSubmitted() {
	f.submitted = true
}

// SetCancelled marks the form as cancelled.
func (f *PublishForm) SetCancelled() {
	f.cancelled = true
}

// Result returns the form result. Only valid if Submitted() is true.
func (f *PublishForm) Result() PublishFormResult {
	return PublishFormResult{
		Topic:   strings.TrimSpace(f.topic),
		Message: f.message,
	}
}

// View renders the form.
func (f *PublishForm) View() string {
	return f.form.View()
}
