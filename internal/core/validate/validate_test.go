package validate

import (
	"strings"
	"testing"
)

func TestMessageBody(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain text", "hello", false},
		{"only spaces", "   ", false},
		{"json text", `{"a":1}`, false},
		{"empty string", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MessageBody(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("MessageBody(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestTopicName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "news", false},
		{"dotted", "orders.created", false},
		{"dashes and digits", "team-42_alerts", false},
		{"unicode letters", "noticias-españa", false},
		{"max length", strings.Repeat("a", MaxTopicLength), false},
		{"empty string", "", true},
		{"too long", strings.Repeat("a", MaxTopicLength+1), true},
		{"contains space", "breaking news", false},
		{"contains tab", "my\ttopic", false},
		{"contains star", "a*b", false},
		{"contains question mark", "news?", false},
		{"contains bracket", "news[1]", false},
		{"contains brace", "{a,b}", false},
		{"contains slash", "news/sports", false},
		{"only spaces", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TopicName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("TopicName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestTopicPattern(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"literal", "news", false},
		{"star", "orders.*", false},
		{"alternation", "{news,sports}", false},
		{"class", "team-[0-9]", false},
		{"empty", "", true},
		{"blank", "  ", true},
		{"unclosed class", "team-[0-9", true},
		{"unclosed brace", "{news,sports", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TopicPattern(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("TopicPattern(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
