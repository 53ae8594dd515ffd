package bridge

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name     string
		messages []chatMessage
		want     string
	}{
		{
			name:     "single user message",
			messages: []chatMessage{{Role: "user", Content: "hello"}},
			want:     "hello",
		},
		{
			name: "system preamble",
			messages: []chatMessage{
				{Role: "system", Content: "You are terse."},
				{Role: "user", Content: "hello"},
			},
			want: "You are terse.\n\nhello",
		},
		{
			name: "history becomes transcript",
			messages: []chatMessage{
				{Role: "user", Content: "first question"},
				{Role: "assistant", Content: "first answer"},
				{Role: "user", Content: "second question"},
			},
			want: "User: first question\nAssistant: first answer\n\nsecond question",
		},
		{
			name: "full conversation",
			messages: []chatMessage{
				{Role: "system", Content: "Be brief."},
				{Role: "user", Content: "hi"},
				{Role: "assistant", Content: "hey"},
				{Role: "user", Content: "what now"},
			},
			want: "Be brief.\n\nUser: hi\nAssistant: hey\n\nwhat now",
		},
		{
			name: "trailing assistant message ignored",
			messages: []chatMessage{
				{Role: "user", Content: "ask"},
				{Role: "assistant", Content: "dangling"},
			},
			want: "ask",
		},
		{
			name: "empty messages skipped",
			messages: []chatMessage{
				{Role: "system", Content: "   "},
				{Role: "user", Content: "hello"},
			},
			want: "hello",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPrompt(tt.messages)
			if err != nil {
				t.Fatalf("buildPrompt: %v", err)
			}
			if got != tt.want {
				t.Errorf("buildPrompt = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildPromptNoUserMessage(t *testing.T) {
	_, err := buildPrompt([]chatMessage{{Role: "system", Content: "no ask"}})
	if err == nil {
		t.Fatal("expected error for message list without a user message")
	}
	if !strings.Contains(err.Error(), "user message") {
		t.Errorf("error = %q, want mention of user message", err)
	}

	if _, err := buildPrompt(nil); err == nil {
		t.Fatal("expected error for empty message list")
	}
}

func TestContentText(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    string
	}{
		{name: "plain string", content: "hello", want: "hello"},
		{
			name: "text parts joined",
			content: []any{
				map[string]any{"type": "text", "text": "one"},
				map[string]any{"type": "text", "text": "two"},
			},
			want: "one\ntwo",
		},
		{
			name: "non-text parts skipped",
			content: []any{
				map[string]any{"type": "image_url", "image_url": map[string]any{"url": "http://x"}},
				map[string]any{"type": "text", "text": "kept"},
			},
			want: "kept",
		},
		{name: "nil content", content: nil, want: ""},
		{name: "unexpected type", content: 42, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentText(tt.content); got != tt.want {
				t.Errorf("contentText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModelArg(t *testing.T) {
	if got := modelArg(""); got != "" {
		t.Errorf("modelArg(\"\") = %q, want empty", got)
	}
	if got := modelArg(defaultModelID); got != "" {
		t.Errorf("modelArg(%q) = %q, want empty", defaultModelID, got)
	}
	if got := modelArg("gpt-5"); got != "gpt-5" {
		t.Errorf("modelArg(gpt-5) = %q, want gpt-5", got)
	}
}

func TestDisplayModel(t *testing.T) {
	if got := displayModel(""); got != defaultModelID {
		t.Errorf("displayModel(\"\") = %q, want %q", got, defaultModelID)
	}
	if got := displayModel("sonnet-4.5"); got != "sonnet-4.5" {
		t.Errorf("displayModel = %q, want sonnet-4.5", got)
	}
}
