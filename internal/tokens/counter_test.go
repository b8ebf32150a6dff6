package tokens

import (
	"testing"

	"github.com/sandevgo/membot/internal/core"
)

func newTestCounter(t *testing.T, model string) *Counter {
	t.Helper()
	c, err := NewCounter(model)
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	return c
}

func TestEncodingForModel(t *testing.T) {
	tests := []struct {
		model    string
		expected string
	}{
		{"gpt-4", "cl100k_base"},
		{"gpt-4-turbo", "cl100k_base"},
		{"gpt-3.5-turbo", "cl100k_base"},
		{"text-davinci-003", "p50k_base"},
		{"curie", "p50k_base"},
		{"gpt-2", "r50k_base"},
		{"llama-3-70b", "cl100k_base"}, // unknown models fall back
		{"", "cl100k_base"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := encodingForModel(tt.model); got != tt.expected {
				t.Errorf("encodingForModel(%q) = %q, want %q", tt.model, got, tt.expected)
			}
		})
	}
}

func TestCount_EmptyText(t *testing.T) {
	c := newTestCounter(t, "gpt-4")
	if got := c.Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d, want 0", got)
	}
}

func TestCount_Deterministic(t *testing.T) {
	c := newTestCounter(t, "gpt-4")
	text := "The quick brown fox jumps over the lazy dog."

	first := c.Count(text)
	if first == 0 {
		t.Fatal("expected non-zero count for non-empty text")
	}
	for i := 0; i < 5; i++ {
		if got := c.Count(text); got != first {
			t.Fatalf("count changed between calls: %d != %d", got, first)
		}
	}
}

func TestCountMessage_Overhead(t *testing.T) {
	c := newTestCounter(t, "gpt-4")
	msg := core.Message{Role: core.RoleUser, Content: "hello there"}

	want := messageOverhead + c.Count(msg.Role) + c.Count(msg.Content)
	if got := c.CountMessage(msg); got != want {
		t.Errorf("CountMessage = %d, want %d", got, want)
	}
}

func TestCountMessages_Formula(t *testing.T) {
	c := newTestCounter(t, "gpt-4")
	msgs := []core.Message{
		{Role: core.RoleSystem, Content: "You are a helpful assistant."},
		{Role: core.RoleUser, Content: "What is the capital of France?"},
		{Role: core.RoleAssistant, Content: "The capital of France is Paris."},
	}

	sum := 0
	for _, m := range msgs {
		sum += c.CountMessage(m)
	}
	want := sum + replyPrimeOverhead

	if got := c.CountMessages(msgs); got != want {
		t.Errorf("CountMessages = %d, want %d", got, want)
	}
}

func TestCountMessages_Empty(t *testing.T) {
	c := newTestCounter(t, "gpt-4")
	if got := c.CountMessages(nil); got != 0 {
		t.Errorf("CountMessages(nil) = %d, want 0", got)
	}
}
