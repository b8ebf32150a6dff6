package core

import "context"

const (
	BotName    = "MemBot"
	BotVersion = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn. Messages are never mutated after
// creation; sessions only append.
type Message struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ChatResponse is what an AI provider returns for one completion request.
type ChatResponse struct {
	Content      string         `json:"content"`
	Model        string         `json:"model,omitempty"`
	TokensUsed   int            `json:"tokens_used"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ChatResult is the contract produced for transports (CLI, chat adapters).
type ChatResult struct {
	Content    string `json:"content"`
	SessionID  string `json:"session_id"`
	TokensUsed int    `json:"tokens_used"`
	MemoryUsed int    `json:"memory_used"`
	Truncated  bool   `json:"truncated"`
}

type AIProvider interface {
	Chat(ctx context.Context, messages []Message) (ChatResponse, error)
}
