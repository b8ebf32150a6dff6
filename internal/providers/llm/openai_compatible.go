package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sandevgo/membot/internal/core"
)

// OpenAICompatible talks to any API exposing the OpenAI chat completions
// shape.
type OpenAICompatible struct {
	httpProvider
	authHeader   string
	authPrefix   string
	extraHeaders map[string]string
}

type OpenAICompatibleConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	AuthHeader   string // e.g., "Authorization"
	AuthPrefix   string // e.g., "Bearer "
	ExtraHeaders map[string]string
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	return &OpenAICompatible{
		httpProvider: newHTTPProvider(cfg.BaseURL, cfg.APIKey, cfg.Model),
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		extraHeaders: cfg.ExtraHeaders,
	}
}

func (o *OpenAICompatible) Chat(ctx context.Context, messages []core.Message) (core.ChatResponse, error) {
	payload := map[string]any{
		"model":    o.model,
		"messages": wireMessages(messages),
	}

	headers := make(map[string]string)
	if o.authHeader != "" && o.apiKey != "" {
		headers[o.authHeader] = o.authPrefix + o.apiKey
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}

	data, err := o.postJSON(ctx, "/v1/chat/completions", payload, headers)
	if err != nil {
		return core.ChatResponse{}, err
	}

	return parseChatCompletion(data)
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func wireMessages(messages []core.Message) []wireMessage {
	out := make([]wireMessage, len(messages))
	for i, msg := range messages {
		out[i] = wireMessage{Role: msg.Role, Content: msg.Content}
	}
	return out
}

func parseChatCompletion(data []byte) (core.ChatResponse, error) {
	var result struct {
		Model   string `json:"model"`
		Choices []struct {
			Message      wireMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.ChatResponse{}, fmt.Errorf("decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return core.ChatResponse{}, fmt.Errorf("empty choices: %s", string(data))
	}

	choice := result.Choices[0]
	return core.ChatResponse{
		Content:      choice.Message.Content,
		Model:        result.Model,
		TokensUsed:   result.Usage.TotalTokens,
		FinishReason: choice.FinishReason,
	}, nil
}
