package llm

import (
	"context"
	"sync"

	"github.com/sandevgo/membot/internal/core"
)

// Mock is an offline provider returning a fixed response. It records calls
// so tests can assert on what the engine sent.
type Mock struct {
	Response   string
	TokensUsed int
	Err        error

	mu    sync.Mutex
	calls int
	last  []core.Message
}

func NewMock(response string) *Mock {
	return &Mock{Response: response}
}

func (m *Mock) Chat(_ context.Context, messages []core.Message) (core.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.last = append([]core.Message{}, messages...)

	if m.Err != nil {
		return core.ChatResponse{}, m.Err
	}
	return core.ChatResponse{
		Content:      m.Response,
		Model:        "mock",
		TokensUsed:   m.TokensUsed,
		FinishReason: "stop",
	}, nil
}

func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

func (m *Mock) LastMessages() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]core.Message{}, m.last...)
}
