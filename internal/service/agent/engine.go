package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/membot/internal/core"
	"github.com/sandevgo/membot/pkg/log"
)

// SessionManager is the slice of session handling the engine needs.
type SessionManager interface {
	GetOrCreate(ctx context.Context, id string) (*core.Session, error)
	AddMessage(ctx context.Context, id string, msg core.Message) error
}

// ContextBuilder assembles the message list for one model call.
type ContextBuilder interface {
	Build(ctx context.Context, session *core.Session, query string, cfg core.ContextConfig) (core.BuiltContext, error)
}

// Recorder persists durable facts after an exchange.
type Recorder interface {
	Record(ctx context.Context, userText, assistantText string) (int, error)
}

// Engine runs one chat turn: resolve the session, build the context, call
// the model, persist the exchange, and extract anything worth remembering.
type Engine struct {
	sessions SessionManager
	builder  ContextBuilder
	recorder Recorder
	ai       core.AIProvider
	cfg      core.ContextConfig
}

func NewEngine(sessions SessionManager, builder ContextBuilder, recorder Recorder, ai core.AIProvider, cfg core.ContextConfig) *Engine {
	return &Engine{
		sessions: sessions,
		builder:  builder,
		recorder: recorder,
		ai:       ai,
		cfg:      cfg,
	}
}

// Chat handles a single user turn. With useMemory off the knowledge store is
// not consulted. Extraction failures are logged, never surfaced, so a flaky
// store cannot eat a successful reply.
func (e *Engine) Chat(ctx context.Context, userText, sessionID string, useMemory bool) (core.ChatResult, error) {
	if strings.TrimSpace(userText) == "" {
		return core.ChatResult{}, fmt.Errorf("empty message: %w", core.ErrValidation)
	}

	sess, err := e.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return core.ChatResult{}, fmt.Errorf("failed to resolve session: %w", err)
	}

	cfg := e.cfg
	if !useMemory {
		cfg.MemoryMaxResults = 0
	}

	built, err := e.builder.Build(ctx, sess, userText, cfg)
	if err != nil {
		return core.ChatResult{}, fmt.Errorf("failed to build context: %w", err)
	}

	resp, err := e.ai.Chat(ctx, built.Messages)
	if err != nil {
		return core.ChatResult{}, fmt.Errorf("failed to get completion: %w", err)
	}

	if err := e.sessions.AddMessage(ctx, sess.ID, core.Message{Role: core.RoleUser, Content: userText}); err != nil {
		return core.ChatResult{}, fmt.Errorf("failed to save user message: %w", err)
	}
	if err := e.sessions.AddMessage(ctx, sess.ID, core.Message{Role: core.RoleAssistant, Content: resp.Content}); err != nil {
		return core.ChatResult{}, fmt.Errorf("failed to save assistant message: %w", err)
	}

	if e.recorder != nil {
		if stored, err := e.recorder.Record(ctx, userText, resp.Content); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("memory extraction failed")
		} else if stored > 0 {
			log.FromCtx(ctx).Debug().Int("entries", stored).Msg("extracted memory entries")
		}
	}

	// Token usage is the provider's accounting, not the prompt size.
	return core.ChatResult{
		Content:    resp.Content,
		SessionID:  sess.ID,
		TokensUsed: resp.TokensUsed,
		MemoryUsed: len(built.MemoryResults),
		Truncated:  built.Truncated,
	}, nil
}
