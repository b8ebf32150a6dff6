package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/membot/internal/core"
	"github.com/sandevgo/membot/pkg/log"
)

// TokenCounter reports token costs the way the target model meters them.
type TokenCounter interface {
	CountMessage(msg core.Message) int
	CountMessages(messages []core.Message) int
}

// maxProtectedSystem caps how many leading system messages survive
// truncation untouched.
const maxProtectedSystem = 2

// Builder assembles the message list sent to the model: system prompt,
// retrieved knowledge, then as much recent conversation as the token
// budget allows.
type Builder struct {
	know    core.KnowledgeRepository
	counter TokenCounter
}

func NewBuilder(know core.KnowledgeRepository, counter TokenCounter) *Builder {
	return &Builder{know: know, counter: counter}
}

// Build produces the model context for a session and the latest user query.
// The query is appended as the final user message, and the result never
// exceeds cfg.MaxTokens when a positive budget is set.
func (b *Builder) Build(ctx context.Context, session *core.Session, query string, cfg core.ContextConfig) (core.BuiltContext, error) {
	var (
		protected []core.Message
		results   []core.SearchResult
	)

	if cfg.SystemPrompt != "" {
		protected = append(protected, core.Message{Role: core.RoleSystem, Content: cfg.SystemPrompt})
	}

	if b.know != nil && cfg.MemoryMaxResults > 0 {
		found, err := b.know.Search(ctx, core.SearchQuery{Text: query, Limit: cfg.MemoryMaxResults})
		if err != nil {
			return core.BuiltContext{}, fmt.Errorf("failed to search knowledge: %w", err)
		}
		for _, res := range found {
			if res.Score >= cfg.MemoryMinScore {
				results = append(results, res)
			}
		}
		if block := formatMemoryBlock(results); block != "" {
			protected = append(protected, core.Message{Role: core.RoleSystem, Content: block})
		}
	}

	var conversation []core.Message
	if session != nil {
		conversation = append(conversation, session.Messages...)
	}
	conversation = append(conversation, core.Message{Role: core.RoleUser, Content: query})

	messages := append(append([]core.Message{}, protected...), conversation...)

	total := b.counter.CountMessages(messages)
	if cfg.MaxTokens <= 0 || total <= cfg.MaxTokens {
		return core.BuiltContext{
			Messages:      messages,
			TokenCount:    total,
			MemoryResults: results,
			Truncated:     false,
		}, nil
	}

	kept := b.truncate(protected, conversation, cfg.MaxTokens)
	messages = append(append([]core.Message{}, protected...), kept...)

	final := b.counter.CountMessages(messages)
	log.FromCtx(ctx).Debug().
		Int("dropped", len(conversation)-len(kept)).
		Int("tokens", final).
		Int("max_tokens", cfg.MaxTokens).
		Msg("truncated context")

	return core.BuiltContext{
		Messages:      messages,
		TokenCount:    final,
		MemoryResults: results,
		Truncated:     true,
	}, nil
}

// truncate keeps the longest contiguous suffix of conversation that fits in
// maxTokens after the protected prefix. Protected here means the leading
// system messages the builder itself produced; external system messages in
// the conversation are truncatable like any other.
func (b *Builder) truncate(protected, conversation []core.Message, maxTokens int) []core.Message {
	if len(protected) > maxProtectedSystem {
		protected = protected[:maxProtectedSystem]
	}

	// The per-conversation priming cost is whatever CountMessages adds on
	// top of the per-message sums. Deriving it keeps the math correct for
	// any counter implementation.
	all := append(append([]core.Message{}, protected...), conversation...)
	perMessage := 0
	for _, msg := range all {
		perMessage += b.counter.CountMessage(msg)
	}
	priming := b.counter.CountMessages(all) - perMessage

	budget := maxTokens - priming
	for _, msg := range protected {
		budget -= b.counter.CountMessage(msg)
	}

	used := 0
	start := len(conversation)
	for i := len(conversation) - 1; i >= 0; i-- {
		cost := b.counter.CountMessage(conversation[i])
		if used+cost > budget {
			break
		}
		used += cost
		start = i
	}

	return conversation[start:]
}

func formatMemoryBlock(results []core.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Relevant information:\n")
	for i, res := range results {
		fmt.Fprintf(&sb, "%d. [%s]\n   %s\n", i+1, res.Entry.Section, res.Snippet)
	}
	return strings.TrimRight(sb.String(), "\n")
}
