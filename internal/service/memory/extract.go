package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/membot/internal/core"
	"github.com/sandevgo/membot/pkg/log"
)

// Strategy decides which entries, if any, to persist from a completed
// user/assistant exchange.
type Strategy func(userText, assistantText string) []core.Entry

// defaultMarkers are phrases that signal the user is stating a durable fact.
var defaultMarkers = []string{
	"remember",
	"my name is",
	"i prefer",
	"i like",
	"i am",
	"i'm",
	"i work",
	"i live",
	"always",
	"never forget",
}

// KeywordStrategy saves the user's message when it contains any marker
// phrase, case-insensitively. With no markers given the default set applies.
func KeywordStrategy(markers ...string) Strategy {
	if len(markers) == 0 {
		markers = defaultMarkers
	}

	return func(userText, _ string) []core.Entry {
		lowered := strings.ToLower(userText)
		for _, marker := range markers {
			if strings.Contains(lowered, marker) {
				return []core.Entry{{
					SourceID: "conversation",
					Section:  "User statement",
					Content:  strings.TrimSpace(userText),
				}}
			}
		}
		return nil
	}
}

// Recorder applies a strategy after each exchange and persists what it
// yields, skipping entries the store already holds verbatim.
type Recorder struct {
	repo     core.KnowledgeRepository
	strategy Strategy
}

func NewRecorder(repo core.KnowledgeRepository, strategy Strategy) *Recorder {
	if strategy == nil {
		strategy = KeywordStrategy()
	}
	return &Recorder{repo: repo, strategy: strategy}
}

// Record runs the strategy and inserts its entries, returning how many were
// stored. Duplicates are skipped, not errors.
func (r *Recorder) Record(ctx context.Context, userText, assistantText string) (int, error) {
	entries := r.strategy(userText, assistantText)
	if len(entries) == 0 {
		return 0, nil
	}

	stored := 0
	for _, entry := range entries {
		if entry.Content == "" {
			continue
		}

		dup, err := r.isDuplicate(ctx, entry)
		if err != nil {
			return stored, fmt.Errorf("failed to check duplicate: %w", err)
		}
		if dup {
			log.FromCtx(ctx).Debug().Str("section", entry.Section).Msg("skipping duplicate entry")
			continue
		}

		if _, err := r.repo.Insert(ctx, entry); err != nil {
			return stored, fmt.Errorf("failed to record entry: %w", err)
		}
		stored++
	}

	return stored, nil
}

// isDuplicate searches for the entry content and reports whether any hit
// carries byte-identical content.
func (r *Recorder) isDuplicate(ctx context.Context, entry core.Entry) (bool, error) {
	results, err := r.repo.Search(ctx, core.SearchQuery{Text: entry.Content, Limit: 5})
	if err != nil {
		return false, err
	}
	for _, res := range results {
		if res.Entry.Content == entry.Content {
			return true, nil
		}
	}
	return false, nil
}
