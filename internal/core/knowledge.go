package core

import (
	"context"
	"time"
)

// Entry is one indexed piece of knowledge. Entries are created by the
// markdown parser or directly by an extraction policy, persisted once and
// never mutated in place; re-indexing a source replaces its entries.
type Entry struct {
	ID        int64          `json:"id"`
	SourceID  string         `json:"source_id"`
	Section   string         `json:"section"`
	Content   string         `json:"content"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SearchQuery selects entries by full-text relevance. Limit is clamped to
// [1,100] by the store; zero means the store default. SourceID, when set,
// restricts matches to a single source.
type SearchQuery struct {
	Text     string `json:"text"`
	Limit    int    `json:"limit"`
	SourceID string `json:"source_id,omitempty"`
}

// SearchResult pairs an entry with its BM25 score. Lower score means a
// better match.
type SearchResult struct {
	Entry   Entry   `json:"entry"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type KnowledgeRepository interface {
	Insert(ctx context.Context, entry Entry) (int64, error)
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, error)
	GetAll(ctx context.Context) ([]Entry, error)
	DeleteBySource(ctx context.Context, sourceID string) (int64, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
