package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/membot/internal/core"
)

// fakeRepo is an in-memory KnowledgeRepository. Search matches when any
// whitespace-separated query term appears in the entry content (mirroring
// the real store's term-level FTS matching) and scores every hit -1 so
// results pass the default threshold.
type fakeRepo struct {
	mu        sync.Mutex
	nextID    int64
	entries   []core.Entry
	insertErr error
	searchErr error
}

var _ core.KnowledgeRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1}
}

func (r *fakeRepo) Insert(_ context.Context, entry core.Entry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.insertErr != nil {
		return 0, r.insertErr
	}
	entry.ID = r.nextID
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	r.nextID++
	r.entries = append(r.entries, entry)
	return entry.ID, nil
}

func (r *fakeRepo) Search(_ context.Context, query core.SearchQuery) ([]core.SearchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.searchErr != nil {
		return nil, r.searchErr
	}
	if strings.TrimSpace(query.Text) == "" {
		return nil, nil
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	var results []core.SearchResult
	for _, entry := range r.entries {
		if query.SourceID != "" && entry.SourceID != query.SourceID {
			continue
		}
		content := strings.ToLower(entry.Content)
		matched := false
		for _, term := range strings.Fields(strings.ToLower(query.Text)) {
			if strings.Contains(content, term) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		results = append(results, core.SearchResult{
			Entry:   entry,
			Score:   -1,
			Snippet: entry.Content,
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (r *fakeRepo) GetAll(_ context.Context) ([]core.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]core.Entry{}, r.entries...), nil
}

func (r *fakeRepo) DeleteBySource(_ context.Context, sourceID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []core.Entry
	var deleted int64
	for _, entry := range r.entries {
		if entry.SourceID == sourceID {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return deleted, nil
}

func (r *fakeRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
	return nil
}

func (r *fakeRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries), nil
}

// fakeCounter charges one token per rune plus a flat 3 per conversation.
type fakeCounter struct{}

func (fakeCounter) CountMessage(msg core.Message) int {
	return len([]rune(msg.Content))
}

func (fakeCounter) CountMessages(messages []core.Message) int {
	if len(messages) == 0 {
		return 0
	}
	total := 0
	for _, msg := range messages {
		total += len([]rune(msg.Content))
	}
	return total + 3
}
