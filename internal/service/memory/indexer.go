package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/sandevgo/membot/internal/core"
	"github.com/sandevgo/membot/pkg/log"
)

// Document is a unit of markdown text to index under a source id.
type Document struct {
	SourceID string
	Text     string
}

// Indexer parses markdown documents into entries and stores them.
type Indexer struct {
	repo core.KnowledgeRepository
}

func NewIndexer(repo core.KnowledgeRepository) *Indexer {
	return &Indexer{repo: repo}
}

// IndexDocument parses text and inserts every resulting entry. On a failed
// insert it returns the ids stored so far together with the error.
func (ix *Indexer) IndexDocument(ctx context.Context, doc Document) ([]int64, error) {
	entries := Parse(doc.Text, doc.SourceID)

	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		id, err := ix.repo.Insert(ctx, entry)
		if err != nil {
			return ids, fmt.Errorf("failed to index section %q of %s: %w", entry.Section, doc.SourceID, err)
		}
		ids = append(ids, id)
	}

	log.FromCtx(ctx).Debug().
		Str("source", doc.SourceID).
		Int("entries", len(ids)).
		Msg("indexed document")

	return ids, nil
}

// IndexAll indexes documents in order, stopping at the first failure.
func (ix *Indexer) IndexAll(ctx context.Context, docs []Document) ([]int64, error) {
	var ids []int64
	for _, doc := range docs {
		docIDs, err := ix.IndexDocument(ctx, doc)
		ids = append(ids, docIDs...)
		if err != nil {
			return ids, err
		}
	}
	return ids, nil
}

// Reindex replaces all entries for the document's source id.
func (ix *Indexer) Reindex(ctx context.Context, doc Document) ([]int64, error) {
	if _, err := ix.repo.DeleteBySource(ctx, doc.SourceID); err != nil {
		return nil, fmt.Errorf("failed to clear source %s: %w", doc.SourceID, err)
	}
	return ix.IndexDocument(ctx, doc)
}

// IndexFile reads a markdown file and indexes it with the path as source id.
func (ix *Indexer) IndexFile(ctx context.Context, path string) ([]int64, error) {
	entries, err := ParseFile(path)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		id, err := ix.repo.Insert(ctx, entry)
		if err != nil {
			return ids, fmt.Errorf("failed to index section %q of %s: %w", entry.Section, path, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ReindexFile replaces all entries previously indexed from the file.
func (ix *Indexer) ReindexFile(ctx context.Context, path string) ([]int64, error) {
	if _, err := ix.repo.DeleteBySource(ctx, path); err != nil {
		return nil, fmt.Errorf("failed to clear source %s: %w", path, err)
	}
	return ix.IndexFile(ctx, path)
}

// IndexDirectory indexes every markdown file in dir, non-recursively.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string) ([]int64, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(paths)

	var ids []int64
	for _, path := range paths {
		fileIDs, err := ix.IndexFile(ctx, path)
		ids = append(ids, fileIDs...)
		if err != nil {
			return ids, err
		}
	}
	return ids, nil
}
