package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/membot/internal/core"
	"github.com/sandevgo/membot/pkg/log"
)

const (
	matchQueryMaxRunes = 200
	snippetMaxRunes    = 200
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// KnowledgeStore is the durable entry collection with a paired FTS5 index.
// The index is maintained by triggers, so base writes and index writes are
// one atomic transaction. The store exclusively owns its database handle
// between Open and Close.
type KnowledgeStore struct {
	path string
	db   *sql.DB
}

func NewKnowledgeStore(path string) *KnowledgeStore {
	return &KnowledgeStore{path: path}
}

func (s *KnowledgeStore) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := NewDB(ctx, s.path, "migrations/knowledge")
	if err != nil {
		return err
	}
	s.db = db
	log.FromCtx(ctx).Debug().Str("path", s.path).Msg("knowledge store opened")
	return nil
}

func (s *KnowledgeStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *KnowledgeStore) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, core.ErrNotConnected
	}
	return s.db, nil
}

// Insert persists the entry and returns its assigned id. The FTS index row
// is written by trigger in the same transaction as the base row.
func (s *KnowledgeStore) Insert(ctx context.Context, entry core.Entry) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(entry.Content) == "" {
		return 0, fmt.Errorf("entry content must not be empty: %w", core.ErrValidation)
	}

	tagsJSON, err := json.Marshal(orEmptyTags(entry.Tags))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal tags: %w", err)
	}
	metaJSON, err := json.Marshal(orEmptyMeta(entry.Metadata))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now().UTC()
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO entries (source_id, section, content, tags, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SourceID, entry.Section, entry.Content,
		string(tagsJSON), string(metaJSON),
		createdAt.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return id, nil
}

// Search ranks matching entries by BM25 (ascending; lower is better), ties
// broken by insertion order. A query that sanitizes to nothing yields an
// empty result set, not an error.
func (s *KnowledgeStore) Search(ctx context.Context, q core.SearchQuery) ([]core.SearchResult, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	term := sanitizeMatchQuery(q.Text)
	if term == "" {
		return nil, nil
	}
	limit := clampLimit(q.Limit)

	query := `
		SELECT e.id, e.source_id, e.section, e.content, e.tags, e.metadata,
		       e.created_at, e.updated_at, bm25(entries_fts) AS score
		FROM entries_fts
		JOIN entries e ON e.id = entries_fts.rowid
		WHERE entries_fts MATCH ?`
	args := []any{term}

	if q.SourceID != "" {
		query += ` AND e.source_id = ?`
		args = append(args, q.SourceID)
	}
	query += ` ORDER BY score, e.id LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		// Residual FTS5 grammar the sanitizer let through (e.g. bare
		// punctuation) degrades to no matches rather than an error.
		if isMatchSyntaxError(err) {
			log.FromCtx(ctx).Debug().Err(err).Str("term", term).Msg("degraded malformed search query")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}
	defer rows.Close()

	var results []core.SearchResult
	for rows.Next() {
		entry, score, err := scanEntryWithScore(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, core.SearchResult{
			Entry:   entry,
			Score:   score,
			Snippet: firstRunes(entry.Content, snippetMaxRunes),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search results: %w", err)
	}
	return results, nil
}

// GetAll returns every entry, newest first.
func (s *KnowledgeStore) GetAll(ctx context.Context) ([]core.Entry, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, source_id, section, content, tags, metadata, created_at, updated_at
		 FROM entries ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// DeleteBySource removes all entries for a source and returns how many were
// deleted. The FTS rows go with them via trigger.
func (s *KnowledgeStore) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM entries WHERE source_id = ?`, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries for source %s: %w", sourceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *KnowledgeStore) Clear(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

func (s *KnowledgeStore) Count(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var (
		entry                core.Entry
		tagsJSON, metaJSON   string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&entry.ID, &entry.SourceID, &entry.Section, &entry.Content,
		&tagsJSON, &metaJSON, &createdAt, &updatedAt); err != nil {
		return core.Entry{}, fmt.Errorf("failed to scan entry: %w", err)
	}
	return decodeEntry(entry, tagsJSON, metaJSON, createdAt, updatedAt)
}

func scanEntryWithScore(row rowScanner) (core.Entry, float64, error) {
	var (
		entry                core.Entry
		tagsJSON, metaJSON   string
		createdAt, updatedAt int64
		score                float64
	)
	if err := row.Scan(&entry.ID, &entry.SourceID, &entry.Section, &entry.Content,
		&tagsJSON, &metaJSON, &createdAt, &updatedAt, &score); err != nil {
		return core.Entry{}, 0, fmt.Errorf("failed to scan search result: %w", err)
	}
	entry, err := decodeEntry(entry, tagsJSON, metaJSON, createdAt, updatedAt)
	if err != nil {
		return core.Entry{}, 0, err
	}
	return entry, score, nil
}

func decodeEntry(entry core.Entry, tagsJSON, metaJSON string, createdAt, updatedAt int64) (core.Entry, error) {
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &entry.Tags); err != nil {
			return core.Entry{}, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &entry.Metadata); err != nil {
			return core.Entry{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	entry.CreatedAt = time.Unix(0, createdAt).UTC()
	entry.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return entry, nil
}

// sanitizeMatchQuery makes raw user text safe for the FTS5 MATCH grammar:
// control characters are stripped (tab/newline/CR survive), the text is
// capped at 200 runes, the bare wildcard token '?' is removed and double
// quotes are escaped by doubling. Returns "" when nothing searchable
// remains.
func sanitizeMatchQuery(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= 32 || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	s := firstRunes(b.String(), matchQueryMaxRunes)
	s = strings.ReplaceAll(s, "?", "")
	s = strings.ReplaceAll(s, `"`, `""`)
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func clampLimit(limit int) int {
	switch {
	case limit == 0:
		return defaultSearchLimit
	case limit < 1:
		return 1
	case limit > maxSearchLimit:
		return maxSearchLimit
	default:
		return limit
	}
}

func isMatchSyntaxError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "fts5") || strings.Contains(msg, "syntax error")
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func orEmptyTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func orEmptyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
