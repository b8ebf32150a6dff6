package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/membot/internal/core"
	"github.com/sandevgo/membot/pkg/log"
)

// SessionStore persists conversations. Save replaces a session's message set
// wholesale inside one transaction, so a partially written prior state can
// never leave orphaned or duplicated messages behind.
type SessionStore struct {
	path string
	db   *sql.DB
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

func (s *SessionStore) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := NewDB(ctx, s.path, "migrations/sessions")
	if err != nil {
		return err
	}
	s.db = db
	log.FromCtx(ctx).Debug().Str("path", s.path).Msg("session store opened")
	return nil
}

func (s *SessionStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SessionStore) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, core.ErrNotConnected
	}
	return s.db, nil
}

// Save upserts the session row and rewrites its messages.
func (s *SessionStore) Save(ctx context.Context, session *core.Session) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	metaJSON, err := json.Marshal(orEmptyMeta(session.Metadata))
	if err != nil {
		return fmt.Errorf("failed to marshal session metadata: %w", err)
	}

	now := time.Now().UTC()
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at, metadata) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, metadata = excluded.metadata`,
		session.ID, createdAt.UnixNano(), updatedAt.UnixNano(), string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("failed to clear session messages: %w", err)
	}

	for _, msg := range session.Messages {
		msgMeta, err := json.Marshal(orEmptyMeta(msg.Metadata))
		if err != nil {
			return fmt.Errorf("failed to marshal message metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
			session.ID, msg.Role, msg.Content, string(msgMeta), now.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return tx.Commit()
}

// Load reconstructs a session with messages in insertion order, which equals
// conversational order since sessions only append. Returns ErrNotFound when
// the id is unknown.
func (s *SessionStore) Load(ctx context.Context, id string) (*core.Session, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var (
		session              core.Session
		metaJSON             string
		createdAt, updatedAt int64
	)
	err = db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at, metadata FROM sessions WHERE id = ?`, id).
		Scan(&session.ID, &createdAt, &updatedAt, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &session.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session metadata: %w", err)
		}
	}
	session.CreatedAt = time.Unix(0, createdAt).UTC()
	session.UpdatedAt = time.Unix(0, updatedAt).UTC()

	rows, err := db.QueryContext(ctx,
		`SELECT role, content, metadata FROM messages WHERE session_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msg     core.Message
			msgMeta string
		)
		if err := rows.Scan(&msg.Role, &msg.Content, &msgMeta); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if msgMeta != "" {
			if err := json.Unmarshal([]byte(msgMeta), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message metadata: %w", err)
			}
		}
		session.Messages = append(session.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return &session, nil
}

// Delete removes a session and (by cascade) its messages. Returns true iff a
// row existed.
func (s *SessionStore) Delete(ctx context.Context, id string) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns session metadata, most recently updated first.
func (s *SessionStore) List(ctx context.Context) ([]core.SessionMeta, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT s.id, s.created_at, s.updated_at, s.metadata,
		        (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		 FROM sessions s ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var metas []core.SessionMeta
	for rows.Next() {
		var (
			meta                 core.SessionMeta
			metaJSON             string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&meta.ID, &createdAt, &updatedAt, &metaJSON, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session meta: %w", err)
		}
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &meta.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal session metadata: %w", err)
			}
		}
		meta.CreatedAt = time.Unix(0, createdAt).UTC()
		meta.UpdatedAt = time.Unix(0, updatedAt).UTC()
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return metas, nil
}

func (s *SessionStore) Count(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func (s *SessionStore) ClearAll(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}
