package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandevgo/membot/internal/core"
	"github.com/sandevgo/membot/pkg/log"
)

// Manager keeps sessions in memory and writes every change through to the
// backing store. A nil store gives a purely in-memory manager.
type Manager struct {
	mu    sync.Mutex
	store core.SessionRepository
	cache map[string]*core.Session
}

// NewManager builds a manager and warms the cache from the store.
func NewManager(ctx context.Context, store core.SessionRepository) (*Manager, error) {
	m := &Manager{
		store: store,
		cache: make(map[string]*core.Session),
	}

	if store == nil {
		return m, nil
	}

	metas, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, meta := range metas {
		sess, err := store.Load(ctx, meta.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session %s: %w", meta.ID, err)
		}
		m.cache[sess.ID] = sess
	}

	log.FromCtx(ctx).Debug().Int("sessions", len(m.cache)).Msg("session cache warmed")

	return m, nil
}

// Create starts a session. An empty id gets a generated UUID; an existing id
// returns the cached session unchanged.
func (m *Manager) Create(ctx context.Context, id string) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if sess, ok := m.cache[id]; ok {
		return sess, nil
	}

	now := time.Now()
	sess := &core.Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.persist(ctx, sess); err != nil {
		return nil, err
	}
	m.cache[id] = sess

	return sess, nil
}

// Get returns the session by id, falling back to the store on a cache miss.
func (m *Manager) Get(ctx context.Context, id string) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.cache[id]; ok {
		return sess, nil
	}
	if m.store == nil {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	m.cache[id] = sess

	return sess, nil
}

// GetOrCreate loads the session or starts a fresh one under the given id.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*core.Session, error) {
	if id != "" {
		sess, err := m.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		// Only a missing session falls through to Create; a failing store
		// must not silently spawn a fresh session.
		if !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
	}
	return m.Create(ctx, id)
}

// AddMessage appends a message to the session and persists the result.
func (m *Manager) AddMessage(ctx context.Context, id string, msg core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.cache[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}

	sess.AddMessage(msg)
	return m.persist(ctx, sess)
}

// Delete removes the session from cache and store, reporting whether it
// existed anywhere.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, cached := m.cache[id]
	delete(m.cache, id)

	if m.store == nil {
		return cached, nil
	}
	stored, err := m.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return cached || stored, nil
}

// List returns metadata for every cached session, most recently updated
// first.
func (m *Manager) List(_ context.Context) ([]core.SessionMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metas := make([]core.SessionMeta, 0, len(m.cache))
	for _, sess := range m.cache {
		metas = append(metas, core.SessionMeta{
			ID:           sess.ID,
			MessageCount: len(sess.Messages),
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			Metadata:     sess.Metadata,
		})
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})

	return metas, nil
}

// ClearAll drops every session from cache and store.
func (m *Manager) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache = make(map[string]*core.Session)

	if m.store == nil {
		return nil
	}
	metas, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, meta := range metas {
		if _, err := m.store.Delete(ctx, meta.ID); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", meta.ID, err)
		}
	}
	return nil
}

func (m *Manager) persist(ctx context.Context, sess *core.Session) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	return nil
}
