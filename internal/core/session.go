package core

import (
	"context"
	"time"
)

// Session is an append-only conversation keyed by id. Once persisted it is
// owned by the session store; the manager holds transient cached copies.
type Session struct {
	ID        string         `json:"id"`
	Messages  []Message      `json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AddMessage appends a message and bumps UpdatedAt.
func (s *Session) AddMessage(msg Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now().UTC()
}

// LastN returns the most recent n messages in chronological order.
func (s *Session) LastN(n int) []Message {
	if n <= 0 {
		return nil
	}
	if n >= len(s.Messages) {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// SessionMeta is the listing view of a session, without its messages.
type SessionMeta struct {
	ID           string         `json:"id"`
	MessageCount int            `json:"message_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type SessionRepository interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]SessionMeta, error)
}
