package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*Session)}
}

func (s *MemoryStore) CreateSession(_ context.Context, mode Mode, greeting Message) (Session, error) {
	now := time.Now()
	if greeting.CreatedAt.IsZero() {
		greeting.CreatedAt = now
	}
	sess := &Session{
		ID:        uuid.New(),
		Mode:      mode,
		Messages:  []Message{greeting},
		CreatedAt: now,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return copySession(sess), nil
}

func (s *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return copySession(sess), nil
}

func (s *MemoryStore) SetMode(_ context.Context, id uuid.UUID, mode Mode) error {
	return s.update(id, func(sess *Session) error {
		sess.Mode = mode
		return nil
	})
}

func (s *MemoryStore) AcquireBusy(_ context.Context, id uuid.UUID) error {
	return s.update(id, func(sess *Session) error {
		if sess.Busy {
			return ErrSessionBusy
		}
		sess.Busy = true
		return nil
	})
}

func (s *MemoryStore) ReleaseBusy(_ context.Context, id uuid.UUID) error {
	return s.update(id, func(sess *Session) error {
		sess.Busy = false
		return nil
	})
}

func (s *MemoryStore) AppendMessage(_ context.Context, id uuid.UUID, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return s.update(id, func(sess *Session) error {
		sess.Messages = append(sess.Messages, msg)
		return nil
	})
}

func (s *MemoryStore) update(id uuid.UUID, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	return fn(sess)
}

func copySession(sess *Session) Session {
	out := *sess
	out.Messages = append([]Message(nil), sess.Messages...)
	return out
}
