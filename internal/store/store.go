package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Mode selects how a session answers questions.
type Mode string

const (
	ModeAPI  Mode = "api"
	ModeDemo Mode = "demo"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeAPI || m == ModeDemo
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session busy")
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	IsError   bool      `json:"is_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	Mode      Mode      `json:"mode"`
	Busy      bool      `json:"busy"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists chat sessions.
type Store interface {
	CreateSession(ctx context.Context, mode Mode, greeting Message) (Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (Session, error)
	SetMode(ctx context.Context, id uuid.UUID, mode Mode) error
	// AcquireBusy marks the session busy, or returns ErrSessionBusy if it already is.
	AcquireBusy(ctx context.Context, id uuid.UUID) error
	ReleaseBusy(ctx context.Context, id uuid.UUID) error
	AppendMessage(ctx context.Context, id uuid.UUID, msg Message) error
}
