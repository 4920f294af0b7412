package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateSession(ctx context.Context, mode Mode, greeting Message) (Session, error) {
	args := m.Called(ctx, mode, greeting)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockStore) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockStore) SetMode(ctx context.Context, id uuid.UUID, mode Mode) error {
	args := m.Called(ctx, id, mode)
	return args.Error(0)
}

func (m *MockStore) AcquireBusy(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) ReleaseBusy(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) AppendMessage(ctx context.Context, id uuid.UUID, msg Message) error {
	args := m.Called(ctx, id, msg)
	return args.Error(0)
}
