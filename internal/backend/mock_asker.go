package backend

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAsker is a mock implementation of Asker using testify/mock.
type MockAsker struct {
	mock.Mock
}

func (m *MockAsker) SubmitQuestion(ctx context.Context, question string, endpoint Endpoint) Outcome {
	args := m.Called(ctx, question, endpoint)
	return args.Get(0).(Outcome)
}
