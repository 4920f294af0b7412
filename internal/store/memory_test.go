package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	sess, err := s.CreateSession(ctx, ModeAPI, Message{Role: RoleAssistant, Content: "Hola"})
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.False(t, sess.Messages[0].CreatedAt.IsZero())

	require.NoError(t, s.AppendMessage(ctx, sess.ID, Message{Role: RoleUser, Content: "PIB 2024"}))
	require.NoError(t, s.SetMode(ctx, sess.ID, ModeDemo))

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, ModeDemo, got.Mode)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleUser, got.Messages[1].Role)
	assert.Equal(t, "PIB 2024", got.Messages[1].Content)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	sess, err := s.CreateSession(ctx, ModeAPI, Message{Role: RoleAssistant, Content: "Hola"})
	require.NoError(t, err)

	sess.Messages[0].Content = "changed"

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hola", got.Messages[0].Content)
}

func TestMemoryStoreBusy(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	sess, err := s.CreateSession(ctx, ModeAPI, Message{Role: RoleAssistant})
	require.NoError(t, err)

	require.NoError(t, s.AcquireBusy(ctx, sess.ID))
	assert.ErrorIs(t, s.AcquireBusy(ctx, sess.ID), ErrSessionBusy)

	require.NoError(t, s.ReleaseBusy(ctx, sess.ID))
	assert.NoError(t, s.AcquireBusy(ctx, sess.ID))
}

func TestMemoryStoreBusyIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	sess, err := s.CreateSession(ctx, ModeAPI, Message{Role: RoleAssistant})
	require.NoError(t, err)

	var acquired int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.AcquireBusy(ctx, sess.ID) == nil {
				atomic.AddInt32(&acquired, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	id := uuid.New()

	_, err := s.GetSession(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, s.SetMode(ctx, id, ModeDemo), ErrSessionNotFound)
	assert.ErrorIs(t, s.AcquireBusy(ctx, id), ErrSessionNotFound)
	assert.ErrorIs(t, s.ReleaseBusy(ctx, id), ErrSessionNotFound)
	assert.ErrorIs(t, s.AppendMessage(ctx, id, Message{}), ErrSessionNotFound)
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeAPI.Valid())
	assert.True(t, ModeDemo.Valid())
	assert.False(t, Mode("offline").Valid())
	assert.False(t, Mode("").Valid())
}
