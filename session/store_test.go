package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweaver/tripweaver/core"
)

func newTestStore(ttl time.Duration, maxMessages int) *Store {
	return NewStore(core.NewInMemoryStore(), core.SessionConfig{
		TTL:         ttl,
		MaxMessages: maxMessages,
	}, nil)
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(time.Minute, 10)
	ctx := context.Background()

	created, err := store.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Empty(t, loaded.Messages)
}

func TestGetUnknownSession(t *testing.T) {
	store := newTestStore(time.Minute, 10)

	_, err := store.Get(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSessionNotFound))
}

func TestAppendPreservesOrder(t *testing.T) {
	store := newTestStore(time.Minute, 10)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, sess.ID, RoleUser, "제주도 2박3일 20만원"))
	require.NoError(t, store.Append(ctx, sess.ID, RoleAssistant, "total cost 180,000 | budget 200,000 | within budget"))

	loaded, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, RoleUser, loaded.Messages[0].Role)
	assert.Equal(t, RoleAssistant, loaded.Messages[1].Role)
	assert.Contains(t, loaded.Messages[1].Content, "within budget")
}

func TestAppendTrimsToWindow(t *testing.T) {
	store := newTestStore(time.Minute, 3)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	require.NoError(t, err)

	for _, msg := range []string{"one", "two", "three", "four", "five"} {
		require.NoError(t, store.Append(ctx, sess.ID, RoleUser, msg))
	}

	loaded, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 3)
	assert.Equal(t, "three", loaded.Messages[0].Content)
	assert.Equal(t, "five", loaded.Messages[2].Content)
}

func TestAppendToUnknownSession(t *testing.T) {
	store := newTestStore(time.Minute, 10)

	err := store.Append(context.Background(), "missing", RoleUser, "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSessionNotFound))
}

func TestSessionExpiry(t *testing.T) {
	store := newTestStore(20*time.Millisecond, 10)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = store.Get(ctx, sess.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSessionNotFound))
}

func TestDelete(t *testing.T) {
	store := newTestStore(time.Minute, 10)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err = store.Get(ctx, sess.ID)
	assert.True(t, errors.Is(err, core.ErrSessionNotFound))
}
