package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(ttl time.Duration, max int) *Store {
	logger, _ := test.NewNullLogger()
	factory := func(id string) *orchestrator.Session {
		return orchestrator.NewSession(id, orchestrator.Config{}, nil, nil, nil, orchestrator.WithLogger(logger))
	}
	return NewStore(factory, ttl, max, logger)
}

func TestCreateAndGet(t *testing.T) {
	store := newStore(time.Hour, 0)

	session, err := store.Create()
	require.NoError(t, err)
	_, err = uuid.Parse(session.ID())
	assert.NoError(t, err)

	got, err := store.Get(session.ID())
	require.NoError(t, err)
	assert.Same(t, session, got)
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get("not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRespectsCap(t *testing.T) {
	store := newStore(time.Hour, 2)
	_, err := store.Create()
	require.NoError(t, err)
	_, err = store.Create()
	require.NoError(t, err)

	_, err = store.Create()
	assert.ErrorIs(t, err, ErrTooMany)
}

func TestDelete(t *testing.T) {
	store := newStore(time.Hour, 0)
	session, err := store.Create()
	require.NoError(t, err)

	require.NoError(t, store.Delete(session.ID()))
	assert.ErrorIs(t, store.Delete(session.ID()), ErrNotFound)
	assert.Zero(t, store.Len())
}

func TestExpire(t *testing.T) {
	store := newStore(time.Hour, 0)
	old, err := store.Create()
	require.NoError(t, err)

	// pretend two hours pass, then create a fresh session
	base := time.Now()
	store.now = func() time.Time { return base.Add(2 * time.Hour) }
	assert.Equal(t, 1, store.Expire())

	_, err = store.Get(old.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	fresh, err := store.Create()
	require.NoError(t, err)
	store.now = time.Now
	assert.Zero(t, store.Expire())
	_, err = store.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestExpireDisabled(t *testing.T) {
	store := newStore(0, 0)
	_, err := store.Create()
	require.NoError(t, err)
	store.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	assert.Zero(t, store.Expire())
}

func TestRunStopsWithContext(t *testing.T) {
	store := newStore(time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
