package application_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/uvcsweb/internal/application"
	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

func TestSessionRegistry_GetReturnsSameSession(t *testing.T) {
	reg := application.NewSessionRegistry(&mockVCSClient{}, newMemKeyStore(), slog.Default())
	ctx := context.Background()

	a, err := reg.Get(ctx, "sess-a")
	require.NoError(t, err)
	again, err := reg.Get(ctx, "sess-a")
	require.NoError(t, err)
	b, err := reg.Get(ctx, "sess-b")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, reg.Len())
}

func TestSessionRegistry_RestoresAuthFromStoredKeys(t *testing.T) {
	keys := newMemKeyStore()
	ctx := context.Background()
	require.NoError(t, keys.Set(ctx, "sess-a", model.KeySKey1, "a"))
	require.NoError(t, keys.Set(ctx, "sess-a", model.KeySKey2, "b"))
	reg := application.NewSessionRegistry(&mockVCSClient{}, keys, slog.Default())

	a, err := reg.Get(ctx, "sess-a")
	require.NoError(t, err)
	assert.True(t, a.Auth.IsAuthenticated())

	b, err := reg.Get(ctx, "sess-b")
	require.NoError(t, err)
	assert.False(t, b.Auth.IsAuthenticated())
}

func TestSessionRegistry_ConcurrentGet(t *testing.T) {
	reg := application.NewSessionRegistry(&mockVCSClient{}, newMemKeyStore(), slog.Default())

	const goroutines = 50
	results := make([]*application.Session, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := reg.Get(context.Background(), "shared")
			assert.NoError(t, err)
			results[i] = s
		}()
	}
	wg.Wait()

	for _, s := range results {
		assert.Same(t, results[0], s)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestSessionRegistry_SweepDropsIdleKeepsKeys(t *testing.T) {
	keys := newMemKeyStore()
	reg := application.NewSessionRegistry(&mockVCSClient{}, keys, slog.Default())
	ctx := context.Background()

	_, err := reg.Get(ctx, "old")
	require.NoError(t, err)
	require.NoError(t, keys.Set(ctx, "old", model.KeySKey1, "a"))

	time.Sleep(20 * time.Millisecond)
	_, err = reg.Get(ctx, "fresh")
	require.NoError(t, err)

	dropped := reg.Sweep(10 * time.Millisecond)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, reg.Len())

	v, err := keys.Get(ctx, "old", model.KeySKey1)
	require.NoError(t, err)
	assert.Equal(t, "a", v, "sweeping only drops in-memory state")
}

func TestSessionRegistry_RunStopsOnCancel(t *testing.T) {
	reg := application.NewSessionRegistry(&mockVCSClient{}, newMemKeyStore(), slog.Default())
	_, err := reg.Get(context.Background(), "s")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, 5*time.Millisecond, time.Nanosecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
