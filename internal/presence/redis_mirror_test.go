package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandsite/fan-chat/internal/config"
	"github.com/bandsite/fan-chat/internal/domain"
)

func newTestMirror(t *testing.T) (*RedisMirror, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)

	m, err := NewRedisMirror(config.RedisConfig{
		Address:           srv.Addr(),
		Prefix:            "test:presence",
		HeartbeatInterval: 10 * time.Millisecond,
		KeyTTL:            time.Minute,
	})
	require.NoError(t, err)
	return m, srv
}

func TestNewRedisMirror_Unreachable(t *testing.T) {
	_, err := NewRedisMirror(config.RedisConfig{Address: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisMirror_UpsertAndRemove(t *testing.T) {
	m, srv := newTestMirror(t)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, domain.DirectoryEntry{ID: "a", Username: "Fan1"}))
	require.NoError(t, m.Upsert(ctx, domain.DirectoryEntry{ID: "b", Username: "Band", IsAdmin: true}))

	assert.True(t, srv.Exists("test:presence:members"))
	assert.Equal(t, time.Minute, srv.TTL("test:presence:members"))

	members, err := m.Members(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.DirectoryEntry{
		{ID: "a", Username: "Fan1"},
		{ID: "b", Username: "Band", IsAdmin: true},
	}, members)

	require.NoError(t, m.Remove(ctx, "a"))
	require.NoError(t, m.Remove(ctx, "a"))

	members, err = m.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.DirectoryEntry{{ID: "b", Username: "Band", IsAdmin: true}}, members)
}

func TestRedisMirror_MembersSkipsGarbage(t *testing.T) {
	m, srv := newTestMirror(t)
	defer m.Close()

	srv.HSet("test:presence:members", "x", "not json")
	require.NoError(t, m.Upsert(context.Background(), domain.DirectoryEntry{ID: "a", Username: "Fan1"}))

	members, err := m.Members(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.DirectoryEntry{{ID: "a", Username: "Fan1"}}, members)
}

func TestRedisMirror_RunRefreshesTTL(t *testing.T) {
	m, srv := newTestMirror(t)
	defer m.Close()

	require.NoError(t, m.Upsert(context.Background(), domain.DirectoryEntry{ID: "a", Username: "Fan1"}))
	srv.SetTTL("test:presence:members", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return srv.TTL("test:presence:members") == time.Minute
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisMirror_CloseClearsMembers(t *testing.T) {
	m, srv := newTestMirror(t)

	require.NoError(t, m.Upsert(context.Background(), domain.DirectoryEntry{ID: "a", Username: "Fan1"}))
	require.NoError(t, m.Close())

	assert.False(t, srv.Exists("test:presence:members"))
}

func TestNoopMirror(t *testing.T) {
	var m Mirror = NoopMirror{}
	ctx, cancel := context.WithCancel(context.Background())

	assert.NoError(t, m.Upsert(ctx, domain.DirectoryEntry{ID: "a"}))
	assert.NoError(t, m.Remove(ctx, "a"))

	cancel()
	assert.NoError(t, m.Run(ctx))
	assert.NoError(t, m.Close())
}
