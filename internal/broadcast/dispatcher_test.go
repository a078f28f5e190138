package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandsite/fan-chat/internal/domain"
)

type mockConn struct {
	id       string
	received [][]byte
	sendErr  error
	mu       sync.Mutex
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) getReceived() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

type listSource []domain.Connection

func (s listSource) Connections() []domain.Connection { return s }

type fixedClock struct{ values []int64 }

func (c *fixedClock) NowMillis() int64 {
	v := c.values[0]
	if len(c.values) > 1 {
		c.values = c.values[1:]
	}
	return v
}

func TestDispatcher_BroadcastReachesEveryone(t *testing.T) {
	a, b, c := &mockConn{id: "a"}, &mockConn{id: "b"}, &mockConn{id: "c"}
	d := NewDispatcher(listSource{a, b, c}, &fixedClock{values: []int64{1000}})

	res, err := d.Broadcast(context.Background(), domain.NewLeaveMessage(domain.Identity{ID: "x", Username: "Fan1"}))
	require.NoError(t, err)
	assert.Equal(t, Result{Delivered: 3}, res)

	for _, conn := range []*mockConn{a, b, c} {
		got := conn.getReceived()
		require.Len(t, got, 1, conn.id)
		var msg domain.ProtocolMessage
		require.NoError(t, json.Unmarshal(got[0], &msg))
		assert.Equal(t, domain.MsgTypeLeave, msg.Type)
		assert.Equal(t, "Fan1", msg.Username)
		assert.Equal(t, int64(1000), msg.Timestamp)
	}

	// serialized once: every recipient got the same bytes
	assert.Equal(t, a.getReceived()[0], b.getReceived()[0])
}

func TestDispatcher_SkipsUnwritable(t *testing.T) {
	ok := &mockConn{id: "ok"}
	closed := &mockConn{id: "closed", sendErr: errors.New("closed")}
	d := NewDispatcher(listSource{ok, closed}, nil)

	res, err := d.Broadcast(context.Background(), domain.NewSystemMessage("hola"))
	require.NoError(t, err)
	assert.Equal(t, Result{Delivered: 1, Skipped: 1}, res)
	assert.Len(t, ok.getReceived(), 1)
	assert.Empty(t, closed.getReceived())
}

func TestDispatcher_EmptySource(t *testing.T) {
	d := NewDispatcher(listSource{}, nil)
	res, err := d.Broadcast(context.Background(), domain.NewSystemMessage("nadie"))
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestDispatcher_Direct(t *testing.T) {
	a, b := &mockConn{id: "a"}, &mockConn{id: "b"}
	d := NewDispatcher(listSource{a, b}, nil)

	require.NoError(t, d.Direct(context.Background(), a, domain.NewSystemMessage(domain.TextGreeting)))
	assert.Len(t, a.getReceived(), 1)
	assert.Empty(t, b.getReceived())

	closed := &mockConn{id: "c", sendErr: errors.New("closed")}
	assert.Error(t, d.Direct(context.Background(), closed, domain.NewSystemMessage("x")))
}

func TestDispatcher_TimestampsNeverDecrease(t *testing.T) {
	a := &mockConn{id: "a"}
	d := NewDispatcher(listSource{a}, &fixedClock{values: []int64{2000, 1500, 2500}})

	for i := 0; i < 3; i++ {
		_, err := d.Broadcast(context.Background(), domain.NewSystemMessage("tick"))
		require.NoError(t, err)
	}

	var stamps []int64
	for _, raw := range a.getReceived() {
		var msg domain.ProtocolMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		stamps = append(stamps, msg.Timestamp)
	}
	assert.Equal(t, []int64{2000, 2000, 2500}, stamps)
}
