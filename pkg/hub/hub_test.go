package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/pkg/protocol"
)

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New("test", nil, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, 5*time.Millisecond)
	return h
}

// fakeClient joins a connection-less client so the fan-out can be observed
// on its send channel.
func fakeClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := newClient(h, nil)
	require.True(t, h.join(c))
	return c
}

func closed(c *Client) bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func TestBroadcastFansOut(t *testing.T) {
	h := startHub(t)
	a := fakeClient(t, h)
	b := fakeClient(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	msg, err := protocol.NewMessage(protocol.TypeStatus, map[string]int{"frames": 3})
	require.NoError(t, err)
	require.NoError(t, h.BroadcastMessage(msg))

	for _, c := range []*Client{a, b} {
		select {
		case data := <-c.send:
			parsed, err := protocol.ParseMessage(data)
			require.NoError(t, err)
			assert.Equal(t, protocol.TypeStatus, parsed.Type)
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := startHub(t, WithClientBuffer(1))
	slow := fakeClient(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Broadcast([]byte("1"))
	h.Broadcast([]byte("2"))

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("1"), <-slow.send)
	assert.True(t, closed(slow))
	assert.Equal(t, uint64(1), h.SlowClients())
	assert.False(t, slow.Send([]byte("late")), "send on a dropped client is refused")
}

func TestReplayOnJoin(t *testing.T) {
	h := startHub(t, WithReplay(2))
	for _, m := range []string{"a", "b", "c"} {
		h.Broadcast([]byte(m))
	}
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.replay) == 2 && string(h.replay[1]) == "c"
	}, time.Second, 5*time.Millisecond)

	c := fakeClient(t, h)
	assert.Equal(t, []byte("b"), <-c.send)
	assert.Equal(t, []byte("c"), <-c.send)
}

func TestUnregisterAndShutdown(t *testing.T) {
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	c := fakeClient(t, h)
	h.leave(c)
	require.Eventually(t, func() bool { return closed(c) }, time.Second, 5*time.Millisecond)

	d := fakeClient(t, h)
	cancel()
	<-done
	assert.True(t, closed(d))
	assert.False(t, h.IsRunning())
	assert.Equal(t, 0, h.ClientCount())

	late := newClient(h, nil)
	assert.False(t, h.join(late), "a stopped hub refuses new clients")
	h.leave(late)
}

func TestBroadcastJSON(t *testing.T) {
	h := startHub(t)
	c := fakeClient(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]string{"a": "b"}))
	assert.JSONEq(t, `{"a":"b"}`, string(<-c.send))
	assert.Error(t, h.BroadcastJSON(make(chan int)))
}
