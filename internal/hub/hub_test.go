package hub

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/safiridev/bus-tracking/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records written frames in order.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	failAt int // fail writes from this frame count on; -1 never fails
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{failAt: -1}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt >= 0 && len(c.frames) >= c.failAt {
		return assert.AnError
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) waitFrames(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.frames) >= n {
			out := make([][]byte, len(c.frames))
			copy(out, c.frames)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames", n)
	return nil
}

func TestSubscribe_SnapshotBeforeEvents(t *testing.T) {
	h := New()
	conn := newFakeConn()
	snapshot := []byte(`[{"id":"1"}]`)

	sub := h.Subscribe(conn, snapshot)
	defer sub.Close()

	h.Publish(models.BusUpdate{ID: "1", Number: "Juja-42", Status: "active"})

	frames := conn.waitFrames(t, 2)
	assert.Equal(t, snapshot, frames[0])

	var ev models.BusUpdate
	require.NoError(t, json.Unmarshal(frames[1], &ev))
	assert.Equal(t, "Juja-42", ev.Number)
}

func TestPublish_PerObserverOrder(t *testing.T) {
	h := New()
	conn := newFakeConn()
	sub := h.Subscribe(conn, []byte(`[]`))
	defer sub.Close()

	for i := 1; i <= 5; i++ {
		h.Publish(models.BusUpdate{ID: "1", StepIndex: i, Status: "active"})
	}

	frames := conn.waitFrames(t, 6)
	for i, frame := range frames[1:] {
		var ev models.BusUpdate
		require.NoError(t, json.Unmarshal(frame, &ev))
		assert.Equal(t, i+1, ev.StepIndex)
	}
}

func TestPublish_FansOutToAllObservers(t *testing.T) {
	h := New()
	a, b := newFakeConn(), newFakeConn()
	subA := h.Subscribe(a, []byte(`[]`))
	subB := h.Subscribe(b, []byte(`[]`))
	defer subA.Close()
	defer subB.Close()

	h.Publish(models.BusUpdate{ID: "1", Status: "active"})

	a.waitFrames(t, 2)
	b.waitFrames(t, 2)
	assert.Equal(t, 2, h.Count())
}

func TestClose_RemovesObserver(t *testing.T) {
	h := New()
	conn := newFakeConn()
	sub := h.Subscribe(conn, []byte(`[]`))
	conn.waitFrames(t, 1)

	sub.Close()
	assert.Equal(t, 0, h.Count())
	assert.True(t, conn.closed)

	// Publishing after close must not panic or deliver.
	h.Publish(models.BusUpdate{ID: "1"})
	sub.Close() // idempotent
}

func TestWriteFailure_Disconnects(t *testing.T) {
	h := New()
	conn := newFakeConn()
	conn.failAt = 1 // snapshot succeeds, first event write fails
	sub := h.Subscribe(conn, []byte(`[]`))
	defer sub.Close()

	conn.waitFrames(t, 1)
	h.Publish(models.BusUpdate{ID: "1"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && h.Count() != 0 {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, h.Count())
}
