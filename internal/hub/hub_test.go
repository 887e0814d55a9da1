package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/repo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type hubStore interface {
	repo.MessageRepository
	repo.RoomRepository
}

func newTestHub(t *testing.T, store hubStore, opts Options) (*Hub, *testClock) {
	t.Helper()
	clock := newTestClock()
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	if opts.RoomIdleTimeout == 0 {
		opts.RoomIdleTimeout = time.Hour
	}
	h := NewHub(store, store, opts, zap.NewNop())
	t.Cleanup(h.Stop)
	return h, clock
}

func testSession(userID, name, shop string) *Session {
	return newSession(model.Identity{UserID: userID, DisplayName: name, ShopSlug: shop}, nil, 16, zap.NewNop())
}

func mustRef(t *testing.T, id string) model.RoomRef {
	t.Helper()
	ref, err := model.ParseRoomID(id)
	require.NoError(t, err)
	return ref
}

func attach(t *testing.T, h *Hub, roomID string, s *Session) *Room {
	t.Helper()
	r, err := h.Attach(mustRef(t, roomID), s)
	require.NoError(t, err)
	expect[event.History](t, s)
	return r
}

// next returns the next event queued for s.
func next(t *testing.T, s *Session) event.Outbound {
	t.Helper()
	select {
	case ev, ok := <-s.egress:
		require.True(t, ok, "session egress closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func expect[T event.Outbound](t *testing.T, s *Session) T {
	t.Helper()
	ev := next(t, s)
	typed, ok := ev.(T)
	require.Truef(t, ok, "unexpected event %T", ev)
	return typed
}

// expectClosed waits until the owner has released s.
func expectClosed(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-s.egress:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("session was not released")
		}
	}
}

// settle waits until r has processed everything queued before it.
func settle(t *testing.T, r *Room) model.RoomInfo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	info, ok := r.stats(ctx)
	require.True(t, ok, "room stopped")
	return info
}

func post(r *Room, s *Session, content string) {
	r.dispatch(s, event.Inbound{Type: event.TypeMessage, Content: content})
}
