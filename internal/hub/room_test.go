package hub

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingStore struct {
	*repo.MemoryStore
}

func (failingStore) InsertMessage(context.Context, *model.Message) error {
	return errors.New("disk full")
}

func (failingStore) RecentMessages(context.Context, string, int) ([]model.Message, error) {
	return nil, errors.New("connection refused")
}

func TestRoom_AttachSendsLastMessagesOldestFirst(t *testing.T) {
	store := repo.NewMemoryStore()
	h, clock := newTestHub(t, store, Options{})

	base := clock.Now().Add(-time.Hour).UnixMilli()
	for i := 0; i < 60; i++ {
		require.NoError(t, store.InsertMessage(context.Background(), &model.Message{
			ID: fmt.Sprintf("m%02d", i), RoomID: "chat-acme", Content: "x", Kind: model.KindText, Timestamp: base + int64(i),
		}))
	}

	s := testSession("u1", "Ann", "")
	_, err := h.Attach(mustRef(t, "chat-acme"), s)
	require.NoError(t, err)

	history := expect[event.History](t, s)
	require.Len(t, history.Messages, 50)
	assert.Equal(t, "m10", history.Messages[0].ID)
	assert.Equal(t, "m59", history.Messages[49].ID)
	for i := 1; i < len(history.Messages); i++ {
		assert.Less(t, history.Messages[i-1].Timestamp, history.Messages[i].Timestamp)
	}
}

func TestRoom_AttachPrunesExpiredMessages(t *testing.T) {
	store := repo.NewMemoryStore()
	h, clock := newTestHub(t, store, Options{})
	ctx := context.Background()

	old := &model.Message{ID: "old", RoomID: "chat-acme", Content: "old", Kind: model.KindText,
		Timestamp: clock.Now().Add(-15 * 24 * time.Hour).UnixMilli()}
	recent := &model.Message{ID: "recent", RoomID: "chat-acme", Content: "recent", Kind: model.KindText,
		Timestamp: clock.Now().Add(-time.Hour).UnixMilli()}
	require.NoError(t, store.InsertMessage(ctx, old))
	require.NoError(t, store.InsertMessage(ctx, recent))

	s := testSession("u1", "Ann", "")
	_, err := h.Attach(mustRef(t, "chat-acme"), s)
	require.NoError(t, err)

	history := expect[event.History](t, s)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "recent", history.Messages[0].ID)

	left, err := store.RecentMessages(ctx, "chat-acme", 0)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestRoom_AttachSurvivesStoreFailure(t *testing.T) {
	h, _ := newTestHub(t, failingStore{repo.NewMemoryStore()}, Options{})

	s := testSession("u1", "Ann", "")
	_, err := h.Attach(mustRef(t, "chat-acme"), s)
	require.NoError(t, err)

	history := expect[event.History](t, s)
	assert.Empty(t, history.Messages)
	assert.NotNil(t, history.Messages)
}

func TestRoom_PostBroadcastsToEverySession(t *testing.T) {
	store := repo.NewMemoryStore()
	h, _ := newTestHub(t, store, Options{})

	sender := testSession("u1", "Ann", "")
	others := []*Session{testSession("u2", "Bob", ""), testSession("u3", "Cy", "")}
	r := attach(t, h, "chat-acme", sender)
	for _, s := range others {
		attach(t, h, "chat-acme", s)
	}

	r.dispatch(sender, event.Inbound{
		Type:        event.TypeMessage,
		Content:     "is this in stock?",
		MessageType: model.KindText,
		Product:     &model.Product{ID: "p1", Name: "Drill", Price: 49.5},
	})

	got := expect[event.Message](t, sender).Message
	assert.Equal(t, "u1", got.SenderID)
	assert.Equal(t, "Ann", got.SenderName)
	assert.Equal(t, "chat-acme", got.RoomID)
	assert.NotEmpty(t, got.ID)
	require.NotNil(t, got.Product)
	assert.Equal(t, "Drill", got.Product.Name)

	for _, s := range others {
		assert.Equal(t, got, expect[event.Message](t, s).Message)
	}

	stored, err := store.RecentMessages(context.Background(), "chat-acme", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, got.ID, stored[0].ID)
}

func TestRoom_TimestampsStrictlyIncrease(t *testing.T) {
	store := repo.NewMemoryStore()
	h, clock := newTestHub(t, store, Options{})

	s := testSession("u1", "Ann", "")
	r := attach(t, h, "chat-acme", s)

	start := clock.Now().UnixMilli()
	for i := 0; i < 3; i++ {
		post(r, s, fmt.Sprintf("frozen %d", i))
	}
	settle(t, r)
	clock.Advance(-time.Minute)
	post(r, s, "clock went back")
	settle(t, r)
	clock.Advance(time.Hour)
	post(r, s, "clock jumped")

	var stamps []int64
	for i := 0; i < 5; i++ {
		stamps = append(stamps, expect[event.Message](t, s).Message.Timestamp)
	}
	assert.Equal(t, []int64{start, start + 1, start + 2, start + 3, clock.Now().UnixMilli()}, stamps)

	stored, err := store.RecentMessages(context.Background(), "chat-acme", 50)
	require.NoError(t, err)
	require.Len(t, stored, 5)
	for i, m := range stored {
		assert.Equal(t, stamps[i], m.Timestamp, "stored order equals post order")
	}
}

func TestRoom_TimestampsContinueAfterRespawn(t *testing.T) {
	store := repo.NewMemoryStore()
	h, clock := newTestHub(t, store, Options{})
	ctx := context.Background()

	future := clock.Now().Add(time.Minute).UnixMilli()
	require.NoError(t, store.InsertMessage(ctx, &model.Message{ID: "ahead", RoomID: "chat-acme", Content: "x", Kind: model.KindText, Timestamp: future}))

	s := testSession("u1", "Ann", "")
	r := attach(t, h, "chat-acme", s)
	post(r, s, "after")
	assert.Equal(t, future+1, expect[event.Message](t, s).Message.Timestamp)
}

func TestRoom_StoreFailureIsReportedAndNotBroadcast(t *testing.T) {
	h, _ := newTestHub(t, failingStore{repo.NewMemoryStore()}, Options{})

	poster := testSession("u1", "Ann", "")
	watcher := testSession("u2", "Bob", "")
	r := attach(t, h, "chat-acme", poster)
	attach(t, h, "chat-acme", watcher)

	post(r, poster, "hello")

	e := expect[event.Error](t, poster)
	assert.Equal(t, event.CodeStoreFailed, e.Code)

	settle(t, r)
	assert.Empty(t, watcher.egress)
}

func TestRoom_RejectsBadInput(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{})

	s := testSession("u1", "Ann", "")
	r := attach(t, h, "chat-acme", s)

	r.invalid(s, errors.New("unexpected end of JSON input"))
	assert.Equal(t, event.CodeInvalidPayload, expect[event.Error](t, s).Code)

	r.dispatch(s, event.Inbound{Type: "TYPING"})
	assert.Equal(t, event.CodeUnknownType, expect[event.Error](t, s).Code)

	r.dispatch(s, event.Inbound{Type: event.TypeMessage, Content: "x", MessageType: "VIDEO"})
	assert.Equal(t, event.CodeInvalidPayload, expect[event.Error](t, s).Code)

	r.dispatch(s, event.Inbound{Type: event.TypeMessage, Content: "   "})
	assert.Equal(t, event.CodeInvalidPayload, expect[event.Error](t, s).Code)

	// session is still usable
	r.dispatch(s, event.Inbound{Type: event.TypePing})
	expect[event.Pong](t, s)

	post(r, s, "still here")
	assert.Equal(t, model.KindText, expect[event.Message](t, s).Message.Kind)
}

func TestRoom_DetachIsIdempotentAndTerminal(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{})

	gone := testSession("u1", "Ann", "")
	stay := testSession("u2", "Bob", "")
	r := attach(t, h, "chat-acme", gone)
	attach(t, h, "chat-acme", stay)

	r.leave(gone)
	r.leave(gone)
	expectClosed(t, gone)

	// a detached session can neither post nor attach again
	post(r, gone, "ghost")
	_, err := h.Attach(mustRef(t, "chat-acme"), gone)
	require.NoError(t, err)

	info := settle(t, r)
	assert.Equal(t, 1, info.Sessions)
	assert.Equal(t, []string{"u2"}, info.UserIDs)
	assert.Empty(t, stay.egress)
}

func TestRoom_SlowSessionIsDropped(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{})

	fast := testSession("u1", "Ann", "")
	slow := newSession(model.Identity{UserID: "u2", DisplayName: "Bob"}, nil, 1, zap.NewNop())
	r := attach(t, h, "chat-acme", fast)
	_, err := h.Attach(mustRef(t, "chat-acme"), slow)
	require.NoError(t, err)

	// slow never reads: HISTORY fills its buffer
	post(r, fast, "one")
	expect[event.Message](t, fast)

	info := settle(t, r)
	assert.Equal(t, 1, info.Sessions)

	expect[event.History](t, slow)
	expectClosed(t, slow)

	post(r, fast, "two")
	expect[event.Message](t, fast)
}

func TestRoom_IdleRoomRetiresAndRespawns(t *testing.T) {
	store := repo.NewMemoryStore()
	h, _ := newTestHub(t, store, Options{RoomIdleTimeout: 30 * time.Millisecond})

	s := testSession("u1", "Ann", "")
	r := attach(t, h, "chat-acme", s)
	post(r, s, "before retirement")
	first := expect[event.Message](t, s).Message

	r.leave(s)
	expectClosed(t, s)

	require.Eventually(t, func() bool {
		return !h.withRoom("chat-acme", func(*Room) {})
	}, 2*time.Second, 10*time.Millisecond)

	again := testSession("u1", "Ann", "")
	r2, err := h.Attach(mustRef(t, "chat-acme"), again)
	require.NoError(t, err)
	assert.NotSame(t, r, r2)

	history := expect[event.History](t, again)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, first.ID, history.Messages[0].ID)

	post(r2, again, "after")
	assert.Greater(t, expect[event.Message](t, again).Message.Timestamp, first.Timestamp)
}

func TestRoom_BusyRoomDoesNotRetire(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{RoomIdleTimeout: 20 * time.Millisecond})

	s := testSession("u1", "Ann", "")
	r := attach(t, h, "chat-acme", s)

	time.Sleep(100 * time.Millisecond)
	assert.True(t, h.withRoom("chat-acme", func(live *Room) { assert.Same(t, r, live) }))
}

func TestHub_StopReleasesSessions(t *testing.T) {
	h := NewHub(repo.NewMemoryStore(), nil, Options{}, zap.NewNop())

	s := testSession("u1", "Ann", "")
	r, err := h.Attach(mustRef(t, "chat-acme"), s)
	require.NoError(t, err)
	p := testSession("u2", "Bob", "")
	require.True(t, h.Registry().Join(p))

	h.Stop()

	expectClosed(t, s)
	expectClosed(t, p)
	assert.False(t, r.submit(func() {}))

	_, err = h.Attach(mustRef(t, "chat-other"), testSession("u3", "Cy", ""))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRoom_RetiredRoomRefusesLateCommands(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{RoomIdleTimeout: 20 * time.Millisecond})

	s := testSession("u1", "Ann", "")
	r := attach(t, h, "chat-acme", s)
	r.leave(s)
	expectClosed(t, s)

	require.Eventually(t, func() bool {
		return !h.withRoom("chat-acme", func(*Room) {})
	}, 2*time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.leave(s)
		r.invalid(s, errors.New("late frame"))
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("late command blocked on a retired room")
	}
	assert.False(t, r.submit(func() {}))
	assert.False(t, r.trySubmit(func() {}))
}
