package hub

import (
	"context"
	"testing"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinPresence(t *testing.T, h *Hub, s *Session) {
	t.Helper()
	require.True(t, h.Registry().Join(s))
	expect[event.OnlineUsers](t, s)
}

// settleRegistry waits until the registry has processed everything queued.
func settleRegistry(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := h.Registry().Snapshot(ctx)
	require.NoError(t, err)
}

func TestRouting_GuestMessageNotifiesLobby(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{})

	owner := testSession("owner-1", "Acme Owner", "acme")
	attach(t, h, "chat-acme", owner)

	guest := testSession("g123", "Visitor", "")
	r := attach(t, h, "chat-acme-guest-g123", guest)
	r.dispatch(guest, event.Inbound{
		Type:    event.TypeMessage,
		Content: "do you ship to Kandy?",
		Product: &model.Product{ID: "p9", Name: "Saw", Price: 12},
	})
	msg := expect[event.Message](t, guest).Message

	n := expect[event.GuestNotification](t, owner)
	assert.Equal(t, event.TypeGuestNotification, n.Type)
	assert.Equal(t, "chat-acme-guest-g123", n.RoomID)
	assert.Equal(t, "g123", n.GuestID)
	assert.Equal(t, "Visitor", n.GuestName)
	assert.Equal(t, "do you ship to Kandy?", n.LastMessage)
	assert.Equal(t, msg.Timestamp, n.Timestamp)
	require.NotNil(t, n.Product)
	assert.Equal(t, "p9", n.Product.ID)
}

func TestRouting_GuestMessageWithoutLobbyDoesNotSpawnIt(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{})

	guest := testSession("g1", "Visitor", "")
	r := attach(t, h, "chat-acme-guest-g1", guest)
	post(r, guest, "anyone there?")
	expect[event.Message](t, guest)
	settle(t, r)

	assert.False(t, h.withRoom("chat-acme", func(*Room) {}))
}

func TestRouting_ImagePreview(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{})

	owner := testSession("owner-1", "Acme Owner", "acme")
	attach(t, h, "chat-acme", owner)
	guest := testSession("g1", "Visitor", "")
	r := attach(t, h, "chat-acme-guest-g1", guest)

	r.dispatch(guest, event.Inbound{Type: event.TypeMessage, Content: "https://cdn.example/p.png", MessageType: model.KindImage})
	assert.Equal(t, "[image]", expect[event.GuestNotification](t, owner).LastMessage)
}

func TestRouting_DirectMessageNotifiesTargetShopEverywhere(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{})

	betaPhone := testSession("beta-owner", "Beta", "beta")
	betaLaptop := testSession("beta-owner", "Beta", "beta")
	bystander := testSession("u9", "Nine", "")
	joinPresence(t, h, betaPhone)
	joinPresence(t, h, betaLaptop)
	joinPresence(t, h, bystander)
	settleRegistry(t, h)
	drainEvents(betaPhone, betaLaptop, bystander)

	acme := testSession("acme-owner", "Acme", "acme")
	r := attach(t, h, model.DMRoomID("acme", "beta"), acme)
	post(r, acme, "shall we bundle orders?")
	expect[event.Message](t, acme)

	for _, s := range []*Session{betaPhone, betaLaptop} {
		n := expect[event.DMNotification](t, s)
		assert.Equal(t, "beta", n.TargetSlug)
		assert.Equal(t, "dm-acme-beta", n.RoomID)
		assert.Equal(t, "Acme", n.SenderName)
		assert.Equal(t, "shall we bundle orders?", n.LastMessage)
	}

	settleRegistry(t, h)
	assert.Empty(t, bystander.egress)
}

func TestRouting_DirectMessageReverseDirection(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{})

	acme := testSession("acme-owner", "Acme", "acme")
	joinPresence(t, h, acme)

	beta := testSession("beta-owner", "Beta", "beta")
	r := attach(t, h, "dm-acme-beta", beta)
	post(r, beta, "sure")
	expect[event.Message](t, beta)

	assert.Equal(t, "acme", expect[event.DMNotification](t, acme).TargetSlug)
}

func TestRouting_DirectMessageWithoutPosterSlugIsSkipped(t *testing.T) {
	h, _ := newTestHub(t, repo.NewMemoryStore(), Options{})

	beta := testSession("beta-owner", "Beta", "beta")
	joinPresence(t, h, beta)

	anon := testSession("u1", "Anon", "")
	r := attach(t, h, "dm-acme-beta", anon)
	post(r, anon, "hello?")

	// the message itself is stored and delivered
	assert.Equal(t, "hello?", expect[event.Message](t, anon).Message.Content)

	settle(t, r)
	settleRegistry(t, h)
	assert.Empty(t, beta.egress)
}

func drainEvents(sessions ...*Session) {
	for _, s := range sessions {
		for len(s.egress) > 0 {
			<-s.egress
		}
	}
}
