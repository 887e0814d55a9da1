package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticShops map[string]model.Shop

func (s staticShops) ShopByOwner(_ context.Context, userID string) (*model.Shop, error) {
	shop, ok := s[userID]
	if !ok {
		return nil, ErrShopNotFound
	}
	return &shop, nil
}

func TestManager_ReplayAfterReconnectHasNoDuplicates(t *testing.T) {
	f := &fakeRoom{history: []model.Message{msg(1, "a"), msg(2, "b"), msg(3, "a")}}
	base := newFakeServer(t, f)

	m := NewManager(base, model.Identity{UserID: "me", DisplayName: "Me"}, "", nil, fastConfig(), nil)
	t.Cleanup(m.Close)

	tl, err := m.Open("chat-acme")
	require.NoError(t, err)

	again, err := m.Open("chat-acme")
	require.NoError(t, err)
	assert.Same(t, tl, again)

	require.Eventually(t, func() bool {
		conns, _ := f.stats()
		return conns >= 2
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.WaitOpen(ctx, "chat-acme"))
	require.NoError(t, m.Send("chat-acme", "hello", model.KindText, nil))

	require.Eventually(t, func() bool { return tl.Len() == 4 }, 2*time.Second, 10*time.Millisecond)
	got := tl.Messages()
	assert.Equal(t, "hello", got[3].Content)

	m.Leave("chat-acme")
	_, ok := m.Timeline("chat-acme")
	assert.False(t, ok)
	assert.ErrorIs(t, m.Send("chat-acme", "late", model.KindText, nil), ErrRoomNotOpen)
}

func TestManager_OpenDirect(t *testing.T) {
	f := &fakeRoom{}
	base := newFakeServer(t, f)
	shops := staticShops{"owner-beta": {Slug: "beta", OwnerUserID: "owner-beta"}}

	m := NewManager(base, model.Identity{UserID: "owner-acme", DisplayName: "Acme", ShopSlug: "acme"}, "", shops, fastConfig(), nil)
	t.Cleanup(m.Close)

	roomID, tl, err := m.OpenDirect(context.Background(), "owner-beta")
	require.NoError(t, err)
	assert.Equal(t, "dm-acme-beta", roomID)
	assert.NotNil(t, tl)

	_, _, err = m.OpenDirect(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrShopNotFound)

	guest := NewManager(base, model.Identity{UserID: "g1"}, "", shops, fastConfig(), nil)
	t.Cleanup(guest.Close)
	_, _, err = guest.OpenDirect(context.Background(), "owner-beta")
	assert.Error(t, err)
}

func TestManager_PresenceEvents(t *testing.T) {
	var mu sync.Mutex
	var notified []event.Envelope
	m := NewManager("ws://unused", model.Identity{UserID: "me"}, "", nil, fastConfig(), func(roomID string, env event.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		assert.Empty(t, roomID)
		notified = append(notified, env)
	})

	m.handlePresence(event.Envelope{Type: event.TypeOnlineUsers, Users: []model.PresenceEntry{
		{UserID: "u2", Username: "Zed", Status: model.StatusOnline},
		{UserID: "u1", Username: "Ann", Status: model.StatusOnline},
	}})
	m.handlePresence(event.Envelope{Type: event.TypePresence, UserID: "u3", Username: "Bob", Status: model.StatusOnline})
	m.handlePresence(event.Envelope{Type: event.TypePresence, UserID: "u2", Username: "Zed", Status: model.StatusOffline})
	m.handlePresence(event.Envelope{Type: event.TypePong})

	online := m.Online()
	require.Len(t, online, 2)
	assert.Equal(t, "Ann", online[0].Username)
	assert.Equal(t, "Bob", online[1].Username)

	mu.Lock()
	assert.Len(t, notified, 2)
	mu.Unlock()
}

func TestHTTPShopLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cf/api/shops/by-owner/owner-acme" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"HttpStatusCode": http.StatusOK,
			"IsSuccess":      true,
			"ResponseBody":   model.Shop{Slug: "acme", OwnerUserID: "owner-acme", Name: "Acme"},
		})
	}))
	t.Cleanup(srv.Close)

	lookup := NewHTTPShopLookup(srv.URL)
	shop, err := lookup.ShopByOwner(context.Background(), "owner-acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", shop.Slug)

	_, err = lookup.ShopByOwner(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrShopNotFound)
}
