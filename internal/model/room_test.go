package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoomID(t *testing.T) {
	tests := []struct {
		id      string
		want    RoomRef
		wantErr bool
	}{
		{id: "chat-acme", want: RoomRef{ID: "chat-acme", Kind: RoomLobby, ShopSlug: "acme"}},
		{id: "chat-acme-guest-g123", want: RoomRef{ID: "chat-acme-guest-g123", Kind: RoomGuest, ShopSlug: "acme", GuestID: "g123"}},
		{id: "chat-acme-tools-guest-g1", want: RoomRef{ID: "chat-acme-tools-guest-g1", Kind: RoomGuest, ShopSlug: "acme-tools", GuestID: "g1"}},
		{id: "dm-acme-beta", want: RoomRef{ID: "dm-acme-beta", Kind: RoomDirect}},
		{id: "support", want: RoomRef{ID: "support", Kind: RoomUnknown}},
		{id: "", wantErr: true},
		{id: "chat-", wantErr: true},
		{id: "chat-acme-guest-", wantErr: true},
		{id: "dm-acme", wantErr: true},
		{id: "dm-acme-", wantErr: true},
		{id: "chat acme", wantErr: true},
		{id: "chat-a/b", wantErr: true},
		{id: strings.Repeat("x", 201), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseRoomID(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRoomID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoomIDBuilders(t *testing.T) {
	assert.Equal(t, "chat-acme", LobbyRoomID("acme"))
	assert.Equal(t, "chat-acme-guest-g123", GuestRoomID("acme", "g123"))
	assert.Equal(t, "dm-acme-beta", DMRoomID("acme", "beta"))
	assert.Equal(t, "dm-acme-beta", DMRoomID("beta", "acme"))

	ref, err := ParseRoomID(GuestRoomID("acme", "g123"))
	require.NoError(t, err)
	assert.Equal(t, "acme", ref.ShopSlug)
	assert.Equal(t, "g123", ref.GuestID)
}

func TestResolveDMTarget(t *testing.T) {
	tests := []struct {
		name    string
		roomID  string
		poster  string
		want    string
		wantErr error
	}{
		{name: "poster is prefix", roomID: "dm-acme-beta", poster: "acme", want: "beta"},
		{name: "poster is suffix", roomID: "dm-acme-beta", poster: "beta", want: "acme"},
		{name: "slugs with separators", roomID: DMRoomID("acme-tools", "zeta-parts"), poster: "zeta-parts", want: "acme-tools"},
		{name: "no poster slug", roomID: "dm-acme-beta", poster: "", wantErr: ErrNoPosterSlug},
		{name: "not a member", roomID: "dm-acme-beta", poster: "gamma", wantErr: ErrNotDMMember},
		{name: "not a dm room", roomID: "chat-acme", poster: "acme", wantErr: ErrInvalidRoomID},
		{name: "split does not rebuild id", roomID: "dm-zeta-acme", poster: "zeta", wantErr: ErrNotDMMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDMTarget(tt.roomID, tt.poster)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessagePreview(t *testing.T) {
	long := strings.Repeat("é", 150)

	assert.Equal(t, "hello", Message{Kind: KindText, Content: "hello"}.Preview())
	assert.Equal(t, "[image]", Message{Kind: KindImage, Content: "https://cdn/x.png"}.Preview())
	assert.Equal(t, "[file]", Message{Kind: KindFile, Content: "https://cdn/x.pdf"}.Preview())

	p := Message{Kind: KindText, Content: long}.Preview()
	assert.Equal(t, strings.Repeat("é", 100)+"…", p)
}

func TestSummaryFor(t *testing.T) {
	ref := RoomRef{ID: "chat-acme-guest-g1", Kind: RoomGuest, ShopSlug: "acme", GuestID: "g1"}
	msg := Message{ID: "m1", SenderID: "u1", SenderName: "Ann", Content: "hi", Kind: KindText, Timestamp: 1_700_000_000_000}

	s := SummaryFor(ref, msg, "")
	assert.Equal(t, "guest", s.Kind)
	assert.Equal(t, "acme", s.ShopSlug)
	assert.Equal(t, []string{"acme"}, s.Members)
	assert.True(t, s.HasMember("acme"))
	require.NotNil(t, s.LastMessage)
	assert.Equal(t, "hi", s.LastMessage.Content)
	assert.Equal(t, msg.SentAt(), s.LastMessageAt)
}

func TestSummaryFor_DirectRoomListsBothShops(t *testing.T) {
	ref, err := ParseRoomID(DMRoomID("tea-house", "acme"))
	require.NoError(t, err)
	msg := Message{ID: "m1", Content: "restock?", Kind: KindText, Timestamp: 1}

	s := SummaryFor(ref, msg, "tea-house")
	assert.Equal(t, "direct", s.Kind)
	assert.Empty(t, s.ShopSlug)
	assert.Equal(t, []string{"acme", "tea-house"}, s.Members)
	assert.True(t, s.HasMember("acme"))
	assert.True(t, s.HasMember("tea-house"))
	assert.False(t, s.HasMember("tea"))

	// a poster outside the room cannot be resolved, so no inbox lists it
	assert.Empty(t, SummaryFor(ref, msg, "beta").Members)
	assert.Empty(t, SummaryFor(ref, msg, "").Members)
}
