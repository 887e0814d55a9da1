package model

import (
	"errors"
	"slices"
	"sort"
	"strings"
	"time"
)

// RoomKind classifies a room by the shape of its id.
type RoomKind int

const (
	RoomUnknown RoomKind = iota
	RoomLobby
	RoomGuest
	RoomDirect
)

const (
	lobbyPrefix  = "chat-"
	guestInfix   = "-guest-"
	directPrefix = "dm-"
	maxRoomIDLen = 200
)

var (
	ErrInvalidRoomID = errors.New("invalid room id")
	ErrNoPosterSlug  = errors.New("poster has no shop slug")
	ErrNotDMMember   = errors.New("poster slug is not part of the dm room id")
)

func (k RoomKind) String() string {
	switch k {
	case RoomLobby:
		return "lobby"
	case RoomGuest:
		return "guest"
	case RoomDirect:
		return "direct"
	}
	return "unknown"
}

// RoomRef is a parsed room id. For guest rooms ShopSlug and GuestID are set,
// for lobbies only ShopSlug. Direct rooms keep the slugs encoded in ID; use
// ResolveDMTarget to split them relative to a known participant.
type RoomRef struct {
	ID       string
	Kind     RoomKind
	ShopSlug string
	GuestID  string
}

// LobbyRoomID returns a shop's default inbox room id.
func LobbyRoomID(shopSlug string) string {
	return lobbyPrefix + shopSlug
}

// GuestRoomID returns the room id of a visitor's conversation with a shop.
func GuestRoomID(shopSlug, guestID string) string {
	return lobbyPrefix + shopSlug + guestInfix + guestID
}

// DMRoomID returns the direct-message room id for two shops. Slugs are
// sorted so both parties derive the same id.
func DMRoomID(slugA, slugB string) string {
	if slugB < slugA {
		slugA, slugB = slugB, slugA
	}
	return directPrefix + slugA + "-" + slugB
}

// ParseRoomID classifies id. It rejects empty ids, ids with whitespace or
// slashes, and prefixes with nothing after them.
func ParseRoomID(id string) (RoomRef, error) {
	if id == "" || len(id) > maxRoomIDLen || strings.ContainsAny(id, " \t\r\n/?#") {
		return RoomRef{}, ErrInvalidRoomID
	}

	switch {
	case strings.HasPrefix(id, directPrefix):
		rest := strings.TrimPrefix(id, directPrefix)
		if !strings.Contains(rest, "-") || strings.HasPrefix(rest, "-") || strings.HasSuffix(rest, "-") {
			return RoomRef{}, ErrInvalidRoomID
		}
		return RoomRef{ID: id, Kind: RoomDirect}, nil

	case strings.HasPrefix(id, lobbyPrefix):
		rest := strings.TrimPrefix(id, lobbyPrefix)
		if rest == "" {
			return RoomRef{}, ErrInvalidRoomID
		}
		if i := strings.LastIndex(rest, guestInfix); i >= 0 {
			slug, guest := rest[:i], rest[i+len(guestInfix):]
			if slug == "" || guest == "" {
				return RoomRef{}, ErrInvalidRoomID
			}
			return RoomRef{ID: id, Kind: RoomGuest, ShopSlug: slug, GuestID: guest}, nil
		}
		return RoomRef{ID: id, Kind: RoomLobby, ShopSlug: rest}, nil
	}

	return RoomRef{ID: id, Kind: RoomUnknown}, nil
}

// ResolveDMTarget returns the other participant's slug of a dm room, given
// the poster's own slug. The poster slug is tried as prefix first, then as
// suffix. Slugs may contain '-', so two slugs sharing an affix can still be
// split wrongly; the rebuilt id is compared against roomID to catch the
// cases where the split cannot reproduce it.
func ResolveDMTarget(roomID, posterSlug string) (string, error) {
	if posterSlug == "" {
		return "", ErrNoPosterSlug
	}
	if !strings.HasPrefix(roomID, directPrefix) {
		return "", ErrInvalidRoomID
	}
	rest := strings.TrimPrefix(roomID, directPrefix)

	var target string
	switch {
	case strings.HasPrefix(rest, posterSlug+"-"):
		target = strings.TrimPrefix(rest, posterSlug+"-")
	case strings.HasSuffix(rest, "-"+posterSlug):
		target = strings.TrimSuffix(rest, "-"+posterSlug)
	default:
		return "", ErrNotDMMember
	}

	if target == "" || DMRoomID(posterSlug, target) != roomID {
		return "", ErrNotDMMember
	}
	return target, nil
}

// RoomSummary is the inbox view of a room: who it belongs to and its latest message.
type RoomSummary struct {
	RoomID        string       `json:"roomId" bson:"room_id"`
	Kind          string       `json:"kind" bson:"kind"`
	ShopSlug      string       `json:"shopSlug,omitempty" bson:"shop_slug,omitempty"`
	GuestID       string       `json:"guestId,omitempty" bson:"guest_id,omitempty"`
	Members       []string     `json:"members" bson:"members"`
	LastMessage   *LastMessage `json:"lastMessage" bson:"last_message"`
	LastMessageAt time.Time    `json:"lastMessageAt" bson:"last_message_at"`
	MessageCount  int64        `json:"messageCount" bson:"message_count"`
}

// LastMessage stores the most recent message preview
type LastMessage struct {
	MessageID  string    `json:"messageId" bson:"message_id"`
	Content    string    `json:"content" bson:"content"`
	SenderID   string    `json:"senderId" bson:"sender_id"`
	SenderName string    `json:"senderName" bson:"sender_name"`
	SentAt     time.Time `json:"sentAt" bson:"sent_at"`
}

// SummaryFor builds the summary update produced by storing msg in room.
// Members lists the shops whose inbox shows the room: the owner of a lobby
// or guest room, or both shops of a direct room once posterSlug resolves.
func SummaryFor(room RoomRef, msg Message, posterSlug string) RoomSummary {
	var members []string
	switch room.Kind {
	case RoomLobby, RoomGuest:
		members = []string{room.ShopSlug}
	case RoomDirect:
		if target, err := ResolveDMTarget(room.ID, posterSlug); err == nil {
			members = []string{posterSlug, target}
			sort.Strings(members)
		}
	}

	return RoomSummary{
		RoomID:   room.ID,
		Kind:     room.Kind.String(),
		ShopSlug: room.ShopSlug,
		GuestID:  room.GuestID,
		Members:  members,
		LastMessage: &LastMessage{
			MessageID:  msg.ID,
			Content:    msg.Preview(),
			SenderID:   msg.SenderID,
			SenderName: msg.SenderName,
			SentAt:     msg.SentAt(),
		},
		LastMessageAt: msg.SentAt(),
	}
}

// HasMember reports whether shopSlug's inbox lists the room.
func (s RoomSummary) HasMember(shopSlug string) bool {
	return slices.Contains(s.Members, shopSlug)
}
