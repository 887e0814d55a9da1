package event

import (
	"encoding/json"
	"fmt"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
)

// Wire event types. Client -> server: MESSAGE, PING.
const (
	TypeMessage           = "MESSAGE"
	TypePing              = "PING"
	TypePong              = "PONG"
	TypeHistory           = "HISTORY"
	TypeError             = "ERROR"
	TypeGuestNotification = "GUEST_NOTIFICATION"
	TypeDMNotification    = "DM_NOTIFICATION"
	TypeOnlineUsers       = "ONLINE_USERS"
	TypePresence          = "PRESENCE"
)

// Error codes carried by ERROR events.
const (
	CodeInvalidPayload = "invalid_payload"
	CodeUnknownType    = "unknown_type"
	CodeUnsupported    = "unsupported"
	CodeNotAttached    = "not_attached"
	CodeStoreFailed    = "store_failed"
)

// Inbound is a client -> server frame.
type Inbound struct {
	Type        string            `json:"type"`
	Content     string            `json:"content,omitempty"`
	MessageType model.MessageKind `json:"messageType,omitempty"`
	Product     *model.Product    `json:"product,omitempty"`
}

// Outbound is any server -> client event.
type Outbound interface {
	EventType() string
}

type History struct {
	Type     string          `json:"type"`
	Messages []model.Message `json:"messages"`
}

type Message struct {
	Type    string        `json:"type"`
	Message model.Message `json:"message"`
}

type Pong struct {
	Type string `json:"type"`
}

type Error struct {
	Type string `json:"type"`
	model.ErrorPayload
}

// GuestNotification tells a shop lobby about activity in one of its guest rooms.
type GuestNotification struct {
	Type        string         `json:"type"`
	RoomID      string         `json:"roomId"`
	GuestID     string         `json:"guestId"`
	GuestName   string         `json:"guestName"`
	LastMessage string         `json:"lastMessage"`
	Timestamp   int64          `json:"timestamp"`
	Product     *model.Product `json:"product,omitempty"`
}

// DMNotification tells a shop, wherever it is connected, about a direct message.
type DMNotification struct {
	Type        string         `json:"type"`
	TargetSlug  string         `json:"targetSlug"`
	RoomID      string         `json:"roomId"`
	SenderName  string         `json:"senderName"`
	LastMessage string         `json:"lastMessage"`
	Timestamp   int64          `json:"timestamp"`
	Product     *model.Product `json:"product,omitempty"`
}

type OnlineUsers struct {
	Type  string                `json:"type"`
	Users []model.PresenceEntry `json:"users"`
}

type Presence struct {
	Type     string               `json:"type"`
	UserID   string               `json:"userId"`
	Username string               `json:"username"`
	Status   model.PresenceStatus `json:"status"`
}

func (History) EventType() string           { return TypeHistory }
func (Message) EventType() string           { return TypeMessage }
func (Pong) EventType() string              { return TypePong }
func (Error) EventType() string             { return TypeError }
func (GuestNotification) EventType() string { return TypeGuestNotification }
func (DMNotification) EventType() string    { return TypeDMNotification }
func (OnlineUsers) EventType() string       { return TypeOnlineUsers }
func (Presence) EventType() string          { return TypePresence }

func NewHistory(msgs []model.Message) History {
	if msgs == nil {
		msgs = []model.Message{}
	}
	return History{Type: TypeHistory, Messages: msgs}
}

func NewMessage(msg model.Message) Message {
	return Message{Type: TypeMessage, Message: msg}
}

func NewPong() Pong {
	return Pong{Type: TypePong}
}

func NewError(code, message string) Error {
	return Error{Type: TypeError, ErrorPayload: model.ErrorPayload{Code: code, Message: message}}
}

func NewOnlineUsers(users []model.PresenceEntry) OnlineUsers {
	if users == nil {
		users = []model.PresenceEntry{}
	}
	return OnlineUsers{Type: TypeOnlineUsers, Users: users}
}

func NewPresence(entry model.PresenceEntry) Presence {
	return Presence{Type: TypePresence, UserID: entry.UserID, Username: entry.Username, Status: entry.Status}
}

// Envelope decodes any server -> client event. Clients switch on Type and
// read the fields that event carries.
type Envelope struct {
	Type        string                `json:"type"`
	Messages    []model.Message       `json:"messages"`
	Message     json.RawMessage       `json:"message"`
	Users       []model.PresenceEntry `json:"users"`
	UserID      string                `json:"userId"`
	Username    string                `json:"username"`
	Status      model.PresenceStatus  `json:"status"`
	RoomID      string                `json:"roomId"`
	GuestID     string                `json:"guestId"`
	GuestName   string                `json:"guestName"`
	TargetSlug  string                `json:"targetSlug"`
	SenderName  string                `json:"senderName"`
	LastMessage string                `json:"lastMessage"`
	Timestamp   int64                 `json:"timestamp"`
	Product     *model.Product        `json:"product"`
	Code        string                `json:"code"`
}

// ChatMessage decodes the message of a MESSAGE event.
func (e Envelope) ChatMessage() (model.Message, error) {
	var msg model.Message
	if e.Type != TypeMessage {
		return msg, fmt.Errorf("event %s carries no chat message", e.Type)
	}
	err := json.Unmarshal(e.Message, &msg)
	return msg, err
}

// ErrorText returns the human readable text of an ERROR event.
func (e Envelope) ErrorText() string {
	var text string
	if e.Type != TypeError || json.Unmarshal(e.Message, &text) != nil {
		return ""
	}
	return text
}
