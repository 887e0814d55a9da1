package model

import (
	"time"
	"unicode/utf8"
)

// MessageKind is the content type of a chat message.
type MessageKind string

const (
	KindText  MessageKind = "TEXT"
	KindImage MessageKind = "IMAGE"
	KindFile  MessageKind = "FILE"
)

const previewLength = 100

// Valid reports whether k is one of the known message kinds.
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindFile:
		return true
	}
	return false
}

// Message represents a stored chat message. Timestamp is unix milliseconds and
// doubles as the storage key, so it strictly increases within a room.
type Message struct {
	ID         string      `json:"id" bson:"message_id"`
	RoomID     string      `json:"roomId" bson:"room_id"`
	SenderID   string      `json:"senderId" bson:"sender_id"`
	SenderName string      `json:"senderName" bson:"sender_name"`
	Content    string      `json:"content" bson:"content"`
	Kind       MessageKind `json:"messageType" bson:"message_type"`
	Product    *Product    `json:"product,omitempty" bson:"product,omitempty"`
	Timestamp  int64       `json:"timestamp" bson:"timestamp"`
}

// Product is the catalog item a message may reference.
type Product struct {
	ID    string  `json:"id" bson:"id"`
	Name  string  `json:"name" bson:"name"`
	Image string  `json:"image,omitempty" bson:"image,omitempty"`
	Price float64 `json:"price" bson:"price"`
}

// SentAt returns the message timestamp as a time.Time.
func (m Message) SentAt() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Preview returns the short text shown in notifications and inbox listings.
func (m Message) Preview() string {
	switch m.Kind {
	case KindImage:
		return "[image]"
	case KindFile:
		return "[file]"
	}
	if utf8.RuneCountInString(m.Content) <= previewLength {
		return m.Content
	}
	runes := []rune(m.Content)
	return string(runes[:previewLength]) + "…"
}

// ErrorPayload represents an error response sent to client via WebSocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
