package db

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// FilterBuilder builds bson filters over the chat collections. Field names
// match the bson tags on model.Message and model.RoomSummary.
type FilterBuilder struct {
	filter bson.M
}

func NewFilter() *FilterBuilder {
	return &FilterBuilder{filter: bson.M{}}
}

// Eq adds an equality condition
func (f *FilterBuilder) Eq(field string, value interface{}) *FilterBuilder {
	f.filter[field] = value
	return f
}

// Room restricts the filter to one room's documents.
func (f *FilterBuilder) Room(roomID string) *FilterBuilder {
	return f.Eq("room_id", roomID)
}

// Member restricts the filter to rooms whose members array holds slug.
func (f *FilterBuilder) Member(slug string) *FilterBuilder {
	return f.Eq("members", slug)
}

// Kind restricts the filter to one room kind. An empty kind matches all.
func (f *FilterBuilder) Kind(kind string) *FilterBuilder {
	if kind == "" {
		return f
	}
	return f.Eq("kind", kind)
}

// SentBefore matches messages whose unix-millisecond timestamp is before t.
func (f *FilterBuilder) SentBefore(t time.Time) *FilterBuilder {
	f.filter["timestamp"] = bson.M{"$lt": t.UnixMilli()}
	return f
}

func (f *FilterBuilder) Build() bson.M {
	return f.filter
}
