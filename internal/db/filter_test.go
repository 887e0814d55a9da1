package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFilterBuilder(t *testing.T) {
	cutoff := time.UnixMilli(1_700_000_000_000)

	got := NewFilter().Room("chat-acme").SentBefore(cutoff).Build()
	assert.Equal(t, bson.M{
		"room_id":   "chat-acme",
		"timestamp": bson.M{"$lt": int64(1_700_000_000_000)},
	}, got)

	assert.Equal(t, bson.M{"members": "acme"}, NewFilter().Member("acme").Kind("").Build())
	assert.Equal(t, bson.M{"members": "acme", "kind": "guest"}, NewFilter().Member("acme").Kind("guest").Build())
	assert.Equal(t, bson.M{}, NewFilter().Build())
}
