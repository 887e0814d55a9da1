package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/db"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Runs against a live server: MONGO_URI=mongodb://localhost:27017 go test ./internal/repo
func TestMessageRepository_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	con, err := db.OpenConnection(uri, "marketplace_chat_test")
	require.NoError(t, err, "ensure mongo is running")
	t.Cleanup(func() { _ = con.Client().Disconnect(context.Background()) })

	ctx := context.Background()
	coll := "messages_" + uuid.NewString()
	t.Cleanup(func() { _ = con.Collection(coll).Drop(ctx) })

	mongoRepo := db.NewRepository[model.Message](con, coll)
	require.NoError(t, EnsureMessageIndexes(ctx, mongoRepo))
	r := NewMessageRepository(mongoRepo, zap.NewNop())

	room := "chat-acme"
	now := time.Now()
	old := msgAt(room, now.Add(-15*24*time.Hour).UnixMilli())
	recent := msgAt(room, now.Add(-time.Hour).UnixMilli())
	require.NoError(t, r.InsertMessage(ctx, recent))
	require.NoError(t, r.InsertMessage(ctx, old))

	dup := msgAt(room, recent.Timestamp)
	dup.ID = "other"
	assert.ErrorIs(t, r.InsertMessage(ctx, dup), ErrDuplicateTimestamp)

	msgs, err := r.RecentMessages(ctx, room, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, old.ID, msgs[0].ID)

	n, err := r.DeleteOlderThan(ctx, room, now.Add(-14*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
