package repo

import (
	"context"
	"fmt"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/db"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type roomRepository struct {
	mongoRepo *db.Repository[model.RoomSummary]
	logger    *zap.Logger
}

// NewRoomRepository returns the MongoDB backed room summary store.
func NewRoomRepository(repo *db.Repository[model.RoomSummary], logger *zap.Logger) RoomRepository {
	return &roomRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// EnsureRoomIndexes backs the inbox query: one room id per summary, and
// member lookups ordered by activity.
func EnsureRoomIndexes(ctx context.Context, repo *db.Repository[model.RoomSummary]) error {
	if err := repo.EnsureIndex(ctx, true, "room_id"); err != nil {
		return err
	}
	return repo.EnsureIndex(ctx, false, "members", "kind", "last_message_at")
}

// TouchRoom upserts the summary document and bumps its message counter.
func (r *roomRepository) TouchRoom(ctx context.Context, summary model.RoomSummary) error {
	if err := validateRoomID(summary.RoomID); err != nil {
		return err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	members := summary.Members
	if members == nil {
		members = []string{}
	}

	update := bson.M{
		"$set": bson.M{
			"kind":            summary.Kind,
			"shop_slug":       summary.ShopSlug,
			"guest_id":        summary.GuestID,
			"last_message":    summary.LastMessage,
			"last_message_at": summary.LastMessageAt,
		},
		"$addToSet": bson.M{"members": bson.M{"$each": members}},
		"$inc":      bson.M{"message_count": 1},
	}

	if _, err := r.mongoRepo.Upsert(ctx, bson.M{"room_id": summary.RoomID}, update); err != nil {
		r.logger.Error("failed to touch room",
			zap.String("room_id", summary.RoomID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to touch room: %w", err)
	}
	return nil
}

// ListShopRooms returns a shop's rooms, most recently active first.
func (r *roomRepository) ListShopRooms(ctx context.Context, shopSlug, kind string, limit int) ([]model.RoomSummary, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Member(shopSlug).Kind(kind).Build()
	rooms, err := r.mongoRepo.FindSorted(ctx, filter, db.SortParams{
		SortBy:   "last_message_at",
		SortDesc: true,
		Limit:    int64(limit),
	})
	if err != nil {
		r.logger.Error("failed to list shop rooms",
			zap.String("shop_slug", shopSlug),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list shop rooms: %w", err)
	}

	r.logger.Debug("shop rooms retrieved",
		zap.String("shop_slug", shopSlug),
		zap.Int("count", len(rooms)),
	)
	return rooms, nil
}
