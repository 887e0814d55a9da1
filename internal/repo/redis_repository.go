package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps each room's log in a sorted set scored by the message
// timestamp, and room summaries indexed in per-shop and per-kind sorted sets.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore wraps client. ttl bounds how long an idle room's keys live;
// it should be at least the retention window.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

// roomMessagesKey returns the key for a room's message sorted set.
func roomMessagesKey(roomID string) string {
	return fmt.Sprintf("room:%s:messages", roomID)
}

// roomSummaryKey returns the key holding a room's JSON summary.
func roomSummaryKey(roomID string) string {
	return fmt.Sprintf("room:%s:summary", roomID)
}

// shopRoomsKey returns the key for a shop's room index, or for the index of
// one room kind when kind is set.
func shopRoomsKey(shopSlug, kind string) string {
	if kind == "" {
		return fmt.Sprintf("shop:%s:rooms", shopSlug)
	}
	return fmt.Sprintf("shop:%s:rooms:%s", shopSlug, kind)
}

// insertScript adds a message unless its timestamp is already taken in the
// room, and refreshes the key's TTL when one is set. Returns 1 when added.
var insertScript = redis.NewScript(`
if redis.call('ZCOUNT', KEYS[1], ARGV[1], ARGV[1]) > 0 then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

func (s *RedisStore) InsertMessage(ctx context.Context, msg *model.Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	added, err := insertScript.Run(ctx, s.client,
		[]string{roomMessagesKey(msg.RoomID)},
		msg.Timestamp, string(data), s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		s.logger.Error("failed to insert message",
			zap.String("room_id", msg.RoomID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return fmt.Errorf("insert message failed: %w", err)
	}
	if added == 0 {
		return fmt.Errorf("insert message failed: %w", ErrDuplicateTimestamp)
	}
	return nil
}

func (s *RedisStore) RecentMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	if err := validateRoomID(roomID); err != nil {
		return nil, err
	}

	results, err := s.client.ZRevRangeByScore(ctx, roomMessagesKey(roomID), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("recent messages failed: %w", err)
	}

	msgs := make([]model.Message, 0, len(results))
	for _, data := range results {
		var msg model.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			s.logger.Warn("skipping undecodable message", zap.String("room_id", roomID), zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}

	reverse(msgs)
	return msgs, nil
}

func (s *RedisStore) DeleteOlderThan(ctx context.Context, roomID string, cutoff time.Time) (int64, error) {
	if err := validateRoomID(roomID); err != nil {
		return 0, err
	}

	// exclusive upper bound: keep messages stored exactly at the cutoff
	upper := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	n, err := s.client.ZRemRangeByScore(ctx, roomMessagesKey(roomID), "-inf", upper).Result()
	if err != nil {
		return 0, fmt.Errorf("delete old messages failed: %w", err)
	}
	return n, nil
}

func (s *RedisStore) TouchRoom(ctx context.Context, summary model.RoomSummary) error {
	if err := validateRoomID(summary.RoomID); err != nil {
		return err
	}

	var prev model.RoomSummary
	raw, err := s.client.Get(ctx, roomSummaryKey(summary.RoomID)).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &prev); err == nil {
			summary.MessageCount = prev.MessageCount
		}
	case !errors.Is(err, redis.Nil):
		return fmt.Errorf("failed to touch room: %w", err)
	}
	summary.MessageCount++
	summary.Members = mergeMembers(prev.Members, summary.Members)

	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	entry := redis.Z{
		Score:  float64(summary.LastMessageAt.UnixMilli()),
		Member: summary.RoomID,
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, roomSummaryKey(summary.RoomID), data, s.ttl)
	for _, slug := range summary.Members {
		for _, key := range []string{shopRoomsKey(slug, ""), shopRoomsKey(slug, summary.Kind)} {
			pipe.ZAdd(ctx, key, entry)
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}
	return nil
}

func (s *RedisStore) ListShopRooms(ctx context.Context, shopSlug, kind string, limit int) ([]model.RoomSummary, error) {
	ids, err := s.client.ZRevRange(ctx, shopRoomsKey(shopSlug, kind), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list shop rooms: %w", err)
	}
	if len(ids) == 0 {
		return []model.RoomSummary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomSummaryKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list shop rooms: %w", err)
	}

	rooms := make([]model.RoomSummary, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // summary expired
		}
		var summary model.RoomSummary
		if err := json.Unmarshal([]byte(str), &summary); err != nil {
			continue
		}
		rooms = append(rooms, summary)
	}
	return rooms, nil
}
