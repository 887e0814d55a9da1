package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/db"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
)

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

// NewMessageRepository returns the MongoDB backed message log.
func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// EnsureMessageIndexes makes (room_id, timestamp) unique so the storage key
// cannot be reused inside a room.
func EnsureMessageIndexes(ctx context.Context, repo *db.Repository[model.Message]) error {
	return repo.EnsureIndex(ctx, true, "room_id", "timestamp")
}

// -----------------------------------------------------------------------------
// InsertMessage
// -----------------------------------------------------------------------------

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return err
			}
		}

		_, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			m.logger.Debug("message inserted",
				zap.String("message_id", msg.ID),
				zap.String("room_id", msg.RoomID),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}

		lastErr = err

		// Don't retry on context cancellation or non-retryable errors
		if !isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to insert message",
		zap.Error(lastErr),
		zap.String("room_id", msg.RoomID),
	)

	if mongo.IsDuplicateKeyError(lastErr) {
		return fmt.Errorf("insert message failed: %w", ErrDuplicateTimestamp)
	}
	if isRetryableError(lastErr) {
		return fmt.Errorf("insert message failed: %w: %w", ErrMaxRetriesExceeded, lastErr)
	}
	return fmt.Errorf("insert message failed: %w", lastErr)
}

// -----------------------------------------------------------------------------
// RecentMessages
// -----------------------------------------------------------------------------

func (m *messageRepository) RecentMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	if err := validateRoomID(roomID); err != nil {
		return nil, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Room(roomID).Build()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
			m.logger.Warn("retrying recent messages",
				zap.String("room_id", roomID),
				zap.Int("attempt", attempt+1),
			)
		}

		// Select newest N descending, then reverse for chronological order
		msgs, err := m.mongoRepo.FindSorted(ctx, filter, db.SortParams{
			SortBy:   "timestamp",
			SortDesc: true,
			Limit:    int64(limit),
		})
		if err == nil {
			reverse(msgs)
			m.logger.Debug("recent messages loaded",
				zap.String("room_id", roomID),
				zap.Int("count", len(msgs)),
			)
			return msgs, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return nil, m.handleReadError(lastErr, roomID)
}

// -----------------------------------------------------------------------------
// DeleteOlderThan
// -----------------------------------------------------------------------------

func (m *messageRepository) DeleteOlderThan(ctx context.Context, roomID string, cutoff time.Time) (int64, error) {
	if err := validateRoomID(roomID); err != nil {
		return 0, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Room(roomID).SentBefore(cutoff).Build()

	res, err := m.mongoRepo.DeleteMany(ctx, filter)
	if err != nil {
		m.logger.Error("retention sweep failed", zap.Error(err), zap.String("room_id", roomID))
		return 0, fmt.Errorf("delete old messages failed: %w", err)
	}
	return res.DeletedCount, nil
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

func reverse(msgs []model.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}

func (m *messageRepository) handleReadError(err error, roomID string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Error("read timeout", zap.String("room_id", roomID))
		return ErrOperationTimeout
	}

	if errors.Is(err, context.Canceled) {
		m.logger.Debug("read cancelled", zap.String("room_id", roomID))
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}

	m.logger.Error("read failed", zap.Error(err), zap.String("room_id", roomID))
	return fmt.Errorf("recent messages failed: %w", err)
}
