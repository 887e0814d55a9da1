package repo

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
)

var (
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
	ErrInvalidMessage     = errors.New("invalid message: message cannot be nil")
	ErrInvalidRoomID      = errors.New("invalid room ID: cannot be empty")
	ErrOperationTimeout   = errors.New("operation timeout exceeded")
	ErrShopNotFound       = errors.New("shop not found")
	ErrDuplicateTimestamp = errors.New("a message with this timestamp already exists in the room")
)

// MessageRepository is the durable, per-room ordered message log.
type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *model.Message) error
	// RecentMessages returns up to limit of the newest messages, oldest first.
	RecentMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error)
	DeleteOlderThan(ctx context.Context, roomID string, cutoff time.Time) (int64, error)
}

// RoomRepository keeps the inbox summary of each room. TouchRoom adds the
// summary's members to those already recorded; it never removes one.
type RoomRepository interface {
	TouchRoom(ctx context.Context, summary model.RoomSummary) error
	// ListShopRooms returns up to limit rooms listing shopSlug as a member,
	// most recently active first. A non-empty kind keeps only rooms of that
	// kind before the limit is applied.
	ListShopRooms(ctx context.Context, shopSlug, kind string, limit int) ([]model.RoomSummary, error)
}

// ShopDirectory resolves shop slugs to their owning identities and back.
type ShopDirectory interface {
	FindBySlug(ctx context.Context, slug string) (*model.Shop, error)
	FindByOwner(ctx context.Context, userID string) (*model.Shop, error)
}

func validateMessage(msg *model.Message) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if msg.RoomID == "" {
		return ErrInvalidRoomID
	}
	return nil
}

func validateRoomID(roomID string) error {
	if roomID == "" {
		return ErrInvalidRoomID
	}
	return nil
}

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

// mergeMembers returns the sorted union of two member lists.
func mergeMembers(a, b []string) []string {
	out := append(append([]string{}, a...), b...)
	sort.Strings(out)
	return slices.Compact(out)
}
