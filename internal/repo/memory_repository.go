package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
)

// MemoryStore is a process-local MessageRepository and RoomRepository, used
// for development and tests. Its contents are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]model.Message
	rooms    map[string]model.RoomSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]model.Message),
		rooms:    make(map[string]model.RoomSummary),
	}
}

func (s *MemoryStore) InsertMessage(_ context.Context, msg *model.Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.messages[msg.RoomID]
	i := sort.Search(len(log), func(i int) bool { return log[i].Timestamp >= msg.Timestamp })
	if i < len(log) && log[i].Timestamp == msg.Timestamp {
		return fmt.Errorf("insert message failed: %w", ErrDuplicateTimestamp)
	}

	log = append(log, model.Message{})
	copy(log[i+1:], log[i:])
	log[i] = *msg
	s.messages[msg.RoomID] = log
	return nil
}

func (s *MemoryStore) RecentMessages(_ context.Context, roomID string, limit int) ([]model.Message, error) {
	if err := validateRoomID(roomID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.messages[roomID]
	start := 0
	if limit > 0 && len(log) > limit {
		start = len(log) - limit
	}

	out := make([]model.Message, len(log)-start)
	copy(out, log[start:])
	return out, nil
}

func (s *MemoryStore) DeleteOlderThan(_ context.Context, roomID string, cutoff time.Time) (int64, error) {
	if err := validateRoomID(roomID); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.messages[roomID]
	ms := cutoff.UnixMilli()
	n := sort.Search(len(log), func(i int) bool { return log[i].Timestamp >= ms })
	if n > 0 {
		s.messages[roomID] = append([]model.Message(nil), log[n:]...)
	}
	return int64(n), nil
}

func (s *MemoryStore) TouchRoom(_ context.Context, summary model.RoomSummary) error {
	if err := validateRoomID(summary.RoomID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.rooms[summary.RoomID]
	summary.MessageCount = prev.MessageCount + 1
	summary.Members = mergeMembers(prev.Members, summary.Members)
	s.rooms[summary.RoomID] = summary
	return nil
}

func (s *MemoryStore) ListShopRooms(_ context.Context, shopSlug, kind string, limit int) ([]model.RoomSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]model.RoomSummary, 0)
	for _, summary := range s.rooms {
		if summary.HasMember(shopSlug) && (kind == "" || summary.Kind == kind) {
			rooms = append(rooms, summary)
		}
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].LastMessageAt.After(rooms[j].LastMessageAt)
	})
	if limit > 0 && len(rooms) > limit {
		rooms = rooms[:limit]
	}
	return rooms, nil
}
