package client

import (
	"sort"
	"sync"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
)

// Timeline is the client's view of one room. A replayed HISTORY after a
// reconnect overlaps what is already known; merging by id keeps the list
// free of duplicates and ordered by timestamp.
type Timeline struct {
	mu    sync.RWMutex
	seen  map[string]struct{}
	items []model.Message
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[string]struct{})}
}

// Merge adds msgs that are not already present.
func (t *Timeline) Merge(msgs ...model.Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	added := 0
	for _, m := range msgs {
		if _, ok := t.seen[m.ID]; ok {
			continue
		}
		t.seen[m.ID] = struct{}{}
		t.items = append(t.items, m)
		added++
	}
	if added > 0 {
		sort.SliceStable(t.items, func(i, j int) bool {
			return t.items[i].Timestamp < t.items[j].Timestamp
		})
	}
	return added
}

// Messages returns a copy of the timeline, oldest first.
func (t *Timeline) Messages() []model.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]model.Message, len(t.items))
	copy(out, t.items)
	return out
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// FirstUnread returns the earliest message newer than lastRead (unix ms)
// that selfID did not send.
func (t *Timeline) FirstUnread(lastRead int64, selfID string) (model.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i := sort.Search(len(t.items), func(i int) bool {
		return t.items[i].Timestamp > lastRead
	})
	for ; i < len(t.items); i++ {
		if t.items[i].SenderID != selfID {
			return t.items[i], true
		}
	}
	return model.Message{}, false
}
