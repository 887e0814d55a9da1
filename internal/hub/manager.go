package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/repo"
	"go.uber.org/zap"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

// ErrStopped is returned once the hub has been shut down.
var ErrStopped = errors.New("hub stopped")

type roomBucket struct {
	sync.RWMutex
	rooms map[string]*Room
}

// Hub routes room ids to their room actors and owns the presence registry.
// The shard locks guard only the id -> actor map, never actor state.
type Hub struct {
	shards   [shardCount]*roomBucket
	registry *Registry
	messages repo.MessageRepository
	rooms    repo.RoomRepository
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.Logger
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewHub starts the presence registry. Room actors are spawned on first
// attach. rooms may be nil when summaries are not kept.
func NewHub(messages repo.MessageRepository, rooms repo.RoomRepository, opts Options, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	opts = opts.withDefaults()

	h := &Hub{
		messages: messages,
		rooms:    rooms,
		opts:     opts,
		logger:   logger.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &roomBucket{
			rooms: make(map[string]*Room),
		}
	}

	h.registry = newRegistry(opts.InboxSize, h.logger)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.registry.run(ctx)
	}()

	return h
}

// Registry returns the presence registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

func getShard(roomID string) uint32 {
	if roomID == "" {
		return 0
	}

	sum := sha1.Sum([]byte(roomID))
	return binary.BigEndian.Uint32(sum[:4]) % shardCount
}

// acquire returns the live actor for ref, spawning it if needed. The caller
// holds a reference until it calls release. It returns nil once the hub is
// stopping.
func (h *Hub) acquire(ref model.RoomRef) *Room {
	b := h.shards[getShard(ref.ID)]
	b.Lock()
	defer b.Unlock()

	if h.ctx.Err() != nil {
		return nil
	}
	r, ok := b.rooms[ref.ID]
	if !ok {
		r = newRoom(ref, h)
		b.rooms[ref.ID] = r
		h.wg.Add(1)
		go r.run(h.ctx)
		r.logger.Debug("room spawned")
	}
	r.refs.Add(1)
	return r
}

func (h *Hub) release(r *Room) {
	r.refs.Add(-1)
}

// withRoom runs fn against an already live room. It reports whether one existed.
func (h *Hub) withRoom(roomID string, fn func(r *Room)) bool {
	b := h.shards[getShard(roomID)]
	b.RLock()
	r, ok := b.rooms[roomID]
	if ok {
		r.refs.Add(1)
	}
	b.RUnlock()
	if !ok {
		return false
	}

	defer h.release(r)
	fn(r)
	return true
}

// retire removes an idle room from the map. It refuses while anyone holds
// a reference or commands are still queued. Called from the room's goroutine.
//
// submit does not take the shard lock, so a command can race the close of
// stopped. Only sessionless commands (leave, invalid) can reach a room with
// no references; they must stay no-ops on a room without sessions.
func (h *Hub) retire(r *Room) bool {
	b := h.shards[getShard(r.ref.ID)]
	b.Lock()
	defer b.Unlock()

	if r.refs.Load() > 0 || len(r.inbox) > 0 {
		return false
	}
	if cur, ok := b.rooms[r.ref.ID]; ok && cur == r {
		delete(b.rooms, r.ref.ID)
	}
	close(r.stopped)
	return true
}

// liveRooms returns referenced handles to every live room.
func (h *Hub) liveRooms() []*Room {
	var out []*Room
	for _, b := range h.shards {
		b.RLock()
		for _, r := range b.rooms {
			r.refs.Add(1)
			out = append(out, r)
		}
		b.RUnlock()
	}
	return out
}

// Attach hands s to the actor of ref, which replies with HISTORY.
func (h *Hub) Attach(ref model.RoomRef, s *Session) (*Room, error) {
	r := h.acquire(ref)
	if r == nil {
		return nil, ErrStopped
	}
	defer h.release(r)

	if !r.submit(func() { r.attach(s) }) {
		return nil, ErrStopped
	}
	return r, nil
}

// Stop shuts every actor down and waits for them.
func (h *Hub) Stop() {
	h.cancel()
	h.wg.Wait()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	_, wildcard := set["*"]

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 || wildcard {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeRoom upgrades the request and attaches the connection to ref.
func (h *Hub) ServeRoom(w http.ResponseWriter, r *http.Request, identity model.Identity, ref model.RoomRef) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := newSession(identity, conn, h.opts.SendBufSize, h.logger)
	room, err := h.Attach(ref, s)
	if err != nil {
		s.logger.Warn("attach refused", zap.Error(err))
		_ = conn.Close()
		return
	}
	s.start(room, h.opts.Timing)
}

// ServePresence upgrades the request and joins the connection to the registry.
func (h *Hub) ServePresence(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := newSession(identity, conn, h.opts.SendBufSize, h.logger)
	if !h.registry.Join(s) {
		_ = conn.Close()
		return
	}
	s.start(h.registry, h.opts.Timing)
}
