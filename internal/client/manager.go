package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"go.uber.org/zap"
)

var ErrRoomNotOpen = errors.New("room is not open")

// NotifyFunc receives events that are not merged into a timeline:
// notifications, presence changes and errors. roomID is empty for events
// from the presence connection.
type NotifyFunc func(roomID string, env event.Envelope)

type roomConn struct {
	conn     *Connection
	timeline *Timeline
	cancel   context.CancelFunc
}

// Manager holds one connection per open room plus one to the presence
// registry. The server is the source of truth; the manager keeps only what
// the server pushed.
type Manager struct {
	socketURL string
	identity  model.Identity
	header    http.Header
	cfg       Config
	shops     ShopLookup
	notify    NotifyFunc
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	rooms    map[string]*roomConn
	online   map[string]model.PresenceEntry
	presence *Connection
}

// NewManager prepares a manager for identity against the socket server at
// socketURL (for example ws://localhost:8081). token may be empty.
func NewManager(socketURL string, identity model.Identity, token string, shops ShopLookup, cfg Config, notify NotifyFunc) *Manager {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	return &Manager{
		socketURL: socketURL,
		identity:  identity,
		header:    header,
		cfg:       cfg,
		shops:     shops,
		notify:    notify,
		logger:    cfg.Logger.With(zap.String("user_id", identity.UserID)),
		ctx:       ctx,
		cancel:    cancel,
		rooms:     make(map[string]*roomConn),
		online:    make(map[string]model.PresenceEntry),
	}
}

func (m *Manager) query() url.Values {
	q := url.Values{}
	q.Set("userId", m.identity.UserID)
	q.Set("username", m.identity.DisplayName)
	if m.identity.ShopSlug != "" {
		q.Set("shopSlug", m.identity.ShopSlug)
	}
	return q
}

// ConnectPresence opens the registry connection if it is not open yet.
func (m *Manager) ConnectPresence() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.presence != nil {
		return
	}

	u := m.socketURL + "/ws/presence?" + m.query().Encode()
	m.presence = NewConnection(u, m.header, m.cfg, m.handlePresence)
	m.start(m.ctx, m.presence)
}

// Open connects to roomID and returns its timeline. Opening an already
// open room returns the existing timeline.
func (m *Manager) Open(roomID string) (*Timeline, error) {
	if _, err := model.ParseRoomID(roomID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rc, ok := m.rooms[roomID]; ok {
		return rc.timeline, nil
	}

	q := m.query()
	q.Set("roomId", roomID)

	timeline := NewTimeline()
	ctx, cancel := context.WithCancel(m.ctx)
	conn := NewConnection(m.socketURL+"/ws/chat?"+q.Encode(), m.header, m.cfg, func(env event.Envelope) {
		m.handleRoom(roomID, timeline, env)
	})
	m.rooms[roomID] = &roomConn{conn: conn, timeline: timeline, cancel: cancel}
	m.start(ctx, conn)
	return timeline, nil
}

// OpenDirect opens the direct room with the shop owned by peerUserID.
func (m *Manager) OpenDirect(ctx context.Context, peerUserID string) (string, *Timeline, error) {
	if m.identity.ShopSlug == "" {
		return "", nil, fmt.Errorf("direct rooms need a shop slug")
	}
	peer, err := m.shops.ShopByOwner(ctx, peerUserID)
	if err != nil {
		return "", nil, fmt.Errorf("find shop of %s: %w", peerUserID, err)
	}

	roomID := model.DMRoomID(m.identity.ShopSlug, peer.Slug)
	timeline, err := m.Open(roomID)
	return roomID, timeline, err
}

// Leave closes the connection to roomID.
func (m *Manager) Leave(roomID string) {
	m.mu.Lock()
	rc, ok := m.rooms[roomID]
	delete(m.rooms, roomID)
	m.mu.Unlock()
	if ok {
		rc.cancel()
	}
}

// Send posts a message on an open room connection.
func (m *Manager) Send(roomID, content string, kind model.MessageKind, product *model.Product) error {
	m.mu.RLock()
	rc, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return ErrRoomNotOpen
	}

	return rc.conn.Send(event.Inbound{
		Type:        event.TypeMessage,
		Content:     content,
		MessageType: kind,
		Product:     product,
	})
}

// WaitOpen blocks until the connection to roomID is up.
func (m *Manager) WaitOpen(ctx context.Context, roomID string) error {
	m.mu.RLock()
	rc, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return ErrRoomNotOpen
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !rc.conn.Connected() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Timeline returns the timeline of an open room.
func (m *Manager) Timeline(roomID string) (*Timeline, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rc, ok := m.rooms[roomID]
	if !ok {
		return nil, false
	}
	return rc.timeline, true
}

// Online returns the known online users sorted by username.
func (m *Manager) Online() []model.PresenceEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]model.PresenceEntry, 0, len(m.online))
	for _, e := range m.online {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Username != list[j].Username {
			return list[i].Username < list[j].Username
		}
		return list[i].UserID < list[j].UserID
	})
	return list
}

// Close drops every connection and waits for them to stop.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) start(ctx context.Context, conn *Connection) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = conn.Run(ctx)
	}()
}

func (m *Manager) handleRoom(roomID string, timeline *Timeline, env event.Envelope) {
	switch env.Type {
	case event.TypeHistory:
		timeline.Merge(env.Messages...)
	case event.TypeMessage:
		msg, err := env.ChatMessage()
		if err != nil {
			m.logger.Warn("bad message event", zap.String("room_id", roomID), zap.Error(err))
			return
		}
		timeline.Merge(msg)
	case event.TypePong:
	default:
		if env.Type == event.TypeError {
			m.logger.Warn("server error", zap.String("room_id", roomID),
				zap.String("code", env.Code), zap.String("message", env.ErrorText()))
		}
		if m.notify != nil {
			m.notify(roomID, env)
		}
	}
}

func (m *Manager) handlePresence(env event.Envelope) {
	switch env.Type {
	case event.TypeOnlineUsers:
		m.mu.Lock()
		m.online = make(map[string]model.PresenceEntry, len(env.Users))
		for _, u := range env.Users {
			m.online[u.UserID] = u
		}
		m.mu.Unlock()
	case event.TypePresence:
		m.mu.Lock()
		if env.Status == model.StatusOffline {
			delete(m.online, env.UserID)
		} else {
			m.online[env.UserID] = model.PresenceEntry{UserID: env.UserID, Username: env.Username, Status: env.Status}
		}
		m.mu.Unlock()
	case event.TypePong:
		return
	}

	if m.notify != nil && env.Type != event.TypeOnlineUsers {
		m.notify("", env)
	}
}
