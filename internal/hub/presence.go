package hub

import (
	"context"
	"sort"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/metrics"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"go.uber.org/zap"
)

// Registry is the platform-wide presence actor. It owns every presence
// connection and the online list derived from them.
type Registry struct {
	inbox   chan func()
	stopped chan struct{}
	logger  *zap.Logger

	conns   map[string]map[string]*Session // userID -> sessionID -> session
	entries map[string]model.PresenceEntry
}

func newRegistry(inboxSize int, logger *zap.Logger) *Registry {
	return &Registry{
		inbox:   make(chan func(), inboxSize),
		stopped: make(chan struct{}),
		logger:  logger.Named("presence"),
		conns:   make(map[string]map[string]*Session),
		entries: make(map[string]model.PresenceEntry),
	}
}

func (g *Registry) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(g.stopped)
			drain(g.inbox)
			for _, byID := range g.conns {
				for _, s := range byID {
					s.detach()
				}
			}
			g.conns = map[string]map[string]*Session{}
			g.entries = map[string]model.PresenceEntry{}
			metrics.OnlineUsers.Set(0)
			return
		case fn := <-g.inbox:
			fn()
		}
	}
}

func (g *Registry) submit(fn func()) bool {
	select {
	case <-g.stopped:
		return false
	default:
	}
	select {
	case g.inbox <- fn:
		return true
	case <-g.stopped:
		return false
	}
}

// Join registers s and sends it the online list.
func (g *Registry) Join(s *Session) bool {
	return g.submit(func() { g.join(s) })
}

// Leave removes s. Safe to call more than once.
func (g *Registry) Leave(s *Session) {
	g.submit(func() { g.remove(s) })
}

// Snapshot returns the current online list.
func (g *Registry) Snapshot(ctx context.Context) ([]model.PresenceEntry, error) {
	reply := make(chan []model.PresenceEntry, 1)
	if !g.submit(func() { reply <- g.snapshot() }) {
		return nil, ErrStopped
	}
	select {
	case list := <-reply:
		return list, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RouteNotification queues a DM notification for the target shop's
// connections. It never blocks; false means the event was dropped.
func (g *Registry) RouteNotification(ev event.DMNotification) bool {
	select {
	case g.inbox <- func() { g.route(ev) }:
		return true
	default:
		return false
	}
}

// Stats reports online users and connection counts.
func (g *Registry) Stats(ctx context.Context) model.PresenceStats {
	reply := make(chan model.PresenceStats, 1)
	if !g.submit(func() {
		n := 0
		for _, byID := range g.conns {
			n += len(byID)
		}
		reply <- model.PresenceStats{OnlineUsers: len(g.entries), Connections: n}
	}) {
		return model.PresenceStats{}
	}
	select {
	case st := <-reply:
		return st
	case <-ctx.Done():
		return model.PresenceStats{}
	}
}

// owner

func (g *Registry) dispatch(s *Session, in event.Inbound) {
	g.submit(func() {
		if !g.isJoined(s) {
			return
		}
		switch in.Type {
		case event.TypePing:
			g.send(s, event.NewPong())
		default:
			g.send(s, event.NewError(event.CodeUnsupported, "presence connections accept PING only"))
		}
	})
}

func (g *Registry) invalid(s *Session, err error) {
	g.submit(func() {
		if g.isJoined(s) {
			g.send(s, event.NewError(event.CodeInvalidPayload, err.Error()))
		}
	})
}

func (g *Registry) leave(s *Session) {
	g.Leave(s)
}

// handlers, run goroutine only

func (g *Registry) join(s *Session) {
	if s.state != stateUnattached {
		return
	}
	s.state = stateAttached

	uid := s.Identity.UserID
	byID, online := g.conns[uid]
	if !online {
		byID = make(map[string]*Session)
		g.conns[uid] = byID
	}
	byID[s.ID] = s

	entry := model.PresenceEntry{UserID: uid, Username: s.Identity.DisplayName, Status: model.StatusOnline}
	if !online {
		g.entries[uid] = entry
		metrics.OnlineUsers.Set(float64(len(g.entries)))
		g.logger.Info("user online", zap.String("user_id", uid))
	}

	g.send(s, event.NewOnlineUsers(g.snapshot()))

	if !online {
		g.broadcast(event.NewPresence(entry), uid)
	}
}

func (g *Registry) remove(s *Session) {
	uid := s.Identity.UserID
	byID := g.conns[uid]
	if _, ok := byID[s.ID]; !ok {
		if s.state == stateUnattached {
			s.detach()
		}
		return
	}

	delete(byID, s.ID)
	s.detach()
	if len(byID) > 0 {
		return
	}

	delete(g.conns, uid)
	entry, ok := g.entries[uid]
	if !ok {
		return
	}
	delete(g.entries, uid)
	metrics.OnlineUsers.Set(float64(len(g.entries)))
	g.logger.Info("user offline", zap.String("user_id", uid))

	entry.Status = model.StatusOffline
	g.broadcast(event.NewPresence(entry), "")
}

func (g *Registry) route(ev event.DMNotification) {
	delivered := 0
	var slow []*Session
	for _, byID := range g.conns {
		for _, s := range byID {
			if s.Identity.ShopSlug != ev.TargetSlug {
				continue
			}
			if s.deliver(ev) {
				delivered++
			} else {
				slow = append(slow, s)
			}
		}
	}
	g.dropAll(slow)

	if delivered == 0 {
		metrics.NotificationsDropped.WithLabelValues(event.TypeDMNotification, "offline").Inc()
		g.logger.Debug("dm notification target offline", zap.String("target_slug", ev.TargetSlug))
		return
	}
	metrics.NotificationsRouted.WithLabelValues(event.TypeDMNotification).Inc()
}

func (g *Registry) snapshot() []model.PresenceEntry {
	list := make([]model.PresenceEntry, 0, len(g.entries))
	for _, e := range g.entries {
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

func (g *Registry) isJoined(s *Session) bool {
	_, ok := g.conns[s.Identity.UserID][s.ID]
	return ok
}

func (g *Registry) send(s *Session, ev event.Outbound) {
	if !s.deliver(ev) {
		g.dropAll([]*Session{s})
	}
}

// broadcast sends ev to every connection except those of skipUser.
func (g *Registry) broadcast(ev event.Outbound, skipUser string) {
	var slow []*Session
	for uid, byID := range g.conns {
		if uid == skipUser {
			continue
		}
		for _, s := range byID {
			if !s.deliver(ev) {
				slow = append(slow, s)
			}
		}
	}
	g.dropAll(slow)
}

func (g *Registry) dropAll(slow []*Session) {
	for _, s := range slow {
		if !g.isJoined(s) {
			continue
		}
		metrics.SessionsDropped.Inc()
		g.logger.Warn("send buffer full - dropping presence connection",
			zap.String("session_id", s.ID),
			zap.String("user_id", s.Identity.UserID))
		g.remove(s)
	}
}
