package hub

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/metrics"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"go.uber.org/zap"
)

// Room is the actor that owns one room id. All of its state is touched
// only by the run goroutine; everything else talks to it through inbox.
type Room struct {
	ref     model.RoomRef
	hub     *Hub
	inbox   chan func()
	stopped chan struct{}
	refs    atomic.Int32
	logger  *zap.Logger

	sessions map[string]*Session
	lastTS   int64
}

func newRoom(ref model.RoomRef, h *Hub) *Room {
	return &Room{
		ref:      ref,
		hub:      h,
		inbox:    make(chan func(), h.opts.InboxSize),
		stopped:  make(chan struct{}),
		logger:   h.logger.With(zap.String("room_id", ref.ID), zap.Stringer("kind", ref.Kind)),
		sessions: make(map[string]*Session),
	}
}

func (r *Room) run(ctx context.Context) {
	defer r.hub.wg.Done()
	metrics.LiveRooms.Inc()
	defer metrics.LiveRooms.Dec()

	idle := time.NewTimer(r.hub.opts.RoomIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case fn := <-r.inbox:
			fn()
			if len(r.sessions) == 0 {
				idle.Reset(r.hub.opts.RoomIdleTimeout)
			} else {
				idle.Stop()
			}
		case <-idle.C:
			if len(r.sessions) == 0 && r.hub.retire(r) {
				drain(r.inbox)
				r.logger.Debug("room retired")
				return
			}
			idle.Reset(r.hub.opts.RoomIdleTimeout)
		}
	}
}

// submit queues fn, waiting for inbox space. It reports false once the
// room has stopped.
func (r *Room) submit(fn func()) bool {
	select {
	case <-r.stopped:
		return false
	default:
	}
	select {
	case r.inbox <- fn:
		return true
	case <-r.stopped:
		return false
	}
}

// trySubmit queues fn only if the inbox has space.
func (r *Room) trySubmit(fn func()) bool {
	select {
	case <-r.stopped:
		return false
	default:
	}
	select {
	case r.inbox <- fn:
		return true
	default:
		return false
	}
}

// shutdown refuses new commands, runs the ones already queued so pending
// attaches are answered, then releases every session.
func (r *Room) shutdown() {
	close(r.stopped)
	drain(r.inbox)
	for _, s := range r.sessions {
		r.removeSession(s)
	}
}

// owner

func (r *Room) dispatch(s *Session, in event.Inbound) {
	r.submit(func() {
		switch in.Type {
		case event.TypeMessage:
			r.post(s, in)
		case event.TypePing:
			if r.isAttached(s) {
				r.send(s, event.NewPong())
			}
		default:
			if r.isAttached(s) {
				r.send(s, event.NewError(event.CodeUnknownType, "unknown event type: "+in.Type))
			}
		}
	})
}

func (r *Room) invalid(s *Session, err error) {
	r.submit(func() {
		if r.isAttached(s) {
			r.send(s, event.NewError(event.CodeInvalidPayload, err.Error()))
		}
	})
}

func (r *Room) leave(s *Session) {
	r.submit(func() {
		r.detach(s)
	})
}

// handlers, run goroutine only

func (r *Room) attach(s *Session) {
	if s.state != stateUnattached {
		r.logger.Warn("session cannot be reattached", zap.String("session_id", s.ID))
		return
	}

	history := r.loadHistory()
	if n := len(history); n > 0 && history[n-1].Timestamp > r.lastTS {
		r.lastTS = history[n-1].Timestamp
	}

	s.state = stateAttached
	r.sessions[s.ID] = s
	metrics.ActiveSessions.Inc()
	r.logger.Debug("session attached",
		zap.String("session_id", s.ID),
		zap.String("user_id", s.Identity.UserID),
		zap.Int("history", len(history)))

	r.send(s, event.NewHistory(history))
}

// loadHistory prunes expired messages and returns the newest ones. Store
// failures leave the session with an empty history rather than refusing it.
func (r *Room) loadHistory() []model.Message {
	ctx, cancel := context.WithTimeout(r.hub.ctx, r.hub.opts.StoreTimeout)
	defer cancel()

	cutoff := r.hub.opts.Now().Add(-r.hub.opts.Retention)

	timer := prometheus.NewTimer(metrics.StoreLatency.WithLabelValues("prune"))
	removed, err := r.hub.messages.DeleteOlderThan(ctx, r.ref.ID, cutoff)
	timer.ObserveDuration()
	if err != nil {
		r.logger.Error("failed to prune expired messages", zap.Error(err))
	} else if removed > 0 {
		r.logger.Info("pruned expired messages", zap.Int64("removed", removed))
	}

	timer = prometheus.NewTimer(metrics.StoreLatency.WithLabelValues("recent"))
	history, err := r.hub.messages.RecentMessages(ctx, r.ref.ID, r.hub.opts.HistoryLimit)
	timer.ObserveDuration()
	if err != nil {
		r.logger.Error("failed to load history", zap.Error(err))
		return nil
	}

	// Pruning may have failed; never hand out expired messages.
	limit := cutoff.UnixMilli()
	kept := history[:0]
	for _, msg := range history {
		if msg.Timestamp >= limit {
			kept = append(kept, msg)
		}
	}
	return kept
}

func (r *Room) post(s *Session, in event.Inbound) {
	if !r.isAttached(s) {
		metrics.PostsRejected.WithLabelValues(event.CodeNotAttached).Inc()
		r.logger.Warn("post from unattached session", zap.String("session_id", s.ID))
		return
	}

	kind := in.MessageType
	if kind == "" {
		kind = model.KindText
	}
	if !kind.Valid() {
		metrics.PostsRejected.WithLabelValues(event.CodeInvalidPayload).Inc()
		r.send(s, event.NewError(event.CodeInvalidPayload, "unknown message type: "+string(kind)))
		return
	}
	if strings.TrimSpace(in.Content) == "" && in.Product == nil {
		metrics.PostsRejected.WithLabelValues(event.CodeInvalidPayload).Inc()
		r.send(s, event.NewError(event.CodeInvalidPayload, "message content is empty"))
		return
	}

	ts := r.hub.opts.Now().UnixMilli()
	if ts <= r.lastTS {
		ts = r.lastTS + 1
	}

	msg := model.Message{
		ID:         ulid.Make().String(),
		RoomID:     r.ref.ID,
		SenderID:   s.Identity.UserID,
		SenderName: s.Identity.DisplayName,
		Content:    in.Content,
		Kind:       kind,
		Product:    in.Product,
		Timestamp:  ts,
	}

	ctx, cancel := context.WithTimeout(r.hub.ctx, r.hub.opts.StoreTimeout)
	defer cancel()

	timer := prometheus.NewTimer(metrics.StoreLatency.WithLabelValues("insert"))
	err := r.hub.messages.InsertMessage(ctx, &msg)
	timer.ObserveDuration()
	if err != nil {
		metrics.PostsRejected.WithLabelValues(event.CodeStoreFailed).Inc()
		r.logger.Error("failed to store message", zap.String("user_id", msg.SenderID), zap.Error(err))
		r.send(s, event.NewError(event.CodeStoreFailed, "message could not be saved"))
		return
	}

	r.lastTS = ts
	metrics.MessagesPosted.WithLabelValues(r.ref.Kind.String(), string(kind)).Inc()

	r.broadcast(event.NewMessage(msg))
	r.hub.routeNotification(r.ref, s.Identity, msg)

	if r.hub.rooms != nil {
		if err := r.hub.rooms.TouchRoom(ctx, model.SummaryFor(r.ref, msg, s.Identity.ShopSlug)); err != nil {
			r.logger.Warn("failed to update room summary", zap.Error(err))
		}
	}
}

func (r *Room) detach(s *Session) {
	if cur, ok := r.sessions[s.ID]; ok && cur == s {
		r.removeSession(s)
		r.logger.Debug("session detached", zap.String("session_id", s.ID))
		return
	}
	// Never attached here; make sure it cannot attach later.
	if s.state == stateUnattached {
		s.detach()
	}
}

func (r *Room) removeSession(s *Session) {
	delete(r.sessions, s.ID)
	s.detach()
	metrics.ActiveSessions.Dec()
}

func (r *Room) isAttached(s *Session) bool {
	cur, ok := r.sessions[s.ID]
	return ok && cur == s && s.state == stateAttached
}

// send delivers to one session, dropping it if its buffer is full.
func (r *Room) send(s *Session, ev event.Outbound) {
	if !s.deliver(ev) {
		r.drop(s)
	}
}

func (r *Room) broadcast(ev event.Outbound) {
	var slow []*Session
	for _, s := range r.sessions {
		if !s.deliver(ev) {
			slow = append(slow, s)
		}
	}
	for _, s := range slow {
		r.drop(s)
	}
}

func (r *Room) drop(s *Session) {
	if _, ok := r.sessions[s.ID]; !ok {
		return
	}
	metrics.SessionsDropped.Inc()
	r.logger.Warn("send buffer full - dropping session",
		zap.String("session_id", s.ID),
		zap.String("user_id", s.Identity.UserID))
	r.removeSession(s)
}

func (r *Room) info() model.RoomInfo {
	ids := make([]string, 0, len(r.sessions))
	seen := make(map[string]struct{}, len(r.sessions))
	for _, s := range r.sessions {
		if _, ok := seen[s.Identity.UserID]; ok {
			continue
		}
		seen[s.Identity.UserID] = struct{}{}
		ids = append(ids, s.Identity.UserID)
	}
	sort.Strings(ids)

	return model.RoomInfo{
		RoomID:     r.ref.ID,
		Kind:       r.ref.Kind.String(),
		Sessions:   len(r.sessions),
		UserIDs:    ids,
		LastPostAt: r.lastTS,
	}
}

// stats asks the actor for a snapshot. ok is false if the room stopped first.
func (r *Room) stats(ctx context.Context) (info model.RoomInfo, ok bool) {
	reply := make(chan model.RoomInfo, 1)
	if !r.submit(func() { reply <- r.info() }) {
		return model.RoomInfo{}, false
	}
	select {
	case info = <-reply:
		return info, true
	case <-r.stopped:
		return model.RoomInfo{}, false
	case <-ctx.Done():
		return model.RoomInfo{}, false
	}
}

// drain runs whatever is still queued on inbox.
func drain(inbox chan func()) {
	for {
		select {
		case fn := <-inbox:
			fn()
		default:
			return
		}
	}
}
