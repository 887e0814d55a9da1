package hub

import (
	"errors"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/metrics"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"go.uber.org/zap"
)

// routeNotification tells secondary recipients about msg, stored in room
// by poster. It never blocks and never fails the post.
func (h *Hub) routeNotification(room model.RoomRef, poster model.Identity, msg model.Message) {
	switch room.Kind {
	case model.RoomGuest:
		ev := event.GuestNotification{
			Type:        event.TypeGuestNotification,
			RoomID:      room.ID,
			GuestID:     room.GuestID,
			GuestName:   poster.DisplayName,
			LastMessage: msg.Preview(),
			Timestamp:   msg.Timestamp,
			Product:     msg.Product,
		}
		h.notifyRoom(model.LobbyRoomID(room.ShopSlug), ev)

	case model.RoomDirect:
		target, err := model.ResolveDMTarget(room.ID, poster.ShopSlug)
		if err != nil {
			reason := "unresolved"
			if errors.Is(err, model.ErrNoPosterSlug) {
				reason = "no_poster_slug"
			}
			metrics.NotificationsDropped.WithLabelValues(event.TypeDMNotification, reason).Inc()
			h.logger.Warn("skipping dm notification",
				zap.String("room_id", room.ID),
				zap.String("user_id", poster.UserID),
				zap.String("poster_slug", poster.ShopSlug),
				zap.Error(err))
			return
		}

		ev := event.DMNotification{
			Type:        event.TypeDMNotification,
			TargetSlug:  target,
			RoomID:      room.ID,
			SenderName:  poster.DisplayName,
			LastMessage: msg.Preview(),
			Timestamp:   msg.Timestamp,
			Product:     msg.Product,
		}
		if !h.registry.RouteNotification(ev) {
			metrics.NotificationsDropped.WithLabelValues(event.TypeDMNotification, "queue_full").Inc()
			h.logger.Warn("presence inbox full - dm notification dropped", zap.String("room_id", room.ID))
		}
	}
}

// notifyRoom pushes ev to a live room's sessions. Rooms are never spawned
// for a notification: a room without an actor has nobody to tell.
func (h *Hub) notifyRoom(roomID string, ev event.Outbound) {
	queued, live := false, false
	h.withRoom(roomID, func(r *Room) {
		live = true
		queued = r.trySubmit(func() { r.broadcast(ev) })
	})

	switch {
	case !live:
		metrics.NotificationsDropped.WithLabelValues(ev.EventType(), "no_listeners").Inc()
	case !queued:
		metrics.NotificationsDropped.WithLabelValues(ev.EventType(), "queue_full").Inc()
		h.logger.Warn("room inbox full - notification dropped", zap.String("room_id", roomID))
	default:
		metrics.NotificationsRouted.WithLabelValues(ev.EventType()).Inc()
	}
}
