package handler

import (
	"net/http"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/hub"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/service"
	"go.uber.org/zap"
)

// SocketHandler admits websocket connections. Identity and credentials are
// checked before the upgrade so a refused caller never reaches an actor.
type SocketHandler struct {
	hub    *hub.Hub
	auth   *service.Authenticator
	logger *zap.Logger
}

// NewSocketHandler returns a handler; a nil auth admits any caller.
func NewSocketHandler(h *hub.Hub, auth *service.Authenticator, logger *zap.Logger) *SocketHandler {
	return &SocketHandler{hub: h, auth: auth, logger: logger}
}

func (h *SocketHandler) ServeChat(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		http.Error(w, "roomId is required", http.StatusBadRequest)
		return
	}
	ref, err := model.ParseRoomID(roomID)
	if err != nil {
		http.Error(w, "invalid roomId", http.StatusBadRequest)
		return
	}

	identity, ok := h.admit(w, r)
	if !ok {
		return
	}
	h.hub.ServeRoom(w, r, identity, ref)
}

func (h *SocketHandler) ServePresence(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.admit(w, r)
	if !ok {
		return
	}
	h.hub.ServePresence(w, r, identity)
}

func (h *SocketHandler) admit(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	q := r.URL.Query()
	identity := model.Identity{
		UserID:      q.Get("userId"),
		DisplayName: q.Get("username"),
		ShopSlug:    q.Get("shopSlug"),
	}
	if identity.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return identity, false
	}
	if identity.DisplayName == "" {
		identity.DisplayName = identity.UserID
	}

	if h.auth != nil {
		token := service.BearerToken(r.Header.Get("Authorization"), q.Get("token"))
		if _, err := h.auth.Verify(token, identity.UserID, identity.ShopSlug); err != nil {
			h.logger.Info("connection refused", zap.String("user_id", identity.UserID), zap.Error(err))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return identity, false
		}
	}
	return identity, true
}
