package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/repo"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/service"
	"go.uber.org/zap"
)

type ChatHandler interface {
	GetRoomMessages(c *gin.Context)
	GetShop(c *gin.Context)
	GetShopByOwner(c *gin.Context)
	GetShopRooms(c *gin.Context)
	GetDirectRoom(c *gin.Context)
}

type chatHandler struct {
	service service.ChatService
	logger  *zap.Logger
}

func NewChatHandler(service service.ChatService, logger *zap.Logger) ChatHandler {
	return &chatHandler{
		service: service,
		logger:  logger,
	}
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("limit", strconv.Itoa(service.DefaultPageSize))
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		respond(c, http.StatusBadRequest, nil, "Invalid limit")
		return 0, false
	}
	return limit, true
}

func (h *chatHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("roomId")
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	msgs, err := h.service.GetRoomMessages(c.Request.Context(), roomID, limit)
	if err != nil {
		if errors.Is(err, model.ErrInvalidRoomID) {
			respond(c, http.StatusBadRequest, nil, "Invalid room id")
			return
		}
		h.logger.Error("failed to get messages", zap.String("room_id", roomID), zap.Error(err))
		respond(c, http.StatusInternalServerError, nil, "Failed to get messages")
		return
	}

	respond(c, http.StatusOK, gin.H{"messages": msgs}, "Messages retrieved successfully")
}

func (h *chatHandler) GetShop(c *gin.Context) {
	shop, err := h.service.GetShop(c.Request.Context(), c.Param("slug"))
	h.shopResponse(c, shop, err)
}

func (h *chatHandler) GetShopByOwner(c *gin.Context) {
	shop, err := h.service.GetShopByOwner(c.Request.Context(), c.Param("userId"))
	h.shopResponse(c, shop, err)
}

func (h *chatHandler) shopResponse(c *gin.Context, shop *model.Shop, err error) {
	switch {
	case errors.Is(err, repo.ErrShopNotFound):
		respond(c, http.StatusNotFound, nil, "Shop not found")
	case err != nil:
		h.logger.Error("shop lookup failed", zap.Error(err))
		respond(c, http.StatusInternalServerError, nil, "Failed to get shop")
	default:
		respond(c, http.StatusOK, shop, "Shop retrieved successfully")
	}
}

func (h *chatHandler) GetShopRooms(c *gin.Context) {
	slug := c.Param("slug")
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	rooms, err := h.service.GetShopRooms(c.Request.Context(), slug, c.Query("kind"), limit)
	if err != nil {
		h.logger.Error("failed to list shop rooms", zap.String("shop_slug", slug), zap.Error(err))
		respond(c, http.StatusInternalServerError, nil, "Failed to get rooms")
		return
	}

	respond(c, http.StatusOK, gin.H{"rooms": rooms}, "Rooms retrieved successfully")
}

func (h *chatHandler) GetDirectRoom(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		respond(c, http.StatusBadRequest, nil, "from and to are required")
		return
	}

	roomID, err := h.service.DirectRoomID(c.Request.Context(), from, to)
	switch {
	case errors.Is(err, service.ErrSameShop):
		respond(c, http.StatusBadRequest, nil, err.Error())
	case errors.Is(err, repo.ErrShopNotFound):
		respond(c, http.StatusNotFound, nil, "Shop not found")
	case err != nil:
		h.logger.Error("failed to build direct room", zap.Error(err))
		respond(c, http.StatusInternalServerError, nil, "Failed to build direct room")
	default:
		respond(c, http.StatusOK, gin.H{"roomId": roomID}, "Direct room resolved")
	}
}
