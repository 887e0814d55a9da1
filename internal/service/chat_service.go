package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/repo"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

var ErrSameShop = errors.New("a direct room needs two different shops")

type ChatService interface {
	GetRoomMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error)
	GetShop(ctx context.Context, slug string) (*model.Shop, error)
	GetShopByOwner(ctx context.Context, userID string) (*model.Shop, error)
	GetShopRooms(ctx context.Context, slug, kind string, limit int) ([]model.RoomSummary, error)
	DirectRoomID(ctx context.Context, fromSlug, toSlug string) (string, error)
}

type chatService struct {
	messageRepo repo.MessageRepository
	roomRepo    repo.RoomRepository
	shops       repo.ShopDirectory
}

func NewChatService(messageRepo repo.MessageRepository, roomRepo repo.RoomRepository, shops repo.ShopDirectory) ChatService {
	return &chatService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		shops:       shops,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func (s *chatService) GetRoomMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	if _, err := model.ParseRoomID(roomID); err != nil {
		return nil, err
	}
	return s.messageRepo.RecentMessages(ctx, roomID, clampLimit(limit))
}

func (s *chatService) GetShop(ctx context.Context, slug string) (*model.Shop, error) {
	return s.shops.FindBySlug(ctx, slug)
}

func (s *chatService) GetShopByOwner(ctx context.Context, userID string) (*model.Shop, error) {
	return s.shops.FindByOwner(ctx, userID)
}

// GetShopRooms lists a shop's inbox: its lobby, its guest rooms and the
// direct rooms it takes part in. kind narrows it to "lobby", "guest" or
// "direct".
func (s *chatService) GetShopRooms(ctx context.Context, slug, kind string, limit int) ([]model.RoomSummary, error) {
	if s.roomRepo == nil {
		return []model.RoomSummary{}, nil
	}
	return s.roomRepo.ListShopRooms(ctx, slug, kind, clampLimit(limit))
}

// DirectRoomID returns the dm room id for two shops after checking both exist.
func (s *chatService) DirectRoomID(ctx context.Context, fromSlug, toSlug string) (string, error) {
	if fromSlug == toSlug {
		return "", ErrSameShop
	}
	for _, slug := range []string{fromSlug, toSlug} {
		if _, err := s.shops.FindBySlug(ctx, slug); err != nil {
			return "", fmt.Errorf("shop %q: %w", slug, err)
		}
	}
	return model.DMRoomID(fromSlug, toSlug), nil
}
