package hub

import (
	"context"
	"sort"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
)

const statsTimeout = 2 * time.Second

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics. Each actor answers for
// its own state; a room that retires mid-query is left out.
func (ms *MonitorService) GetStats(ctx context.Context) model.MonitorResponse {
	ctx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	roomStats := ms.getRoomStats(ctx)
	presence := ms.hub.registry.Stats(ctx)

	// Determine overall health status
	status := "healthy"
	if roomStats.TotalSessions == 0 && presence.Connections == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:   status,
		Rooms:    roomStats,
		Presence: presence,
	}
}

// getRoomStats returns room statistics
func (ms *MonitorService) getRoomStats(ctx context.Context) model.RoomStats {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}

	for _, r := range ms.hub.liveRooms() {
		info, ok := r.stats(ctx)
		ms.hub.release(r)
		if !ok {
			continue
		}

		stats.RoomDetails = append(stats.RoomDetails, info)
		stats.TotalRooms++
		stats.TotalSessions += info.Sessions
		if info.Sessions > 0 {
			stats.ActiveRooms++
		}
	}

	sort.Slice(stats.RoomDetails, func(i, j int) bool {
		return stats.RoomDetails[i].RoomID < stats.RoomDetails[j].RoomID
	})
	return stats
}
