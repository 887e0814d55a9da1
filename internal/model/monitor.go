package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status   string        `json:"status"`   // "healthy" or "idle"
	Rooms    RoomStats     `json:"rooms"`    // Live room actors
	Presence PresenceStats `json:"presence"` // Registry connections
}

// RoomStats holds statistics over all live room actors
type RoomStats struct {
	TotalRooms    int        `json:"totalRooms"`    // Live room actors
	ActiveRooms   int        `json:"activeRooms"`   // Rooms with at least one session
	TotalSessions int        `json:"totalSessions"` // Sessions across all rooms
	RoomDetails   []RoomInfo `json:"roomDetails"`
}

// RoomInfo contains information about a single room
type RoomInfo struct {
	RoomID     string   `json:"roomId"`
	Kind       string   `json:"kind"`
	Sessions   int      `json:"sessions"`
	UserIDs    []string `json:"userIds"`
	LastPostAt int64    `json:"lastPostAt,omitempty"`
}

// PresenceStats holds registry statistics
type PresenceStats struct {
	OnlineUsers int `json:"onlineUsers"` // Distinct identities
	Connections int `json:"connections"` // Open registry connections
}
