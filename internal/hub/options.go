package hub

import "time"

// Timing holds the per-connection websocket tuning.
type Timing struct {
	WriteWait      time.Duration // time allowed to write a message to the peer
	PongWait       time.Duration // time allowed to read the next pong message from the peer
	PingInterval   time.Duration // send pings to peer with this period
	MaxMessageSize int64         // max inbound message size
}

// Options tunes the hub and its actors. Zero fields take the defaults below.
type Options struct {
	HistoryLimit    int
	Retention       time.Duration
	RoomIdleTimeout time.Duration
	InboxSize       int
	SendBufSize     int
	StoreTimeout    time.Duration
	AllowedOrigins  []string
	Timing          Timing

	// Now is the clock used for message timestamps and retention.
	Now func() time.Time
}

const (
	defaultHistoryLimit = 50
	defaultRetention    = 14 * 24 * time.Hour
	defaultRoomIdle     = 10 * time.Minute
	defaultInboxSize    = 1024
	defaultSendBufSize  = 256
	defaultStoreTimeout = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = defaultHistoryLimit
	}
	if o.Retention <= 0 {
		o.Retention = defaultRetention
	}
	if o.RoomIdleTimeout <= 0 {
		o.RoomIdleTimeout = defaultRoomIdle
	}
	if o.InboxSize <= 0 {
		o.InboxSize = defaultInboxSize
	}
	if o.SendBufSize <= 0 {
		o.SendBufSize = defaultSendBufSize
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = defaultStoreTimeout
	}
	if o.Timing.WriteWait <= 0 {
		o.Timing.WriteWait = 10 * time.Second
	}
	if o.Timing.PongWait <= 0 {
		o.Timing.PongWait = 60 * time.Second
	}
	if o.Timing.PingInterval <= 0 || o.Timing.PingInterval >= o.Timing.PongWait {
		o.Timing.PingInterval = (o.Timing.PongWait * 9) / 10
	}
	if o.Timing.MaxMessageSize <= 0 {
		o.Timing.MaxMessageSize = 64 * 1024
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
