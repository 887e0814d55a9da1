// Package client keeps a participant's connections to chat rooms and to the
// presence registry open, and merges what they deliver into local state.
package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("connection is not open")

// Config tunes reconnection and keep-alive.
type Config struct {
	ReconnectDelay time.Duration
	KeepAlive      time.Duration
	WriteWait      time.Duration
	Dialer         *websocket.Dialer
	Logger         *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 3 * time.Second
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = 30 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Handler receives every event decoded from the server.
type Handler func(env event.Envelope)

// Connection is one long-lived websocket. Run redials after every drop,
// waiting a fixed delay, until its context ends.
type Connection struct {
	url     string
	header  http.Header
	cfg     Config
	handler Handler
	logger  *zap.Logger

	writeMu sync.Mutex
	mu      sync.RWMutex
	conn    *websocket.Conn
	opens   int
}

func NewConnection(url string, header http.Header, cfg Config, handler Handler) *Connection {
	cfg = cfg.withDefaults()
	return &Connection{
		url:     url,
		header:  header,
		cfg:     cfg,
		handler: handler,
		logger:  cfg.Logger.With(zap.String("url", url)),
	}
}

// Run blocks until ctx is done.
func (c *Connection) Run(ctx context.Context) error {
	retry := time.NewTimer(0)
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-retry.C:
		}

		conn, _, err := c.cfg.Dialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			c.logger.Debug("dial failed", zap.Error(err))
		} else {
			c.serve(ctx, conn)
		}

		retry.Reset(c.cfg.ReconnectDelay)
	}
}

// Connected reports whether a socket is currently open.
func (c *Connection) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Opens counts successful dials.
func (c *Connection) Opens() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opens
}

// Send writes v as JSON. Nothing is queued while the socket is down.
func (c *Connection) Send(v interface{}) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return c.write(conn, v)
}

func (c *Connection) write(conn *websocket.Conn, v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return conn.WriteJSON(v)
}

func (c *Connection) serve(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.opens++
	c.mu.Unlock()
	c.logger.Debug("connection open")

	done := make(chan struct{})
	defer func() {
		close(done)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	go c.keepAlive(ctx, conn, done)

	for {
		var env event.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.logger.Debug("connection dropped", zap.Error(err))
			return
		}
		if c.handler != nil {
			c.handler(env)
		}
	}
}

// keepAlive pings on a fixed period and closes the socket when ctx ends so
// the read loop in serve returns.
func (c *Connection) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := c.write(conn, event.Inbound{Type: event.TypePing}); err != nil {
				c.logger.Debug("keep-alive failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}
}
