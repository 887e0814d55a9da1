package hub

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"go.uber.org/zap"
)

type sessionState int

const (
	stateUnattached sessionState = iota
	stateAttached
	stateDetached
)

var errEmptyType = errors.New("missing event type")

// owner is the actor a session is attached to. The read pump hands every
// inbound frame to it; only the owner writes to the session.
type owner interface {
	dispatch(s *Session, in event.Inbound)
	invalid(s *Session, err error)
	leave(s *Session)
}

// Session is one connection's attachment to a room or to the presence
// registry. egress and state belong to the owning actor's goroutine.
type Session struct {
	ID       string
	Identity model.Identity

	conn    *websocket.Conn
	egress  chan event.Outbound
	state   sessionState
	release sync.Once
	logger  *zap.Logger
}

func newSession(identity model.Identity, conn *websocket.Conn, bufSize int, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		ID:       id,
		Identity: identity,
		conn:     conn,
		egress:   make(chan event.Outbound, bufSize),
		logger: logger.With(
			zap.String("session_id", id),
			zap.String("user_id", identity.UserID),
		),
	}
}

// deliver queues ev without blocking. A false return means the session
// cannot keep up and must be dropped.
func (s *Session) deliver(ev event.Outbound) bool {
	if s.state != stateAttached {
		return false
	}
	select {
	case s.egress <- ev:
		return true
	default:
		return false
	}
}

// detach moves the session to its terminal state and lets the write pump
// finish. Owner goroutine only.
func (s *Session) detach() {
	s.state = stateDetached
	s.release.Do(func() {
		close(s.egress)
	})
}

// start runs the connection pumps against o.
func (s *Session) start(o owner, t Timing) {
	go s.writePump(t)
	go s.readPump(o, t)
}

func (s *Session) readPump(o owner, t Timing) {
	defer o.leave(s)

	s.conn.SetReadLimit(t.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(t.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(t.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				s.logger.Debug("client disconnected")
			case isTimeout(err):
				s.logger.Info("client timed out - closing connection")
			default:
				s.logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		// Any frame proves liveness
		s.conn.SetReadDeadline(time.Now().Add(t.PongWait))

		var in event.Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			o.invalid(s, err)
			continue
		}
		if in.Type == "" {
			o.invalid(s, errEmptyType)
			continue
		}
		o.dispatch(s, in)
	}
}

func (s *Session) writePump(t Timing) {
	ticker := time.NewTicker(t.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-s.egress:
			s.conn.SetWriteDeadline(time.Now().Add(t.WriteWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteJSON(ev); err != nil {
				s.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.WriteWait)); err != nil {
				s.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
