package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"hostexposer/internal/types"
	"hostexposer/internal/validator"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBufferSize = 16

// Session is one established exposer connection
type Session struct {
	id          string
	remoteAddr  string
	connectedAt time.Time

	conn      *websocket.Conn
	cfg       Config
	validate  *validator.Validator
	logger    *zap.Logger
	send      chan []byte
	replies   chan types.Message
	reqMu     sync.Mutex
	done      chan struct{}
	closeOnce sync.Once

	// replyMu guards waiting and abandoned. abandoned counts requests that
	// timed out before their reply arrived; clients answer in order, so the
	// next that many replies belong to them.
	replyMu   sync.Mutex
	waiting   bool
	abandoned int
}

func newSession(id string, conn *websocket.Conn, cfg Config, logger *zap.Logger) *Session {
	return &Session{
		id:          id,
		remoteAddr:  conn.RemoteAddr().String(),
		connectedAt: time.Now(),
		conn:        conn,
		cfg:         cfg,
		validate:    validator.New(),
		logger:      logger.With(zap.String("client_id", id)),
		send:        make(chan []byte, sendBufferSize),
		replies:     make(chan types.Message, 1),
		done:        make(chan struct{}),
	}
}

// ID returns the client id announced in the handshake
func (s *Session) ID() string { return s.id }

// RemoteAddr returns the peer address
func (s *Session) RemoteAddr() string { return s.remoteAddr }

// ConnectedAt returns when the handshake completed
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// FetchAdapterAddresses asks the client for its adapter addresses and waits for
// the answer, at most FetchTimeout. Concurrent callers are served one at a time.
func (s *Session) FetchAdapterAddresses(ctx context.Context) ([]types.AdapterAddress, error) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	s.replyMu.Lock()
	s.waiting = true
	s.replyMu.Unlock()

	if err := s.enqueue(types.NewAddrRequest()); err != nil {
		s.stopWaiting(false)
		return nil, err
	}

	select {
	case <-ctx.Done():
		s.stopWaiting(true)
		return nil, fmt.Errorf("waiting for adapter addresses: %w", ctx.Err())
	case <-s.done:
		s.stopWaiting(false)
		return nil, types.ErrSessionClosed
	case msg := <-s.replies:
		s.stopWaiting(false)
		switch msg.Kind {
		case types.KindAddrResponse:
			if err := s.validate.Struct(msg.AddrResponse); err != nil {
				return nil, fmt.Errorf("invalid adapter addresses: %w", err)
			}
			return msg.AddrResponse.AdapterAddresses, nil
		case types.KindError:
			return nil, fmt.Errorf("client reported error: %s", msg.Error.Message)
		default:
			return nil, fmt.Errorf("%w: %s", types.ErrUnexpectedPacket, msg.Kind)
		}
	}
}

// stopWaiting ends a request. An abandoned request whose reply has not been
// delivered yet is counted so readPump drops that reply when it comes.
func (s *Session) stopWaiting(abandoned bool) {
	s.replyMu.Lock()
	defer s.replyMu.Unlock()

	s.waiting = false
	if !abandoned {
		return
	}
	select {
	case <-s.replies:
	default:
		s.abandoned++
	}
}

// route hands a frame to the pending request. It reports false for frames
// nobody asked for.
func (s *Session) route(msg types.Message) bool {
	s.replyMu.Lock()
	defer s.replyMu.Unlock()

	if s.abandoned > 0 {
		s.abandoned--
		s.logger.Debug("Dropping late reply", zap.String("kind", string(msg.Kind)))
		return true
	}
	if !s.waiting {
		return false
	}

	select {
	case s.replies <- msg:
	default:
		s.logger.Debug("Dropping extra reply", zap.String("kind", string(msg.Kind)))
	}
	return true
}

// Close sends a close frame and ends the session. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.cfg.WriteWait))
		_ = s.conn.Close()
	})
}

func (s *Session) enqueue(msg types.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.Kind, err)
	}

	select {
	case <-s.done:
		return types.ErrSessionClosed
	default:
	}

	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return types.ErrSessionClosed
	default:
		return errors.New("send buffer full")
	}
}

// readPump reads frames until the connection fails
func (s *Session) readPump() {
	defer s.Close()

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Websocket receive error", zap.Error(err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))

		msg, err := types.ParseMessage(data)
		if err != nil {
			s.logger.Warn("Dropping malformed frame", zap.Error(err))
			continue
		}

		if s.route(msg) {
			continue
		}
		if msg.Kind == types.KindError {
			s.logger.Warn("Client reported error", zap.String("message", msg.Error.Message))
		} else {
			s.logger.Debug("Dropping unsolicited frame", zap.String("kind", string(msg.Kind)))
		}
	}
}

// writePump writes queued frames and keeps the connection alive with pings
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod(s.cfg.PongWait))
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			return
		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("Websocket send error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func pingPeriod(pongWait time.Duration) time.Duration {
	return (pongWait * 9) / 10
}
