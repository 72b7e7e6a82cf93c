// Package hub accepts exposer websocket connections and tracks live sessions.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"hostexposer/internal/server/auth"
	"hostexposer/internal/types"
	"hostexposer/internal/validator"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// InvalidPasswordMessage is sent to clients presenting a wrong password
const InvalidPasswordMessage = "Invalid password"

// Config represents the hub settings
type Config struct {
	HandshakeTimeout time.Duration
	FetchTimeout     time.Duration
	WriteWait        time.Duration
	PongWait         time.Duration
	MaxMessageSize   int64
}

// DefaultConfig returns the default hub settings
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		FetchTimeout:     10 * time.Second,
		WriteWait:        10 * time.Second,
		PongWait:         60 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
}

// Listener is told about session lifecycle changes
type Listener interface {
	// ClientConnected runs before the client is acknowledged; an error rejects the client
	ClientConnected(ctx context.Context, id string) error
	ClientDisconnected(ctx context.Context, id string)
}

// Hub owns the set of live sessions, keyed by client id
type Hub struct {
	cfg      Config
	auth     *auth.Authenticator
	listener Listener
	validate *validator.Validator
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates a hub
func New(cfg Config, authenticator *auth.Authenticator, listener Listener, logger *zap.Logger) *Hub {
	def := DefaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}

	return &Hub{
		cfg:      cfg,
		auth:     authenticator,
		listener: listener,
		validate: validator.New(),
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		sessions: make(map[string]*Session),
	}
}

// Serve upgrades the request and runs the session until it ends
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	session, err := h.handshake(conn)
	if err != nil {
		h.logger.Warn("Exposer handshake failed",
			zap.String("remote_addr", conn.RemoteAddr().String()),
			zap.Error(err))
		_ = conn.Close()
		return
	}

	go session.writePump()
	session.readPump()

	h.unregister(session)
}

func (h *Hub) handshake(conn *websocket.Conn) (*Session, error) {
	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout))

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	msg, err := types.ParseMessage(data)
	if err != nil {
		return nil, err
	}
	if msg.Kind != types.KindEstablish {
		return nil, fmt.Errorf("%w: expected Establish, got %s", types.ErrUnexpectedPacket, msg.Kind)
	}

	if err := h.validate.Struct(msg.Establish); err != nil {
		h.reject(conn, err.Error())
		return nil, err
	}

	if err := h.auth.CheckEncoded(msg.Establish.Password); err != nil {
		h.reject(conn, InvalidPasswordMessage)
		return nil, err
	}

	id := msg.Establish.ID
	if h.listener != nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.HandshakeTimeout)
		err := h.listener.ClientConnected(ctx, id)
		cancel()
		if err != nil {
			h.reject(conn, "failed to register client")
			return nil, err
		}
	}

	session := newSession(id, conn, h.cfg, h.logger)
	h.register(session)

	if err := h.writeDirect(conn, types.NewAcknowledge()); err != nil {
		h.unregister(session)
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})

	h.logger.Info("Client established",
		zap.String("client_id", id),
		zap.String("remote_addr", session.RemoteAddr()))

	return session, nil
}

func (h *Hub) reject(conn *websocket.Conn, message string) {
	_ = h.writeDirect(conn, types.NewErrorMessage(message))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message),
		time.Now().Add(h.cfg.WriteWait))
}

func (h *Hub) writeDirect(conn *websocket.Conn, msg types.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	old, ok := h.sessions[s.id]
	h.sessions[s.id] = s
	h.mu.Unlock()

	if ok {
		h.logger.Info("Replacing existing session", zap.String("client_id", s.id))
		old.Close()
	}
}

func (h *Hub) unregister(s *Session) {
	s.Close()

	h.mu.Lock()
	current, ok := h.sessions[s.id]
	removed := ok && current == s
	if removed {
		delete(h.sessions, s.id)
	}
	h.mu.Unlock()

	if !removed {
		return
	}

	h.logger.Info("Client disconnected",
		zap.String("client_id", s.id),
		zap.Duration("connected_for", time.Since(s.ConnectedAt())))
	if h.listener != nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.WriteWait)
		h.listener.ClientDisconnected(ctx, s.id)
		cancel()
	}
}

// Session returns the live session for id
func (h *Hub) Session(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Sessions returns a snapshot of live sessions ordered by id
func (h *Hub) Sessions() []*Session {
	h.mu.RLock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Count returns the number of live sessions
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close ends every session
func (h *Hub) Close() {
	for _, s := range h.Sessions() {
		s.Close()
	}
}
