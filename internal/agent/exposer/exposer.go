// Package exposer keeps the agent connected to the server and answers its
// address requests.
package exposer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hostexposer/internal/agent/config"
	"hostexposer/internal/retry"
	"hostexposer/internal/types"
	"hostexposer/internal/version"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrRejected means the server answered the handshake with an Error frame
var ErrRejected = errors.New("server rejected the connection")

// AddressSource produces the adapter list sent in AddrResponse
type AddressSource interface {
	Collect() ([]types.AdapterAddress, error)
}

// Exposer is the agent side of the exposer websocket
type Exposer struct {
	cfg    *config.AgentConfig
	id     uuid.UUID
	source AddressSource
	dialer *websocket.Dialer
	logger *zap.Logger
}

// New creates an exposer announcing itself as id
func New(cfg *config.AgentConfig, id uuid.UUID, source AddressSource, logger *zap.Logger) *Exposer {
	return &Exposer{
		cfg:    cfg,
		id:     id,
		source: source,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger.With(zap.String("client_id", id.String())),
	}
}

// Run connects and serves until ctx is done, the server rejects the agent or
// reconnect attempts are exhausted. Each established session that later drops
// starts a fresh reconnect schedule. With reconnect disabled Run returns after
// the first session ends.
func (e *Exposer) Run(ctx context.Context) error {
	for {
		err := retry.Execute(ctx, &e.cfg.Reconnect, e.runSession)
		if err != nil || !e.cfg.Reconnect.Enable {
			return err
		}

		e.logger.Info("Reconnecting to server", zap.Duration("wait", e.cfg.Reconnect.InitialInterval))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.Reconnect.InitialInterval):
		}
	}
}

// runSession returns nil when an established session ends with a lost
// connection, so the caller reconnects.
func (e *Exposer) runSession(ctx context.Context) error {
	conn, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return e.serve(ctx, conn)
}

func (e *Exposer) connect(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, e.cfg.HandshakeTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent("agent"))

	e.logger.Info("Establishing connection to server", zap.String("server", e.cfg.ServerURI))
	conn, resp, err := e.dialer.DialContext(dialCtx, e.cfg.ServerURI, header)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(ctx.Err())
		}
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s: %w (status %d)", e.cfg.ServerURI, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", e.cfg.ServerURI, err)
	}

	if err := e.handshake(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	e.logger.Info("Connection to server established", zap.String("server", e.cfg.ServerURI))
	return conn, nil
}

func (e *Exposer) handshake(conn *websocket.Conn) error {
	password := base64.StdEncoding.EncodeToString([]byte(e.cfg.Password))
	if err := e.write(conn, types.NewEstablish(e.id.String(), password)); err != nil {
		return fmt.Errorf("failed to send Establish: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(e.cfg.HandshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read handshake reply: %w", err)
	}

	msg, err := types.ParseMessage(data)
	if err != nil {
		return fmt.Errorf("failed to parse handshake reply: %w", err)
	}

	switch msg.Kind {
	case types.KindAcknowledge:
		return nil
	case types.KindError:
		e.logger.Error("Received error message", zap.String("message", msg.Error.Message))
		return retry.Permanent(fmt.Errorf("%w: %s", ErrRejected, msg.Error.Message))
	default:
		return retry.Permanent(fmt.Errorf("%w: expected Acknowledge, got %s", types.ErrUnexpectedPacket, msg.Kind))
	}
}

func (e *Exposer) serve(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(e.cfg.WriteWait))
			_ = conn.Close()
		case <-stop:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(e.cfg.PongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(e.cfg.PongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(e.cfg.WriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			e.logger.Warn("Connection to server lost", zap.Error(err))
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(e.cfg.PongWait))

		if err := e.handle(conn, data); err != nil {
			e.logger.Warn("Failed to answer server", zap.Error(err))
			return nil
		}
	}
}

// handle answers one frame. Only write failures are returned.
func (e *Exposer) handle(conn *websocket.Conn, data []byte) error {
	e.logger.Debug("Received message", zap.ByteString("data", data))

	msg, err := types.ParseMessage(data)
	if err != nil {
		e.logger.Error("Failed to parse message", zap.Error(err))
		return nil
	}

	switch msg.Kind {
	case types.KindAddrRequest:
		adapters, err := e.source.Collect()
		if err != nil {
			e.logger.Error("Failed to collect adapter addresses", zap.Error(err))
			return e.write(conn, types.NewErrorMessage(err.Error()))
		}
		return e.write(conn, types.NewAddrResponse(adapters))
	case types.KindError:
		e.logger.Error("Received error message", zap.String("message", msg.Error.Message))
	default:
		e.logger.Error("Unexpected message", zap.Stringer("message", msg))
	}
	return nil
}

func (e *Exposer) write(conn *websocket.Conn, msg types.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(e.cfg.WriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
