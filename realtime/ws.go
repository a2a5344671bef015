package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultReadLimit = 16 << 20

// WSChannel adapts a WebSocket connection to Conn. Writes are serialized
// because the WebSocket does not support concurrent writers.
type WSChannel struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
	stateMu sync.RWMutex
	state   ReadyState
}

// DialOptions configures Dial.
type DialOptions struct {
	// Token is the bearer credential sent in the Authorization header.
	Token string
	// Header carries extra handshake headers.
	Header http.Header
	// HTTPClient overrides the handshake client.
	HTTPClient *http.Client
	// ReadLimit caps inbound message size. Defaults to 16 MiB.
	ReadLimit int64
}

// Dial opens a realtime WebSocket to url.
func Dial(ctx context.Context, url string, opts DialOptions, logger *zap.Logger) (*WSChannel, error) {
	header := http.Header{}
	for k, v := range opts.Header {
		header[k] = append([]string(nil), v...)
	}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: header,
		HTTPClient: opts.HTTPClient,
	})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, &ConnectionError{Stage: StageDial, StatusCode: status, Err: err}
	}

	limit := opts.ReadLimit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	conn.SetReadLimit(limit)

	return NewWSChannel(conn, logger), nil
}

// NewWSChannel wraps an established connection.
func NewWSChannel(conn *websocket.Conn, logger *zap.Logger) *WSChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSChannel{
		conn:   conn,
		logger: logger.With(zap.String("component", "realtime_channel")),
		state:  StateOpen,
	}
}

// State returns the current readiness.
func (c *WSChannel) State() ReadyState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *WSChannel) setState(s ReadyState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = s
}

// Send marshals event and writes it as a text frame. A missing event_id is
// filled with a fresh UUID.
func (c *WSChannel) Send(ctx context.Context, event Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.State() != StateOpen {
		return fmt.Errorf("send %s: channel %s", event.Type, c.State())
	}
	if event.EventID == "" {
		event.EventID = "evt_" + uuid.NewString()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.Type, err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.setState(StateClosed)
		return fmt.Errorf("websocket write: %w", err)
	}

	c.logger.Debug("event sent",
		zap.String("type", event.Type),
		zap.String("event_id", event.EventID),
		zap.Int("bytes", len(data)))
	return nil
}

// Receive blocks for the next server event.
func (c *WSChannel) Receive(ctx context.Context) (ServerEvent, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		// coder/websocket closes the connection on any read failure,
		// context cancellation included.
		c.setState(StateClosed)
		return ServerEvent{}, fmt.Errorf("websocket read: %w", err)
	}
	ev, err := DecodeServerEvent(data)
	if err != nil {
		return ServerEvent{}, fmt.Errorf("decode server event: %w", err)
	}
	return ev, nil
}

// Close closes the connection. Idempotent.
func (c *WSChannel) Close() error {
	c.stateMu.Lock()
	if c.state == StateClosed || c.state == StateClosing {
		c.stateMu.Unlock()
		return nil
	}
	c.state = StateClosing
	c.stateMu.Unlock()

	err := c.conn.Close(websocket.StatusNormalClosure, "closing")
	c.setState(StateClosed)
	return err
}
