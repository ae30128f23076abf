package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"timewarp.dev/internal/protocol"
)

// RejectedError is an ACK that refused a tick.
type RejectedError struct {
	Tick    uint64
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("ws: tick %d rejected: %s: %s", e.Tick, e.Code, e.Message)
}

type ClientConfig struct {
	URL        string
	ClientName string
	RunID      string
	Token      string
	// Timeout bounds each GAME_INFO round trip when the context has no
	// earlier deadline. Zero means 10s.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client submits game info over one websocket connection and waits for an
// ACK after every message. It can be used as the world's real-time Net and
// as the session's submitter.
type Client struct {
	cfg  ClientConfig
	log  *slog.Logger
	mu   sync.Mutex
	conn *websocket.Conn
}

func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "timewarp"
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("ws: dial %s: %w", cfg.URL, err)
	}
	c := &Client{cfg: cfg, log: log.With("component", "ws_client"), conn: conn}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      cfg.ClientName,
		RunID:           cfg.RunID,
		Token:           cfg.Token,
	}
	if err := c.write(ctx, hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ws: hello: %w", err)
	}
	c.log.Info("connected", "url", cfg.URL, "run", cfg.RunID)
	return c, nil
}

// Send delivers one message.
func (c *Client) Send(msg protocol.GameInfoMsg) error {
	return c.Submit(context.Background(), []protocol.GameInfoMsg{msg})
}

// Submit delivers batch in order and stops at the first failure. Ticks
// before the failure stay accepted on the server, which acknowledges them
// again when the batch is resubmitted.
func (c *Client) Submit(ctx context.Context, batch []protocol.GameInfoMsg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, msg := range batch {
		if err := c.roundTrip(ctx, msg); err != nil {
			submittedTotal.WithLabelValues("failed").Inc()
			return err
		}
		submittedTotal.WithLabelValues("accepted").Inc()
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, msg protocol.GameInfoMsg) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.write(ctx, msg); err != nil {
		return fmt.Errorf("ws: send tick %d: %w", msg.Tick, err)
	}
	_ = c.conn.SetReadDeadline(c.deadline(ctx))
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("ws: ack tick %d: %w", msg.Tick, err)
	}
	var ack protocol.AckMsg
	if err := json.Unmarshal(raw, &ack); err != nil || ack.Type != protocol.TypeAck {
		return fmt.Errorf("ws: ack tick %d: unexpected reply %q", msg.Tick, raw)
	}
	if !ack.Accepted {
		if !protocol.IsKnownCode(ack.Code) {
			return fmt.Errorf("ws: tick %d rejected with unknown code %q: %s", ack.Tick, ack.Code, ack.Message)
		}
		return &RejectedError{Tick: ack.Tick, Code: ack.Code, Message: ack.Message}
	}
	if ack.Tick != msg.Tick {
		return fmt.Errorf("ws: ack for tick %d while waiting for %d", ack.Tick, msg.Tick)
	}
	return nil
}

func (c *Client) write(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(c.deadline(ctx))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.cfg.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		return dl
	}
	return d
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}
