// Package push maintains the websocket that delivers notifications as they
// happen.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"

	"github.com/nhle/robolab-console/internal/model"
)

// ErrGaveUp is returned by Run when MaxAttempts consecutive connection
// attempts have failed.
var ErrGaveUp = errors.New("push: giving up after repeated connection failures")

// State is the lifecycle state of the channel.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "stale"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config describes one account's push subscription.
type Config struct {
	URL       string
	AccountID string
	Token     string

	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int // 0 retries forever
}

// ConfigFrom builds a Config from the application settings.
func ConfigFrom(cfg model.PushConfig, accountID, token string) Config {
	return Config{
		URL:         cfg.URL,
		AccountID:   accountID,
		Token:       token,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		MaxAttempts: cfg.MaxAttempts,
	}
}

// Handler receives each pushed notification in arrival order.
type Handler func(model.Notification)

// DefaultStableAfter is how long a connection must stay up, when it
// delivers no frame, before it counts as healthy again.
const DefaultStableAfter = 5 * time.Second

// Client is a reconnecting websocket subscriber.
type Client struct {
	cfg         Config
	handler     Handler
	dialer      *websocket.Dialer
	backoff     Backoff
	stableAfter time.Duration
	logger      *slog.Logger
	onState     func(State)

	mu    sync.Mutex
	state State
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithStateObserver registers fn to be told about every state change.
func WithStateObserver(fn func(State)) Option {
	return func(c *Client) { c.onState = fn }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithStableAfter sets how long a silent connection must last before the
// failure count resets.
func WithStableAfter(d time.Duration) Option {
	return func(c *Client) { c.stableAfter = d }
}

// WithJitter replaces the jitter source.
func WithJitter(fn func(n int64) int64) Option {
	return func(c *Client) { c.backoff.Int63n = fn }
}

// New creates a Client. Nothing is dialed until Run.
func New(cfg Config, handler Handler, opts ...Option) *Client {
	c := &Client{
		cfg:         cfg,
		handler:     handler,
		dialer:      websocket.DefaultDialer,
		backoff:     Backoff{Base: cfg.BaseDelay, Max: cfg.MaxDelay},
		stableAfter: DefaultStableAfter,
		logger:      slog.Default(),
		state:       StateClosed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed && c.onState != nil {
		c.onState(s)
	}
}

// endpoint returns the subscription URL for the configured account.
func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parsing push url: %w", err)
	}
	q := u.Query()
	q.Set("accountId", c.cfg.AccountID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run connects and delivers notifications until ctx is cancelled or the
// attempt budget runs out. Failed dials and connections that drop before
// delivering a frame or staying up for the stable period count against the
// budget and grow the backoff; any other drop resets it.
func (c *Client) Run(ctx context.Context) error {
	if c.cfg.AccountID == "" {
		return errors.New("push: no account")
	}
	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}
	defer c.setState(StateClosed)

	sessionID := uuid.NewString()
	header := http.Header{}
	header.Set("X-Session-ID", sessionID)
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	failures := 0
	c.setState(StateConnecting)
	for {
		conn, _, err := c.dialer.DialContext(ctx, endpoint, header)
		if err == nil {
			c.setState(StateConnected)
			c.logger.Info("push connected", "account_id", c.cfg.AccountID, "session_id", sessionID)

			start := time.Now()
			received, err := c.read(ctx, conn)
			if received || time.Since(start) >= c.stableAfter {
				failures = 0
			} else {
				failures++
			}
			c.logger.Info("push disconnected", "account_id", c.cfg.AccountID, "failures", failures, "error", err)
		} else {
			failures++
			c.logger.Warn("push dial failed", "account_id", c.cfg.AccountID, "attempt", failures, "error", err)
		}

		if ctx.Err() != nil {
			return nil
		}
		if c.cfg.MaxAttempts > 0 && failures >= c.cfg.MaxAttempts {
			return ErrGaveUp
		}

		c.setState(StateReconnecting)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.backoff.Delay(max(failures-1, 0))):
		}
	}
}

// read consumes frames until the connection fails or ctx ends. It reports
// whether any text frame arrived.
func (c *Client) read(ctx context.Context, conn *websocket.Conn) (bool, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	received := false
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return received, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		received = true

		n, ok, err := c.decode(data)
		if err != nil {
			c.logger.Warn("dropping malformed push frame", "error", err)
			continue
		}
		if ok {
			c.handler(n)
		}
	}
}

// decode parses one frame. Keepalive frames report ok=false.
func (c *Client) decode(data []byte) (model.Notification, bool, error) {
	var head struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return model.Notification{}, false, err
	}
	if head.ID == "" {
		if head.Type == "ping" {
			return model.Notification{}, false, nil
		}
		return model.Notification{}, false, errors.New("frame has no id")
	}

	var n model.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return model.Notification{}, false, err
	}
	if n.AccountID == "" {
		n.AccountID = c.cfg.AccountID
	}
	return n, true, nil
}
