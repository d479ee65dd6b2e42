// Package ws is the websocket link between the robot and its controller.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cjeanneret/WalkerGo/internal/debug"
)

// ErrNotConnected is returned by Send when there is no open connection.
var ErrNotConnected = errors.New("websocket not connected")

// Config holds the connection settings.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadTimeout closes a connection that stays silent this long. The
	// controller answers every heartbeat, so it should exceed the heartbeat
	// interval.
	ReadTimeout time.Duration
	InboxSize   int
}

// DefaultConfig returns the stock timeouts for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      90 * time.Second,
		InboxSize:        64,
	}
}

// link is one established connection and its reader.
type link struct {
	conn  *websocket.Conn
	inbox chan []byte
	done  chan struct{}
}

// Client is a reconnectable websocket client. Reads happen on a background
// goroutine that only queues payloads; everything else is called from the
// control loop.
type Client struct {
	cfg    Config
	dialer websocket.Dialer

	mu   sync.Mutex // guards cur and serializes writes
	cur  *link
	up   atomic.Bool
	seen atomic.Uint64
}

func New(cfg Config) *Client {
	def := DefaultConfig(cfg.URL)
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	return &Client{
		cfg: cfg,
		dialer: websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// URL returns the endpoint the client dials.
func (c *Client) URL() string { return c.cfg.URL }

// Connect dials the endpoint, closing any previous connection first.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.Close(); err != nil {
		debug.Verbose("Closing previous websocket: %v", err)
	}

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	l := &link{
		conn:  conn,
		inbox: make(chan []byte, c.cfg.InboxSize),
		done:  make(chan struct{}),
	}
	conn.SetPingHandler(func(appData string) error {
		c.extendRead(conn)
		c.mu.Lock()
		defer c.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.cfg.WriteTimeout))
	})

	c.mu.Lock()
	c.cur = l
	c.mu.Unlock()
	c.up.Store(true)

	go c.readPump(l)
	return nil
}

// Available reports whether the current connection is open.
func (c *Client) Available() bool {
	return c.up.Load()
}

// Receive returns the next queued inbound payload without blocking.
func (c *Client) Receive() ([]byte, bool) {
	c.mu.Lock()
	l := c.cur
	c.mu.Unlock()
	if l == nil {
		return nil, false
	}
	select {
	case data := <-l.inbox:
		return data, true
	default:
		return nil, false
	}
}

// Send writes one text message.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return ErrNotConnected
	}
	conn := c.cur.conn
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		c.up.Store(false)
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.up.Store(false)
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close sends a close frame and tears the connection down. Closing a closed
// client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.cur
	if l == nil {
		return nil
	}
	c.cur = nil
	c.up.Store(false)
	close(l.done)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteTimeout))
	if err := l.conn.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Received returns how many messages were read since the client was created.
func (c *Client) Received() uint64 {
	return c.seen.Load()
}

func (c *Client) readPump(l *link) {
	defer func() {
		c.mu.Lock()
		if c.cur == l {
			c.up.Store(false)
		}
		c.mu.Unlock()
	}()

	for {
		c.extendRead(l.conn)
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					debug.Error(fmt.Errorf("websocket read: %w", err))
				} else {
					debug.Live("Websocket closed: %v", err)
				}
			}
			return
		}
		c.seen.Add(1)
		select {
		case l.inbox <- data:
		case <-l.done:
			return
		}
	}
}

func (c *Client) extendRead(conn *websocket.Conn) {
	if c.cfg.ReadTimeout <= 0 {
		return
	}
	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		debug.Verbose("Set read deadline: %v", err)
	}
}
