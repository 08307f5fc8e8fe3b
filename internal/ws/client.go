package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Options tunes the per-client write path.
type Options struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
}

func DefaultOptions() Options {
	return Options{
		SendBuffer:     64,
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		MaxMessageSize: 4096,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a Channel backed by a websocket connection. Writes go through a
// buffered queue drained by writePump; inbound frames are read only to
// detect disconnects and answer pings.
type Client struct {
	ID     string
	School string

	conn *websocket.Conn
	opts Options
	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

var _ Channel = (*Client)(nil)

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = d.PongTimeout
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	return o
}

func newClient(conn *websocket.Conn, school string, opts Options) *Client {
	return &Client{
		ID:     uuid.NewString(),
		School: school,
		conn:   conn,
		opts:   opts,
		send:   make(chan []byte, opts.SendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and releases the
// connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *Client) pingPeriod() time.Duration {
	return c.opts.PongTimeout * 9 / 10
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Debug("websocket write failed", "client", c.ID, "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteTimeout))
			return
		}
	}
}

// readPump blocks until the peer disconnects, then leaves the registry.
func (c *Client) readPump(registry *Registry) {
	defer func() {
		registry.Leave(c.School, c)
		c.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket closed unexpectedly", "client", c.ID, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	}
}

// ServeWs upgrades the request and joins the connection to school. When
// authorized is false the connection is closed with a policy violation
// code and never registered.
func ServeWs(registry *Registry, opts Options, w http.ResponseWriter, r *http.Request, school string, authorized bool) {
	opts = opts.withDefaults()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	if !authorized {
		rejectConn(conn, websocket.ClosePolicyViolation, "invalid token", opts.WriteTimeout)
		return
	}

	client := newClient(conn, school, opts)
	if err := registry.Join(school, client); err != nil {
		rejectConn(conn, websocket.CloseGoingAway, "server shutting down", opts.WriteTimeout)
		return
	}
	slog.Info("websocket joined", "school", school, "client", client.ID)

	go client.writePump()
	go client.readPump(registry)
}

func rejectConn(conn *websocket.Conn, code int, reason string, timeout time.Duration) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout))
	conn.Close()
}
