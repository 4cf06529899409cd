package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
	maxFrameSize   = 1 << 20
)

var (
	ErrSendQueueFull = errors.New("send queue full")
	ErrClosed        = errors.New("connection closed")
)

type dialOptions struct {
	dialer     *websocket.Dialer
	header     http.Header
	sendBuffer int
}

// Option configures Dial.
type Option func(*dialOptions)

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *dialOptions) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithHeader adds request headers to the handshake.
func WithHeader(h http.Header) Option {
	return func(o *dialOptions) { o.header = h }
}

// WithSendBuffer sets how many outbound frames may queue before Emit fails.
func WithSendBuffer(n int) Option {
	return func(o *dialOptions) {
		if n > 0 {
			o.sendBuffer = n
		}
	}
}

// Conn is a WebSocket event channel. Emit queues frames for the write loop;
// inbound frames are dispatched from the read loop goroutine.
// There is no reconnection: once Done is closed the Conn is spent.
type Conn struct {
	conn   *websocket.Conn
	events *Dispatcher
	send   chan []byte
	done   chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// Dial connects to rawURL and starts the read and write loops.
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Conn, error) {
	o := newDialOptions(opts)
	ws, _, err := o.dialer.DialContext(ctx, rawURL, o.header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	c := newConn(ws, o.sendBuffer)
	go c.writeLoop()
	go c.readLoop()
	log.Debug().Str("url", rawURL).Msg("[transport] connected")
	return c, nil
}

func newDialOptions(opts []Option) dialOptions {
	o := dialOptions{dialer: websocket.DefaultDialer, sendBuffer: sendBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newConn(ws *websocket.Conn, sendBuffer int) *Conn {
	return &Conn{
		conn:   ws,
		events: NewDispatcher(),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Emit queues one event. It never blocks on the network.
func (c *Conn) Emit(event string, payload any) error {
	f, err := NewFrame(event, payload)
	if err != nil {
		return err
	}
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// On registers h for inbound frames named event.
func (c *Conn) On(event string, h func(data json.RawMessage)) (unsubscribe func()) {
	return c.events.On(event, h)
}

// Done is closed once the read loop has exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and tears the connection down.
func (c *Conn) Close() error {
	c.shutdown()
	_ = c.conn.SetReadDeadline(time.Now().Add(writeWait))
	return nil
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

func (c *Conn) readLoop() {
	defer func() {
		c.shutdown()
		_ = c.conn.Close()
		close(c.done)
	}()
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("[transport] read")
			} else {
				log.Debug().Err(err).Msg("[transport] read loop stopped")
			}
			return
		}
		f, err := DecodeFrame(payload)
		if err != nil {
			log.Debug().Err(err).Msg("[transport] drop frame")
			continue
		}
		if !c.events.Dispatch(f) {
			log.Debug().Str("event", f.Event).Msg("[transport] no handler")
		}
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Debug().Err(err).Msg("[transport] write")
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
