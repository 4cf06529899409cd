package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/room-chat/transport"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
	maxFrameSize   = 64 << 10
)

// client is one websocket connection. room is guarded by hub.mu.
type client struct {
	id   string
	conn *websocket.Conn
	hub  *hub
	room string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id string, conn *websocket.Conn, h *hub) *client {
	return &client{
		id:   id,
		conn: conn,
		hub:  h,
		send: make(chan []byte, sendBufferSize),
	}
}

func (c *client) readLoop() {
	defer c.close()
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("[relay] read message")
			return
		}
		f, err := transport.DecodeFrame(payload)
		if err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("[relay] drop frame")
			continue
		}
		c.hub.route(c, f)
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("[relay] write")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// push queues an event, dropping the oldest queued frame when the buffer is
// full so a slow reader never blocks a broadcast.
func (c *client) push(event string, payload any) {
	f, err := transport.NewFrame(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("[relay] build frame")
		return
	}
	b, err := json.Marshal(f)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("[relay] encode frame")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		select {
		case <-c.send:
		default:
		}
		c.send <- b
	}
}

func (c *client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	c.hub.unregister(c)
}
