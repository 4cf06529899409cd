package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/room-chat/chat"
	"github.com/gosuda/room-chat/transport"
)

// room is a named broadcast scope with its recent history.
type room struct {
	members  map[*client]struct{}
	messages []chat.Message
}

// hub keeps the room registry and fans messages out to room members.
type hub struct {
	mu         sync.RWMutex
	rooms      map[string]*room
	clients    map[*client]struct{}
	maxBacklog int // messages kept per room (0 = unlimited)
	store      *historyStore
	wg         sync.WaitGroup
}

func newHub(maxBacklog int) *hub {
	return &hub{
		rooms:      map[string]*room{},
		clients:    map[*client]struct{}{},
		maxBacklog: maxBacklog,
	}
}

// attachStore connects a persistent store to the hub.
func (h *hub) attachStore(s *historyStore) {
	h.mu.Lock()
	h.store = s
	h.mu.Unlock()
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.leaveLocked(c)
	h.mu.Unlock()
}

// roomLocked returns the room named id, creating it and loading its stored
// history on first use. h.mu must be held.
func (h *hub) roomLocked(id string) *room {
	if r, ok := h.rooms[id]; ok {
		return r
	}
	r := &room{members: map[*client]struct{}{}, messages: make([]chat.Message, 0, 64)}
	if h.store != nil {
		msgs, err := h.store.LoadRecent(id, h.maxBacklog)
		if err != nil {
			log.Warn().Err(err).Str("room", id).Msg("[relay] load history failed")
		} else {
			r.messages = append(r.messages, msgs...)
		}
	}
	h.rooms[id] = r
	return r
}

func (h *hub) leaveLocked(c *client) {
	if c.room == "" {
		return
	}
	if r, ok := h.rooms[c.room]; ok {
		delete(r.members, c)
	}
	c.room = ""
}

// join moves c into roomID and replays the room's backlog to it.
func (h *hub) join(c *client, roomID string) {
	h.mu.Lock()
	h.leaveLocked(c)
	r := h.roomLocked(roomID)
	r.members[c] = struct{}{}
	c.room = roomID
	backlog := append([]chat.Message(nil), r.messages...)
	h.mu.Unlock()

	if backlog == nil {
		backlog = []chat.Message{}
	}
	c.push(chat.EventLoadMessages, backlog)
	log.Info().Str("conn", c.id).Str("room", roomID).Int("backlog", len(backlog)).Msg("[relay] joined")
}

// publish records m in the sender's room and delivers it to the other members.
// The sender already shows its own copy.
func (h *hub) publish(c *client, m chat.Message) {
	h.mu.Lock()
	if c.room == "" {
		h.mu.Unlock()
		log.Debug().Str("conn", c.id).Msg("[relay] send before join")
		return
	}
	roomID := c.room
	m.RoomID = roomID
	r := h.roomLocked(roomID)
	r.messages = append(r.messages, m)
	if h.maxBacklog > 0 && len(r.messages) > h.maxBacklog {
		copy(r.messages, r.messages[len(r.messages)-h.maxBacklog:])
		r.messages = r.messages[:h.maxBacklog]
	}
	peers := make([]*client, 0, len(r.members))
	for p := range r.members {
		if p != c {
			peers = append(peers, p)
		}
	}
	store := h.store
	h.mu.Unlock()

	if store != nil {
		if err := store.Append(roomID, m); err != nil {
			log.Debug().Err(err).Msg("[relay] persist message")
		}
	}
	for _, p := range peers {
		p.push(chat.EventReceive, m)
	}
}

// route handles one inbound frame from c.
func (h *hub) route(c *client, f transport.Frame) {
	switch f.Event {
	case chat.EventJoinRoom:
		var roomID string
		if err := json.Unmarshal(f.Data, &roomID); err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("[relay] decode join_room")
			return
		}
		if !validRoomID(roomID) {
			log.Debug().Str("conn", c.id).Str("room", roomID).Msg("[relay] reject room id")
			return
		}
		h.join(c, roomID)
	case chat.EventSendMessage:
		var p chat.SendPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("[relay] decode send_message")
			return
		}
		m := chat.Message{
			Username:  sanitizeNickname(p.Username),
			Message:   sanitizeMessage(p.Message.Message),
			Timestamp: sanitizeTimestamp(p.Timestamp),
		}
		if m.Message == "" {
			return
		}
		h.publish(c, m)
	default:
		log.Debug().Str("conn", c.id).Str("event", f.Event).Msg("[relay] unknown event")
	}
}

func validRoomID(id string) bool {
	return id != "" && chat.TextLength(id) <= chat.MaxRoomIDLength && plainText(id) == id
}

// closeAll closes every connection (used during shutdown).
func (h *hub) closeAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}
}

// wait blocks until all websocket handler goroutines have finished.
func (h *hub) wait() {
	h.wg.Wait()
}

func handleWS(w http.ResponseWriter, r *http.Request, h *hub) {
	upgrader := websocket.Upgrader{
		CheckOrigin:      func(r *http.Request) bool { return true },
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("[relay] upgrade websocket")
		return
	}
	c := newClient(uuid.NewString(), conn, h)
	h.register(c)
	log.Debug().Str("conn", c.id).Str("remote", r.RemoteAddr).Msg("[relay] connected")

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writeLoop()
	}()
	go func() {
		defer h.wg.Done()
		c.readLoop()
	}()
}

// NewHandler builds the relay router.
func NewHandler(h *hub) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) { handleWS(w, r, h) })
	return r
}
