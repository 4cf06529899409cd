package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Panel is the controller behind an open room: the compose draft, the ordered
// message list and the inbound subscriptions.
//
// A Panel starts unmounted. Mount subscribes to load_message and
// recive_message; Unmount releases both. Mounting twice keeps a single pair of
// handlers.
type Panel struct {
	session   Session
	transport Transport
	now       func() time.Time
	onChange  func()

	mu       sync.Mutex
	mounted  bool
	unsubs   []func()
	draft    string
	messages []Message
}

// PanelOption configures a Panel.
type PanelOption func(*Panel)

// WithClock sets the clock used to stamp outgoing messages.
func WithClock(now func() time.Time) PanelOption {
	return func(p *Panel) { p.now = now }
}

// WithOnChange registers fn to run after every change to the message list.
// It is called without the panel lock held, possibly from the transport's
// goroutine.
func WithOnChange(fn func()) PanelOption {
	return func(p *Panel) { p.onChange = fn }
}

// NewPanel returns an unmounted panel for session.
func NewPanel(session Session, t Transport, opts ...PanelOption) *Panel {
	p := &Panel{
		session:   session,
		transport: t,
		now:       time.Now,
		messages:  make([]Message, 0, 64),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Session returns the session the panel was opened for.
func (p *Panel) Session() Session {
	return p.session
}

// Mount subscribes to inbound events. It is a no-op on a mounted panel.
func (p *Panel) Mount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mounted {
		return
	}
	p.mounted = true
	p.unsubs = append(p.unsubs,
		p.transport.On(EventLoadMessages, p.handleHistory),
		p.transport.On(EventReceive, p.handleMessage),
	)
}

// Unmount releases the subscriptions acquired by Mount.
func (p *Panel) Unmount() {
	p.mu.Lock()
	unsubs := p.unsubs
	p.unsubs = nil
	p.mounted = false
	p.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

// Mounted reports whether the panel holds its subscriptions.
func (p *Panel) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mounted
}

// SetDraft replaces the compose buffer, truncated to MaxMessageLength.
func (p *Panel) SetDraft(s string) {
	p.mu.Lock()
	p.draft = TruncateMessage(s)
	p.mu.Unlock()
}

// Draft returns the compose buffer.
func (p *Panel) Draft() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// Send publishes the draft and appends it to the list without waiting for
// the server. An empty draft is a no-op. It reports whether a message was sent.
func (p *Panel) Send() bool {
	p.mu.Lock()
	if p.draft == "" {
		p.mu.Unlock()
		return false
	}
	m := Message{
		Username:  p.session.Username,
		RoomID:    p.session.RoomID,
		Message:   p.draft,
		Timestamp: FormatTimestamp(p.now()),
	}
	p.mu.Unlock()

	if err := p.transport.Emit(EventSendMessage, newSendPayload(m, p.session)); err != nil {
		log.Warn().Err(err).Str("room", p.session.RoomID).Msg("[chat] emit send_message")
	}

	m.Local = true
	p.mu.Lock()
	p.messages = append(p.messages, m)
	if p.draft == m.Message {
		p.draft = ""
	}
	p.mu.Unlock()
	p.changed()
	return true
}

// Messages returns a copy of the list in display order.
func (p *Panel) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// IsOwn reports whether m was authored under the session's username.
func (p *Panel) IsOwn(m Message) bool {
	return m.Username == p.session.Username
}

// ReplaceHistory swaps the whole list for msgs.
func (p *Panel) ReplaceHistory(msgs []Message) {
	next := make([]Message, len(msgs))
	copy(next, msgs)
	p.mu.Lock()
	p.messages = next
	p.mu.Unlock()
	p.changed()
}

// Deliver appends one inbound message.
func (p *Panel) Deliver(m Message) {
	p.mu.Lock()
	p.messages = append(p.messages, m)
	p.mu.Unlock()
	p.changed()
}

func (p *Panel) handleHistory(data json.RawMessage) {
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		log.Debug().Err(err).Msg("[chat] decode load_message")
		return
	}
	if !p.Mounted() {
		return
	}
	p.ReplaceHistory(msgs)
}

func (p *Panel) handleMessage(data json.RawMessage) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		log.Debug().Err(err).Msg("[chat] decode recive_message")
		return
	}
	if !p.Mounted() {
		return
	}
	p.Deliver(m)
}

func (p *Panel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}
