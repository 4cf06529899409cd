// Package transporttest provides an in-memory transport for tests.
package transporttest

import (
	"encoding/json"
	"sync"

	"github.com/gosuda/room-chat/transport"
)

// Emitted is one recorded outbound event.
type Emitted struct {
	Event string
	Data  json.RawMessage
}

// Loopback records outbound events and lets tests inject inbound ones.
// Inbound delivery is synchronous on the caller's goroutine.
type Loopback struct {
	events *transport.Dispatcher

	mu      sync.Mutex
	emitted []Emitted
	err     error
	onEmit  func(event string)
}

// NewLoopback returns an empty Loopback.
func NewLoopback() *Loopback {
	return &Loopback{events: transport.NewDispatcher()}
}

// FailEmits makes every later Emit record nothing and return err.
// A nil err restores normal behaviour.
func (l *Loopback) FailEmits(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

// OnEmit runs fn after every recorded Emit.
func (l *Loopback) OnEmit(fn func(event string)) {
	l.mu.Lock()
	l.onEmit = fn
	l.mu.Unlock()
}

func (l *Loopback) Emit(event string, payload any) error {
	f, err := transport.NewFrame(event, payload)
	if err != nil {
		return err
	}
	l.mu.Lock()
	if l.err != nil {
		err := l.err
		l.mu.Unlock()
		return err
	}
	l.emitted = append(l.emitted, Emitted{Event: f.Event, Data: f.Data})
	hook := l.onEmit
	l.mu.Unlock()
	if hook != nil {
		hook(f.Event)
	}
	return nil
}

func (l *Loopback) On(event string, h func(data json.RawMessage)) (unsubscribe func()) {
	return l.events.On(event, h)
}

// Deliver marshals payload and dispatches it as an inbound event.
// It reports whether any handler ran.
func (l *Loopback) Deliver(event string, payload any) bool {
	f, err := transport.NewFrame(event, payload)
	if err != nil {
		panic(err)
	}
	return l.events.Dispatch(f)
}

// DeliverRaw dispatches data verbatim, for malformed payload cases.
func (l *Loopback) DeliverRaw(event string, data []byte) bool {
	return l.events.Dispatch(transport.Frame{Event: event, Data: data})
}

// Subscribers returns how many handlers are registered for event.
func (l *Loopback) Subscribers(event string) int {
	return l.events.Count(event)
}

// Emitted returns a copy of the recorded outbound events.
func (l *Loopback) Emitted() []Emitted {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Emitted, len(l.emitted))
	copy(out, l.emitted)
	return out
}

// EmittedNamed returns the recorded events named event.
func (l *Loopback) EmittedNamed(event string) []Emitted {
	var out []Emitted
	for _, e := range l.Emitted() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
