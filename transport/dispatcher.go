package transport

import (
	"encoding/json"
	"sync"
)

type handlerEntry struct {
	id uint64
	fn func(json.RawMessage)
}

// Dispatcher routes inbound frames to the handlers registered for their event.
type Dispatcher struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]handlerEntry
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]handlerEntry)}
}

// On registers h for event. The returned func removes this registration
// only; calling it more than once is harmless.
func (d *Dispatcher) On(event string, h func(json.RawMessage)) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[event] = append(d.handlers[event], handlerEntry{id: id, fn: h})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(event, id) })
	}
}

func (d *Dispatcher) remove(event string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := d.handlers[event]
	for i, e := range entries {
		if e.id != id {
			continue
		}
		next := make([]handlerEntry, 0, len(entries)-1)
		next = append(next, entries[:i]...)
		next = append(next, entries[i+1:]...)
		if len(next) == 0 {
			delete(d.handlers, event)
		} else {
			d.handlers[event] = next
		}
		return
	}
}

// Count returns how many handlers are registered for event.
func (d *Dispatcher) Count(event string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[event])
}

// Dispatch calls every handler registered for f.Event, in registration
// order. It reports whether any handler ran.
func (d *Dispatcher) Dispatch(f Frame) bool {
	d.mu.RLock()
	entries := d.handlers[f.Event]
	d.mu.RUnlock()
	for _, e := range entries {
		e.fn(f.Data)
	}
	return len(entries) > 0
}
