// Package transport carries named JSON events over a WebSocket.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingEvent is returned when a frame has no event name.
var ErrMissingEvent = errors.New("frame has no event name")

// Frame is the envelope of every event on the wire.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals payload into a frame for event.
func NewFrame(event string, payload any) (Frame, error) {
	if event == "" {
		return Frame{}, ErrMissingEvent
	}
	if payload == nil {
		return Frame{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Frame{Event: event, Data: data}, nil
}

// DecodeFrame parses one wire frame.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, ErrMissingEvent
	}
	return f, nil
}
