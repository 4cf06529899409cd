package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByEvent(t *testing.T) {
	d := NewDispatcher()
	var got []string
	d.On("a", func(data json.RawMessage) { got = append(got, "a1:"+string(data)) })
	d.On("a", func(data json.RawMessage) { got = append(got, "a2:"+string(data)) })
	d.On("b", func(data json.RawMessage) { got = append(got, "b:"+string(data)) })

	assert.True(t, d.Dispatch(Frame{Event: "a", Data: json.RawMessage(`1`)}))
	assert.False(t, d.Dispatch(Frame{Event: "c", Data: json.RawMessage(`2`)}))

	assert.Equal(t, []string{"a1:1", "a2:1"}, got)
}

func TestDispatcherUnsubscribeRemovesOnlyOwnHandler(t *testing.T) {
	d := NewDispatcher()
	var first, second int
	off := d.On("evt", func(json.RawMessage) { first++ })
	d.On("evt", func(json.RawMessage) { second++ })

	off()
	off()
	require.Equal(t, 1, d.Count("evt"))

	d.Dispatch(Frame{Event: "evt"})
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

func TestDispatcherUnsubscribeDuringDispatch(t *testing.T) {
	d := NewDispatcher()
	var calls int
	var off func()
	off = d.On("evt", func(json.RawMessage) {
		calls++
		off()
	})

	d.Dispatch(Frame{Event: "evt"})
	d.Dispatch(Frame{Event: "evt"})
	assert.Equal(t, 1, calls)
	assert.Zero(t, d.Count("evt"))
}

func TestFrameRoundTrip(t *testing.T) {
	f, err := NewFrame("join_room", "room1")
	require.NoError(t, err)
	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"join_room","data":"room1"}`, string(b))

	back, err := DecodeFrame(b)
	require.NoError(t, err)
	assert.Equal(t, "join_room", back.Event)
	assert.JSONEq(t, `"room1"`, string(back.Data))
}

func TestFrameErrors(t *testing.T) {
	_, err := NewFrame("", "x")
	assert.ErrorIs(t, err, ErrMissingEvent)

	_, err = DecodeFrame([]byte(`{"data":1}`))
	assert.ErrorIs(t, err, ErrMissingEvent)

	_, err = DecodeFrame([]byte(`not json`))
	assert.Error(t, err)

	_, err = NewFrame("x", make(chan int))
	assert.Error(t, err)
}
