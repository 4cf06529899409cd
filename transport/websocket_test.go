package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer answers every frame with an "echo" frame carrying the same data
// and closes the connection on a "bye" frame.
func echoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			f, err := DecodeFrame(payload)
			if err != nil {
				continue
			}
			if f.Event == "bye" {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = conn.WriteJSON(Frame{Event: "echo", Data: f.Data})
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConnEmitAndReceive(t *testing.T) {
	c := dial(t, echoServer(t))

	got := make(chan string, 1)
	off := c.On("echo", func(data json.RawMessage) {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			got <- s
		}
	})
	defer off()

	require.NoError(t, c.Emit("say", "hello"))
	select {
	case s := <-got:
		assert.Equal(t, "hello", s)
	case <-time.After(5 * time.Second):
		t.Fatal("no echo received")
	}
}

func TestConnServerCloseEndsReadLoop(t *testing.T) {
	c := dial(t, echoServer(t))
	require.NoError(t, c.Emit("bye", nil))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not stop")
	}
	assert.ErrorIs(t, c.Emit("say", "late"), ErrClosed)
}

func TestConnCloseRejectsEmit(t *testing.T) {
	c := dial(t, echoServer(t))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Emit("say", "x"), ErrClosed)

	select {
	case <-c.Done():
	case <-time.After(15 * time.Second):
		t.Fatal("read loop did not stop after close")
	}
}

func TestDialRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Dial(ctx, url)
	assert.Error(t, err)
}

func TestEmitFailsWhenQueueFull(t *testing.T) {
	o := newDialOptions([]Option{WithSendBuffer(1)})
	c := newConn(nil, o.sendBuffer)

	require.NoError(t, c.Emit("say", "first"))

	errc := make(chan error, 1)
	go func() { errc <- c.Emit("say", "second") }()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrSendQueueFull)
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue")
	}
	assert.Len(t, c.send, 1)
}

func TestDialOptions(t *testing.T) {
	d := &websocket.Dialer{HandshakeTimeout: time.Second}
	o := newDialOptions([]Option{WithDialer(d), WithSendBuffer(0), WithDialer(nil)})
	assert.Same(t, d, o.dialer)
	assert.Equal(t, sendBufferSize, o.sendBuffer)
}

func TestDialSendsHeader(t *testing.T) {
	got := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("User-Agent")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"),
		WithDialer(&websocket.Dialer{HandshakeTimeout: time.Second}),
		WithHeader(http.Header{"User-Agent": []string{"room-chat-test"}}))
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "room-chat-test", <-got)
}
