package chat

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/room-chat/transport/transporttest"
)

func TestValidateJoin(t *testing.T) {
	tests := []struct {
		name     string
		username string
		roomID   string
		field    string
		message  string
	}{
		{name: "empty username", username: "", roomID: "room1", field: FieldUsername, message: "username is required!"},
		{name: "empty username wins over bad room", username: "", roomID: "far-too-long", field: FieldUsername, message: "username is required!"},
		{name: "empty room", username: "alice", roomID: "", field: FieldRoomID, message: "roomId is required!"},
		{name: "room too long", username: "alice", roomID: "abcdefg", field: FieldRoomID, message: "room id should not be above 6 chat"},
		{name: "room counted in characters", username: "alice", roomID: "방방방방방방방", field: FieldRoomID, message: "room id should not be above 6 chat"},
		{name: "six characters", username: "alice", roomID: "abcdef"},
		{name: "six multibyte characters", username: "alice", roomID: "방방방방방방"},
		{name: "astral characters count twice", username: "alice", roomID: "😀😀😀😀", field: FieldRoomID, message: "room id should not be above 6 chat"},
		{name: "three astral characters", username: "alice", roomID: "😀😀😀"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJoin(tt.username, tt.roomID)
			if tt.message == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, verr.Error())
		})
	}
}

func TestJoinSuccess(t *testing.T) {
	lb := transporttest.NewLoopback()
	store := NewSessionStore()

	session, err := Join(lb, store, "alice", "room1")
	require.NoError(t, err)
	assert.Equal(t, Session{Username: "alice", RoomID: "room1"}, session)

	stored, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, session, stored)

	joins := lb.EmittedNamed(EventJoinRoom)
	require.Len(t, joins, 1)
	var room string
	require.NoError(t, json.Unmarshal(joins[0].Data, &room))
	assert.Equal(t, "room1", room)
	assert.Len(t, lb.Emitted(), 1)
}

func TestJoinInvalidLeavesStoreEmpty(t *testing.T) {
	lb := transporttest.NewLoopback()
	store := NewSessionStore()

	_, err := Join(lb, store, "", "room1")
	require.Error(t, err)
	assert.Equal(t, "username is required!", err.Error())

	_, ok := store.Current()
	assert.False(t, ok)
	assert.Empty(t, lb.Emitted())
}

func TestJoinIgnoresTransportFailure(t *testing.T) {
	lb := transporttest.NewLoopback()
	lb.FailEmits(errors.New("connection refused"))
	store := NewSessionStore()

	session, err := Join(lb, store, "alice", "room1")
	require.NoError(t, err)
	stored, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, session, stored)
}

func TestJoinOverwritesSession(t *testing.T) {
	lb := transporttest.NewLoopback()
	store := NewSessionStore()

	_, err := Join(lb, store, "alice", "room1")
	require.NoError(t, err)
	_, err = Join(lb, store, "bob", "room2")
	require.NoError(t, err)

	stored, _ := store.Current()
	assert.Equal(t, Session{Username: "bob", RoomID: "room2"}, stored)
	assert.Len(t, lb.EmittedNamed(EventJoinRoom), 2)
}

func TestOpenSubscribesBeforeJoin(t *testing.T) {
	lb := transporttest.NewLoopback()
	store := NewSessionStore()

	var subscribedAtJoin int
	lb.OnEmit(func(event string) {
		if event == EventJoinRoom {
			subscribedAtJoin = lb.Subscribers(EventLoadMessages)
		}
	})

	p, err := Open(lb, store, "alice", "room1")
	require.NoError(t, err)
	defer p.Unmount()

	assert.True(t, p.Mounted())
	assert.Equal(t, 1, subscribedAtJoin)
	assert.Equal(t, Session{Username: "alice", RoomID: "room1"}, p.Session())
	stored, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, p.Session(), stored)
}

func TestOpenInvalidSubscribesNothing(t *testing.T) {
	lb := transporttest.NewLoopback()

	p, err := Open(lb, NewSessionStore(), "alice", "")
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Zero(t, lb.Subscribers(EventLoadMessages))
	assert.Empty(t, lb.Emitted())
}
