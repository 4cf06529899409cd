package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/room-chat/chat"
)

func TestHistoryStoreAppendAndLoad(t *testing.T) {
	dir := t.TempDir()
	s, err := openHistoryStore(dir)
	require.NoError(t, err)

	for _, text := range []string{"a1", "a2", "a3"} {
		require.NoError(t, s.Append("room1", chat.Message{Username: "alice", Message: text}))
	}
	require.NoError(t, s.Append("room12", chat.Message{Username: "bob", Message: "other"}))

	all, err := s.LoadRecent("room1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, texts(all))

	recent, err := s.LoadRecent("room1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a3"}, texts(recent))

	other, err := s.LoadRecent("room12", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, texts(other))

	none, err := s.LoadRecent("empty", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
	require.NoError(t, s.Close())
}

func TestHistoryStoreReopenContinuesSequence(t *testing.T) {
	dir := t.TempDir()
	s, err := openHistoryStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Append("room1", chat.Message{Message: "before"}))
	require.NoError(t, s.Close())

	s, err = openHistoryStore(dir)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Append("room1", chat.Message{Message: "after"}))

	msgs, err := s.LoadRecent("room1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"before", "after"}, texts(msgs))
}

func TestHubLoadsStoredHistory(t *testing.T) {
	s, err := openHistoryStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Append("room1", chat.Message{Username: "alice", RoomID: "room1", Message: "kept"}))

	h := newHub(10)
	h.attachStore(s)
	url := startRelay(t, h)
	bob := joinRoom(t, url, "bob", "room1")
	assert.Equal(t, []string{"kept"}, messageTexts(bob.panel))
}

func TestNilHistoryStore(t *testing.T) {
	s, err := openHistoryStore("")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, s.Append("room1", chat.Message{}))
	msgs, err := s.LoadRecent("room1", 1)
	assert.NoError(t, err)
	assert.Nil(t, msgs)
	assert.NoError(t, s.Close())
}

func texts(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Message)
	}
	return out
}
