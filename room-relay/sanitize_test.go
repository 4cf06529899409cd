package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gosuda/room-chat/chat"
)

func TestSanitizeNickname(t *testing.T) {
	assert.Equal(t, "anon", sanitizeNickname(""))
	assert.Equal(t, "anon", sanitizeNickname("<img src=x>"))
	assert.Equal(t, "alice", sanitizeNickname("  <b>alice</b> "))
	assert.Equal(t, "Tom & Jerry", sanitizeNickname("Tom &amp; Jerry"))
	assert.Len(t, []rune(sanitizeNickname(strings.Repeat("가", 40))), maxNicknameLength)
}

func TestSanitizeMessage(t *testing.T) {
	assert.Equal(t, "", sanitizeMessage(""))
	assert.Equal(t, "hi", sanitizeMessage("<p>hi</p>"))
	assert.Equal(t, "1 < 2", sanitizeMessage("1 < 2"))
	assert.Len(t, []rune(sanitizeMessage(strings.Repeat("x", 900))), chat.MaxMessageLength)
}

func TestSanitizeTimestamp(t *testing.T) {
	assert.Equal(t, "9:5", sanitizeTimestamp("9:5"))
	assert.Equal(t, "23:59", sanitizeTimestamp("23:59:59"))
}
