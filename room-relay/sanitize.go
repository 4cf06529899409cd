package main

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gosuda/room-chat/chat"
)

const (
	maxNicknameLength  = 24
	maxTimestampLength = 5
)

// Clients render plain text, so every field goes through the strict policy
// and comes back unescaped.
var textPolicy = bluemonday.StrictPolicy()

func plainText(s string) string {
	if s == "" {
		return ""
	}
	decoded := html.UnescapeString(s)
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(decoded)))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// sanitizeNickname strips markup and falls back to "anon".
func sanitizeNickname(name string) string {
	name = truncateRunes(plainText(name), maxNicknameLength)
	if name == "" {
		return "anon"
	}
	return name
}

// sanitizeMessage strips markup and enforces the client's length limit.
func sanitizeMessage(text string) string {
	return chat.TruncateMessage(plainText(text))
}

func sanitizeTimestamp(ts string) string {
	return truncateRunes(plainText(ts), maxTimestampLength)
}
