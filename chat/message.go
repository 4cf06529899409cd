package chat

import (
	"strconv"
	"time"
	"unicode/utf16"
)

// MaxMessageLength caps a composed message, counted by TextLength.
const MaxMessageLength = 500

// Message is one chat entry, either composed locally or delivered by the transport.
type Message struct {
	Username  string `json:"username,omitempty"`
	RoomID    string `json:"roomId,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`

	// Local marks an optimistic echo that the transport has not delivered.
	Local bool `json:"-"`
}

// FormatTimestamp renders t as "H:M" on the local clock, without padding.
func FormatTimestamp(t time.Time) string {
	t = t.Local()
	return strconv.Itoa(t.Hour()) + ":" + strconv.Itoa(t.Minute())
}

// TextLength counts s in UTF-16 code units, the unit browser inputs limit by.
// Characters outside the Basic Multilingual Plane count as two.
func TextLength(s string) int {
	n := 0
	for _, r := range s {
		n += runeLength(r)
	}
	return n
}

func runeLength(r rune) int {
	if l := utf16.RuneLen(r); l > 0 {
		return l
	}
	return 1
}

// TruncateMessage cuts s to at most MaxMessageLength units without splitting
// a character.
func TruncateMessage(s string) string {
	n := 0
	for i, r := range s {
		n += runeLength(r)
		if n > MaxMessageLength {
			return s[:i]
		}
	}
	return s
}
