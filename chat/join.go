package chat

import (

	"github.com/rs/zerolog/log"
)

// MaxRoomIDLength caps a room id, counted in characters.
const MaxRoomIDLength = 6

// Form fields a ValidationError can point at.
const (
	FieldUsername = "username"
	FieldRoomID   = "roomId"
)

// ValidationError is a join form error tied to the field that caused it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateJoin checks the join form. Checks run in order and stop at the
// first failure.
func ValidateJoin(username, roomID string) error {
	if username == "" {
		return &ValidationError{Field: FieldUsername, Message: "username is required!"}
	}
	if roomID == "" {
		return &ValidationError{Field: FieldRoomID, Message: "roomId is required!"}
	}
	if TextLength(roomID) > MaxRoomIDLength {
		return &ValidationError{Field: FieldRoomID, Message: "room id should not be above 6 chat"}
	}
	return nil
}

// Join validates the form, asks the transport to join the room and records
// the session in store. The server's answer is not awaited: a nil error means
// the form was valid, not that the server accepted the join.
func Join(t Transport, store *SessionStore, username, roomID string) (Session, error) {
	return join(t, store, username, roomID, nil)
}

// Open is Join followed by opening a mounted Panel for the new session. The
// panel subscribes before join_room is emitted, so the history the server
// replays on join cannot be missed.
func Open(t Transport, store *SessionStore, username, roomID string, opts ...PanelOption) (*Panel, error) {
	var p *Panel
	_, err := join(t, store, username, roomID, func(s Session) {
		p = NewPanel(s, t, opts...)
		p.Mount()
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func join(t Transport, store *SessionStore, username, roomID string, beforeEmit func(Session)) (Session, error) {
	if err := ValidateJoin(username, roomID); err != nil {
		return Session{}, err
	}
	session := Session{RoomID: roomID, Username: username}
	if beforeEmit != nil {
		beforeEmit(session)
	}
	if err := t.Emit(EventJoinRoom, roomID); err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("[chat] emit join_room")
	}
	store.Set(session)
	return session, nil
}
