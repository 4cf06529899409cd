package chat

import "encoding/json"

// Event names exchanged with the room server.
const (
	EventJoinRoom     = "join_room"
	EventSendMessage  = "send_message"
	EventLoadMessages = "load_message"
	EventReceive      = "recive_message"
)

// Transport is the publish/subscribe channel to the room server.
//
// Emit must not wait for the server. On registers h for inbound events named
// event and returns a func that removes exactly that registration.
type Transport interface {
	Emit(event string, payload any) error
	On(event string, h func(data json.RawMessage)) (unsubscribe func())
}

// SendPayload is the body of a send_message event.
type SendPayload struct {
	Message
	Room SessionEcho `json:"room"`
}

func newSendPayload(m Message, s Session) SendPayload {
	return SendPayload{
		Message: m,
		Room:    SessionEcho{RoomID: s.RoomID, Username: s.Username},
	}
}
