package main

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gosuda/room-chat/chat"
)

// joinForm collects the username and room id and shows validation errors
// under the field that failed.
type joinForm struct {
	inputs  [2]textinput.Model
	focus   int
	nameErr string
	roomErr string
}

const (
	usernameInput = 0
	roomInput     = 1
)

func newJoinForm(username, roomID string) joinForm {
	name := textinput.New()
	name.Placeholder = "Enter username"
	name.Prompt = "username > "
	name.SetValue(username)

	room := textinput.New()
	room.Placeholder = "Enter roomId(room id should be less than 6 char)"
	room.Prompt = "roomId   > "
	room.SetValue(roomID)

	f := joinForm{inputs: [2]textinput.Model{name, room}}
	f.inputs[usernameInput].Focus()
	return f
}

func (f *joinForm) username() string { return f.inputs[usernameInput].Value() }
func (f *joinForm) roomID() string   { return f.inputs[roomInput].Value() }

func (f *joinForm) setFocus(i int) {
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

// setError places err under its field. A nil err clears both fields.
func (f *joinForm) setError(err error) {
	f.nameErr, f.roomErr = "", ""
	var verr *chat.ValidationError
	if !errors.As(err, &verr) {
		return
	}
	switch verr.Field {
	case chat.FieldUsername:
		f.nameErr = verr.Message
	case chat.FieldRoomID:
		f.roomErr = verr.Message
	}
}

// update handles field navigation and typing. Submission is handled by the
// caller.
func (f *joinForm) update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return nil
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return nil
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *joinForm) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Join Room"))
	b.WriteString("\n\n")
	b.WriteString(f.inputs[usernameInput].View())
	b.WriteString("\n")
	b.WriteString(errorStyle.Render(f.nameErr))
	b.WriteString("\n")
	b.WriteString(f.inputs[roomInput].View())
	b.WriteString("\n")
	b.WriteString(errorStyle.Render(f.roomErr))
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("tab: switch field • enter: join room • ctrl+c: quit"))
	return b.String()
}
