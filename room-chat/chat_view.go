package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gosuda/room-chat/chat"
)

const (
	headerHeight  = 3
	composeHeight = 3
)

// chatView renders a chat.Panel: header, scrolling message list and the
// compose field.
type chatView struct {
	panel   *chat.Panel
	list    viewport.Model
	compose textinput.Model
	width   int
}

func newChatView(panel *chat.Panel, width, height int) *chatView {
	compose := textinput.New()
	compose.Placeholder = "Type message here..."
	compose.Prompt = ""
	compose.CharLimit = chat.MaxMessageLength
	compose.Focus()

	v := &chatView{
		panel:   panel,
		list:    viewport.New(width, listHeight(height)),
		compose: compose,
	}
	v.resize(width, height)
	return v
}

func listHeight(height int) int {
	h := height - headerHeight - composeHeight
	if h < 1 {
		h = 1
	}
	return h
}

func (v *chatView) resize(width, height int) {
	v.width = width
	v.list.Width = width
	v.list.Height = listHeight(height)
	v.compose.Width = width - 6
	v.refresh()
}

// refresh re-renders the list and pins it to the bottom.
func (v *chatView) refresh() {
	v.list.SetContent(renderMessages(v.panel, v.width))
	v.list.GotoBottom()
}

// send runs the panel's guarded send with the compose field as draft.
func (v *chatView) send() {
	v.panel.SetDraft(v.compose.Value())
	if v.panel.Send() {
		v.compose.Reset()
	}
	v.refresh()
}

func (v *chatView) update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter", "ctrl+s":
			v.send()
			return nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			v.list, cmd = v.list.Update(msg)
			return cmd
		}
	}
	var cmd tea.Cmd
	v.compose, cmd = v.compose.Update(msg)
	v.panel.SetDraft(v.compose.Value())
	return cmd
}

func (v *chatView) view() string {
	s := v.panel.Session()
	header := headerStyle.Width(v.width).Render("From : " + s.Username + "\nroomId : " + s.RoomID)
	compose := composeStyle.Width(v.width - 2).Render(v.compose.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, v.list.View(), compose)
}

// renderMessages lays out own messages on the right and everyone else's on
// the left, each bubble taking 70% of the width.
func renderMessages(p *chat.Panel, width int) string {
	msgs := p.Messages()
	if len(msgs) == 0 {
		return ""
	}
	bubbleWidth := width * 7 / 10
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		style, pos := otherBubble, lipgloss.Left
		if p.IsOwn(m) {
			style, pos = ownBubble, lipgloss.Right
		}
		inner := bubbleWidth - style.GetHorizontalFrameSize()
		body := m.Message + "\n" + timestampStyle.Width(inner).Render(m.Timestamp)
		bubble := style.Width(bubbleWidth - style.GetHorizontalBorderSize()).Render(body)
		lines = append(lines, lipgloss.PlaceHorizontal(width, pos, bubble))
	}
	return strings.Join(lines, "\n")
}
