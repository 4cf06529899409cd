package main

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/room-chat/chat"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// messagesChangedMsg tells the UI loop that the open panel's list changed.
type messagesChangedMsg struct{}

// app is the top-level bubbletea model. It owns the session store and swaps
// between the join form and the chat panel.
type app struct {
	transport chat.Transport
	store     *chat.SessionStore

	sendMu sync.RWMutex
	send   func(tea.Msg)

	form   joinForm
	room   *chatView
	width  int
	height int
}

func newApp(t chat.Transport, store *chat.SessionStore, username, roomID string) *app {
	return &app{
		transport: t,
		store:     store,
		form:      newJoinForm(username, roomID),
		width:     defaultWidth,
		height:    defaultHeight,
	}
}

// attach routes background notifications into a running program.
func (a *app) attach(send func(tea.Msg)) {
	a.sendMu.Lock()
	a.send = send
	a.sendMu.Unlock()
}

// post delivers msg to the UI loop without blocking the caller, which may be
// the UI loop itself.
func (a *app) post(msg tea.Msg) {
	a.sendMu.RLock()
	send := a.send
	a.sendMu.RUnlock()
	if send == nil {
		return
	}
	go send(msg)
}

func (a *app) Init() tea.Cmd {
	return nil
}

func (a *app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		if a.room != nil {
			a.room.resize(a.width, a.height)
		}
		return a, nil
	case messagesChangedMsg:
		if a.room != nil {
			a.room.refresh()
		}
		return a, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.leaveRoom()
			return a, tea.Quit
		case "esc":
			if a.room != nil {
				a.leaveRoom()
				return a, nil
			}
		case "enter":
			if a.room == nil {
				a.submitJoin()
				return a, nil
			}
		}
	}
	if a.room != nil {
		return a, a.room.update(msg)
	}
	return a, a.form.update(msg)
}

// submitJoin validates the form and, on success, swaps in a mounted chat
// panel for the new session.
func (a *app) submitJoin() {
	panel, err := chat.Open(a.transport, a.store, a.form.username(), a.form.roomID(),
		chat.WithOnChange(func() { a.post(messagesChangedMsg{}) }))
	a.form.setError(err)
	if err != nil {
		return
	}
	a.room = newChatView(panel, a.width, a.height)
	s := panel.Session()
	log.Info().Str("room", s.RoomID).Str("user", s.Username).Msg("[chat] joined room")
}

// leaveRoom unmounts the open panel. The list goes with it.
func (a *app) leaveRoom() {
	if a.room == nil {
		return
	}
	a.room.panel.Unmount()
	log.Info().Str("room", a.room.panel.Session().RoomID).Msg("[chat] left room")
	a.room = nil
}

func (a *app) View() string {
	formWidth := a.width / 2
	if a.width < 60 {
		formWidth = a.width
	}
	form := lipgloss.NewStyle().Width(formWidth).Padding(1, 2).Render(a.form.view())
	if a.room == nil {
		placeholder := placeholderStyle.Width(a.width).Render("Please Join a room")
		return lipgloss.JoinVertical(lipgloss.Left, form, placeholder)
	}
	return a.room.view()
}
