package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"github.com/hilthontt/roomsync/pkg/sdk"
)

const requestTimeout = 10 * time.Second

var (
	brandStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D9FF")).Bold(true)
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	senderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D9FF")).Bold(true)
	selfStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F93939"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

type messageReceivedMsg struct {
	message protocol.Message
}

type stateChangedMsg struct {
	state sdk.State
}

type roomLostMsg struct {
	room string
	err  error
}

type openedMsg struct {
	err error
}

type sentMsg struct {
	message protocol.Message
	err     error
}

type olderLoadedMsg struct {
	count int
	err   error
}

type model struct {
	session *sdk.ChatSession
	chatID  string
	self    string
	events  <-chan tea.Msg

	input    textinput.Model
	viewport viewport.Model
	ready    bool

	status  string
	notice  string
	error   string
	opened  bool
	loading bool
}

func newModel(session *sdk.ChatSession, chatID, self string, events <-chan tea.Msg) model {
	input := textinput.New()
	input.Placeholder = "Type a message, /older or /quit"
	input.CharLimit = 4000
	input.Focus()

	return model{
		session: session,
		chatID:  chatID,
		self:    self,
		events:  events,
		input:   input,
		status:  sdk.Disconnected.String(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.open(), m.waitForEvent())
}

func (m model) open() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return openedMsg{err: m.session.Open(ctx)}
	}
}

func (m model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m model) send(content string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		msg, err := m.session.Send(ctx, content)
		return sentMsg{message: msg, err: err}
	}
}

func (m model) loadOlder() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		older, err := m.session.LoadOlder(ctx)
		return olderLoadedMsg{count: len(older), err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - 5
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = msg.Width - 4
		m = m.refresh(true)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			m.error = ""
			switch {
			case line == "":
			case line == "/quit":
				return m, tea.Quit
			case line == "/older":
				if !m.session.HasMore() {
					m.notice = "no older messages"
				} else if !m.loading {
					m.loading = true
					cmds = append(cmds, m.loadOlder())
				}
			default:
				cmds = append(cmds, m.send(line))
			}
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case openedMsg:
		if msg.err != nil {
			m.error = "failed to open chat: " + msg.err.Error()
		} else {
			m.opened = true
			m.notice = fmt.Sprintf("joined %s", m.chatID)
		}
		m = m.refresh(true)

	case sentMsg:
		switch {
		case msg.err != nil && msg.message.ID != "":
			m.error = msg.err.Error()
		case msg.err != nil:
			m.error = "send failed: " + msg.err.Error()
		}
		m = m.refresh(true)

	case olderLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.error = "failed to load history: " + msg.err.Error()
		} else {
			m.notice = fmt.Sprintf("%d older messages", msg.count)
		}
		m = m.refresh(false)
		m.viewport.GotoTop()

	case messageReceivedMsg:
		m = m.refresh(true)
		cmds = append(cmds, m.waitForEvent())

	case stateChangedMsg:
		m.status = msg.state.String()
		cmds = append(cmds, m.waitForEvent())

	case roomLostMsg:
		m.error = fmt.Sprintf("lost room %s: %v", msg.room, msg.err)
		cmds = append(cmds, m.waitForEvent())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// refresh re-renders the timeline, which stays the source of truth for
// ordering and dedup.
func (m model) refresh(follow bool) model {
	if !m.ready {
		return m
	}

	messages := m.session.Messages()
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, m.render(msg))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.viewport.GotoBottom()
	}
	return m
}

func (m model) render(msg protocol.Message) string {
	who := msg.SenderName
	if who == "" {
		who = msg.SenderID
	}
	style := senderStyle
	if msg.SenderID == m.self {
		style = selfStyle
	}
	return timeStyle.Render(msg.CreatedAt.Local().Format("15:04")) + " " + style.Render(who) + " " + msg.Content
}

func (m model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	var sections []string

	header := brandStyle.Render("#"+m.chatID) + "  " + statusStyle.Render(m.status)
	if m.session.HasMore() {
		header += helpStyle.Render("  /older for history")
	}
	sections = append(sections, header)
	sections = append(sections, m.viewport.View())
	sections = append(sections, m.input.View())

	switch {
	case m.error != "":
		sections = append(sections, errorStyle.Render("⚠ "+m.error))
	case m.notice != "":
		sections = append(sections, statusStyle.Render(m.notice))
	default:
		sections = append(sections, "")
	}

	sections = append(sections, helpStyle.Render("Enter to send • PgUp/PgDn to scroll • Esc to quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
