// model.go - Model is the root Bubble Tea model of the chat screen: the
// history sidebar on the left, the transcript in the center and the input
// box at the bottom. All conversation state lives in app.App.

package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"difychat/src/app"
	"difychat/src/components/chatwindow"
	"difychat/src/components/modals/dialogs"
	"difychat/src/components/sidebar"
	"difychat/src/logging"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// streamUpdateMsg carries one update from the session started at gen.
type streamUpdateMsg struct {
	gen    int
	update app.Update
	ch     <-chan app.Update
}

type streamClosedMsg struct{ gen int }

type deleteConfirmedMsg struct{ id string }

type statusMsg string

// Model is the terminal chat UI.
type Model struct {
	app    *app.App
	ctx    context.Context
	logger *slog.Logger

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	sidebar  *sidebar.Model

	focus   focusArea
	confirm *dialogs.ConfirmationModal
	help    *dialogs.HelpModal

	gen       int
	streaming bool
	status    string
	width     int
	height    int
	ready     bool
	quitting  bool

	copy func(string) error
}

// New builds the chat UI over a. ctx bounds every stream it starts.
func New(ctx context.Context, a *app.App, logger *slog.Logger) *Model {
	if logger == nil {
		logger = logging.Discard()
	}
	ti := textinput.New()
	ti.Placeholder = "Type a message... (:h for help)"
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	m := &Model{
		app:      a,
		ctx:      ctx,
		logger:   logger,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		sidebar:  sidebar.New(),
		width:    80,
		height:   24,
		status:   "Ready",
		copy:     clipboard.WriteAll,
	}
	m.refresh()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamUpdateMsg:
		if msg.gen == m.gen {
			m.onStreamUpdate(msg.update)
		}
		return m, listen(msg.ch, msg.gen)

	case streamClosedMsg:
		if msg.gen == m.gen {
			m.streaming = false
			if m.status == "Receiving..." || m.status == "Sending..." {
				m.status = "Ready"
			}
			m.refresh()
		}
		return m, nil

	case sidebar.ActionMsg:
		return m, m.handleSidebar(msg)

	case deleteConfirmedMsg:
		if err := m.app.Delete(msg.id); err != nil {
			m.status = "Delete failed: " + err.Error()
		} else {
			m.status = "Conversation deleted"
		}
		m.refresh()
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.streaming {
			m.refreshTranscript()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.String() == "ctrl+c" {
		return m, m.quit()
	}
	if m.help != nil {
		if key.String() == "esc" || key.String() == "enter" || key.String() == "q" {
			m.help = nil
		}
		return m, nil
	}
	if m.confirm != nil {
		cmd := m.confirm.Update(key)
		if m.confirm.Closed {
			m.confirm = nil
		}
		return m, cmd
	}

	switch key.String() {
	case "tab":
		m.toggleFocus()
		return m, nil
	case "ctrl+n":
		m.newChat()
		return m, nil
	case "ctrl+y":
		return m, m.copyLastAnswer()
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}

	if m.focus == focusSidebar {
		if key.String() == "esc" {
			m.toggleFocus()
			return m, nil
		}
		return m, m.sidebar.Update(key)
	}

	switch key.String() {
	case "esc":
		if m.streaming {
			m.app.Cancel()
			m.status = "Stopped"
			m.refresh()
		}
		return m, nil
	case "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if text == "" {
			return m, nil
		}
		if strings.HasPrefix(text, ":") {
			return m, m.handleCommand(text)
		}
		return m, m.send(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

// handleCommand processes vim-like commands typed into the input box.
func (m *Model) handleCommand(cmd string) tea.Cmd {
	switch cmd {
	case ":q":
		return m.quit()
	case ":h":
		m.help = &dialogs.HelpModal{Title: "Help", Content: helpText}
	case ":n":
		m.newChat()
	case ":y":
		return m.copyLastAnswer()
	case ":d":
		if id := m.app.ConversationID(); id != "" {
			m.askDelete(id)
		} else {
			m.status = "Nothing to delete"
		}
	default:
		m.status = "Unknown command " + cmd
	}
	return nil
}

func (m *Model) send(text string) tea.Cmd {
	updates, err := m.app.Send(m.ctx, text)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	m.gen++
	m.streaming = true
	m.status = "Sending..."
	m.refresh()
	return listen(updates, m.gen)
}

func (m *Model) onStreamUpdate(u app.Update) {
	m.status = "Receiving..."
	if u.Event.Err != nil {
		m.status = "Error: " + u.Event.Err.Error()
	}
	m.viewport.SetContent(m.renderTranscriptOf(u))
	m.viewport.GotoBottom()
	m.sidebar.SetItems(m.app.History(), u.ConversationID)
}

func (m *Model) handleSidebar(msg sidebar.ActionMsg) tea.Cmd {
	switch msg.Action {
	case sidebar.ActionOpen:
		if err := m.app.Load(msg.ID); err != nil {
			m.status = err.Error()
			return nil
		}
		m.gen++
		m.streaming = false
		m.status = "Conversation loaded"
		m.refresh()
		m.toggleFocus()
	case sidebar.ActionNewChat:
		m.newChat()
		m.toggleFocus()
	case sidebar.ActionDelete:
		m.askDelete(msg.ID)
	}
	return nil
}

func (m *Model) askDelete(id string) {
	m.confirm = dialogs.NewConfirmationModal("Delete this conversation?",
		dialogs.ModalOption{Label: "Delete", OnSelect: func() tea.Cmd {
			return func() tea.Msg { return deleteConfirmedMsg{id: id} }
		}},
		dialogs.ModalOption{Label: "Cancel"},
	)
}

func (m *Model) newChat() {
	m.app.NewChat()
	m.gen++
	m.streaming = false
	m.status = "New conversation"
	m.refresh()
}

func (m *Model) copyLastAnswer() tea.Cmd {
	answer, ok := chatwindow.LastAnswer(m.app.Messages())
	if !ok {
		m.status = "No answer to copy"
		return nil
	}
	copyFn := m.copy
	return func() tea.Msg {
		if err := copyFn(answer); err != nil {
			return statusMsg("Copy failed: " + err.Error())
		}
		return statusMsg("Copied last answer to clipboard")
	}
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusSidebar
		m.sidebar.Focused = true
		m.input.Blur()
		return
	}
	m.focus = focusInput
	m.sidebar.Focused = false
	m.input.Focus()
}

func (m *Model) quit() tea.Cmd {
	m.app.Cancel()
	m.quitting = true
	return tea.Quit
}

// listen waits for the next update on ch.
func listen(ch <-chan app.Update, gen int) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return streamClosedMsg{gen: gen}
		}
		return streamUpdateMsg{gen: gen, update: u, ch: ch}
	}
}

const helpText = `Enter      send message
Esc        stop the answer being streamed
Tab        switch between input and history
Ctrl+N     new conversation
Ctrl+Y     copy the last answer
PgUp/PgDn  scroll the transcript
Ctrl+C     quit

History:   Up/Down select, Enter open, d delete, n new chat

Commands:  :n new chat  :d delete current  :y copy  :h help  :q quit`
