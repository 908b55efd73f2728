package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"

	"difychat/src/app"
	"difychat/src/components/chatwindow"
)

const (
	sidebarWidth    = 32
	minSidebarWidth = 90 // below this terminal width the sidebar is hidden
	bannerMinHeight = 34
	inputHeight     = 3
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	inputStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	inputFocusStyle = inputStyle.BorderForeground(lipgloss.Color("63"))

	banner = strings.TrimRight(figure.NewFigure("Dify Chat", "", true).String(), "\n")
)

func (m *Model) showSidebar() bool {
	return m.width >= minSidebarWidth
}

func (m *Model) mainWidth() int {
	if m.showSidebar() {
		return m.width - sidebarWidth
	}
	return m.width
}

func (m *Model) headerHeight() int {
	if m.height >= bannerMinHeight {
		return strings.Count(banner, "\n") + 2
	}
	return 1
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.ready = true
	m.sidebar.Width = sidebarWidth
	m.sidebar.Height = height
	m.viewport.Width = m.mainWidth()
	// header, status line and input box with its border
	vh := height - m.headerHeight() - 1 - (inputHeight + 2)
	if vh < 3 {
		vh = 3
	}
	m.viewport.Height = vh
	m.input.Width = m.mainWidth() - 8
	m.refresh()
}

// refresh redraws the transcript and the history list from app state.
func (m *Model) refresh() {
	m.refreshTranscript()
	m.viewport.GotoBottom()
	m.sidebar.SetItems(m.app.History(), m.app.ConversationID())
}

func (m *Model) refreshTranscript() {
	m.viewport.SetContent(chatwindow.Render(m.app.Messages(), m.renderOptions()))
}

func (m *Model) renderTranscriptOf(u app.Update) string {
	return chatwindow.Render(u.Messages, m.renderOptions())
}

func (m *Model) renderOptions() chatwindow.Options {
	return chatwindow.Options{Width: m.mainWidth() - 2, Spinner: m.spinner.View()}
}

func (m *Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.help != nil {
		return m.help.ViewRegion(m.width, m.height)
	}
	if m.confirm != nil {
		return m.confirm.ViewRegion(m.width, m.height)
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatus(),
	)
	if !m.showSidebar() {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
}

func (m *Model) renderHeader() string {
	title := "New conversation"
	if id := m.app.ConversationID(); id != "" {
		title = "Conversation " + id
	}
	line := titleStyle.Render(fmt.Sprintf("Dify Chat | %s | %d messages", title, len(m.app.Messages())))
	if m.height >= bannerMinHeight {
		return bannerStyle.Render(banner) + "\n" + line
	}
	return line
}

func (m *Model) renderInput() string {
	style := inputStyle
	if m.focus == focusInput {
		style = inputFocusStyle
	}
	content := m.input.View()
	if m.streaming {
		content = m.spinner.View() + " Waiting for response... (Esc to stop)\n" + content
	}
	return style.Width(m.mainWidth() - 2).Height(inputHeight).Render(content)
}

func (m *Model) renderStatus() string {
	hints := "Tab: history | Ctrl+N: new | Ctrl+Y: copy | :h help | Ctrl+C: quit"
	status := m.status
	if strings.HasPrefix(status, "Error") || strings.HasSuffix(status, "failed") {
		return errorStyle.Render(status) + statusStyle.Render(" | "+hints)
	}
	return statusStyle.Render(status + " | " + hints)
}
