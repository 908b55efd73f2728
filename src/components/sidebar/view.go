package sidebar

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	focusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Background(lipgloss.Color("236")).Bold(true)
	activeStyle   = lipgloss.NewStyle().Bold(true)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	boxFocusStyle = boxStyle.BorderForeground(lipgloss.Color("33"))
)

// View renders the history list. Entries that do not fit the height are
// scrolled so the selection stays visible.
func (s *Model) View() string {
	inner := s.Width - 4
	if inner < 10 {
		inner = 10
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("History") + "\n")
	b.WriteString(strings.Repeat("-", inner) + "\n")

	rows := make([]string, 0, len(s.Items)+1)
	for i, c := range s.Items {
		marker := "  "
		style := lipgloss.NewStyle()
		if c.ID == s.ActiveID {
			marker = "● "
			style = activeStyle
		}
		if s.Focused && i == s.Selected {
			style = focusedStyle
		}
		title := truncate(c.Title, inner-2)
		when := timeStyle.Render("  " + humanize.Time(c.Updated()))
		rows = append(rows, marker+style.Render(title)+"\n"+when)
	}
	newChat := "[+] New Chat"
	if s.Focused && s.Selected == len(s.Items) {
		newChat = focusedStyle.Render(newChat)
	}
	rows = append(rows, newChat)

	// each conversation row is two lines
	visible := (s.Height - 4) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if s.Selected >= visible {
		start = s.Selected - visible + 1
	}
	end := start + visible
	if end > len(rows) {
		end = len(rows)
	}
	b.WriteString(strings.Join(rows[start:end], "\n"))

	style := boxStyle
	if s.Focused {
		style = boxFocusStyle
	}
	return style.Width(s.Width - 2).Height(s.Height - 2).Render(b.String())
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max < 1 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
