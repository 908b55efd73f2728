// Package chatwindow renders a transcript as chat bubbles for the center
// pane of the terminal UI.
package chatwindow

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mitchellh/go-wordwrap"

	"difychat/src/models"
)

const streamCursor = "▍"

var (
	userLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	botLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	userBubble     = lipgloss.NewStyle().
			Background(lipgloss.Color("238")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	botBubble = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	citationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Options controls how Render lays out messages.
type Options struct {
	Width   int
	Spinner string // shown next to the label of a streaming message
}

// Render draws every message in order, separated by a blank line.
func Render(messages []models.Message, opts Options) string {
	if len(messages) == 0 {
		return "No messages yet..."
	}
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, RenderMessage(m, opts))
	}
	return strings.Join(parts, "\n\n")
}

// RenderMessage draws a single bubble with its label and citations.
func RenderMessage(m models.Message, opts Options) string {
	width := opts.Width
	if width < 20 {
		width = 20
	}
	bubbleWidth := width * 3 / 4
	// bubble border and padding take six columns
	textWidth := bubbleWidth - 6
	if textWidth < 10 {
		textWidth = 10
	}

	body := m.Content
	if m.IsStreaming {
		body += streamCursor
	}
	body = wordwrap.WrapString(body, uint(textWidth))
	if cites := RenderCitations(m.Citations, textWidth); cites != "" {
		body += "\n\n" + cites
	}

	stamp := timeStyle.Render(m.Time().Format("15:04"))
	if m.Role == models.RoleUser {
		label := userLabelStyle.Render("You") + " " + stamp
		bubble := userBubble.Width(bubbleWidth).Render(body)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, lipgloss.JoinVertical(lipgloss.Right, label, bubble))
	}

	label := botLabelStyle.Render("Assistant") + " " + stamp
	if m.IsStreaming && opts.Spinner != "" {
		label += " " + opts.Spinner
	}
	bubble := botBubble.Width(bubbleWidth).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, label, bubble)
}

// RenderCitations lists retrieval sources by document name and score.
func RenderCitations(citations []models.Citation, width int) string {
	if len(citations) == 0 {
		return ""
	}
	lines := []string{"Sources:"}
	for i, c := range citations {
		name := c.DocumentName
		if name == "" {
			name = c.DatasetName
		}
		if name == "" {
			name = "unknown document"
		}
		line := fmt.Sprintf("[%d] %s", i+1, name)
		if c.Score > 0 {
			line += fmt.Sprintf(" (score %.2f)", c.Score)
		}
		lines = append(lines, wordwrap.WrapString(line, uint(width)))
	}
	return citationStyle.Render(strings.Join(lines, "\n"))
}

// LastAnswer returns the content of the most recent finished assistant
// message, skipping greetings that precede any user turn.
func LastAnswer(messages []models.Message) (string, bool) {
	seenUser := false
	answer := ""
	found := false
	for _, m := range messages {
		switch {
		case m.Role == models.RoleUser:
			seenUser = true
		case seenUser && !m.IsStreaming && m.Content != "":
			answer = m.Content
			found = true
		}
	}
	return answer, found
}
