package sidebar

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"difychat/src/models"
)

func items() []models.StoredConversation {
	now := time.Now().UnixMilli()
	return []models.StoredConversation{
		{ID: "c2", Title: "second", UpdatedAt: now},
		{ID: "c1", Title: "first", UpdatedAt: now - 60_000},
	}
}

func press(s *Model, key string) tea.Msg {
	var msg tea.KeyMsg
	switch key {
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	cmd := s.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestSidebarNavigation(t *testing.T) {
	s := New()
	s.SetItems(items(), "c1")
	assert.Equal(t, 2, s.Selected, "new chat entry selected by default")

	assert.Nil(t, press(s, "down"), "unfocused sidebar ignores keys")
	s.Focused = true

	press(s, "down")
	assert.Equal(t, 0, s.Selected)
	press(s, "up")
	assert.Equal(t, 2, s.Selected)
	press(s, "up")
	assert.Equal(t, "c1", s.SelectedID())

	assert.Equal(t, ActionMsg{Action: ActionOpen, ID: "c1"}, press(s, "enter"))
	assert.Equal(t, ActionMsg{Action: ActionDelete, ID: "c1"}, press(s, "d"))
	assert.Equal(t, ActionMsg{Action: ActionNewChat}, press(s, "n"))

	press(s, "down")
	assert.Equal(t, ActionMsg{Action: ActionNewChat}, press(s, "enter"))
	assert.Nil(t, press(s, "d"))
}

func TestSetItemsKeepsSelection(t *testing.T) {
	s := New()
	s.SetItems(items(), "")
	s.Selected = 1

	reordered := items()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	s.SetItems(reordered, "c1")
	assert.Equal(t, 0, s.Selected)

	s.SetItems(reordered[1:], "")
	assert.Equal(t, 1, s.Selected)
}

func TestSidebarView(t *testing.T) {
	s := New()
	s.SetItems(items(), "c2")
	out := s.View()
	require.Contains(t, out, "History")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "minute ago")
	assert.Contains(t, out, "[+] New Chat")

	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "short", truncate("short", 10))
}
