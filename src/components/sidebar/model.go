// model.go - Sidebar listing stored conversations, newest first, with a
// trailing "new chat" entry. Keys only act while the sidebar has focus.

package sidebar

import (
	tea "github.com/charmbracelet/bubbletea"

	"difychat/src/models"
)

// Action is what the sidebar asks the chat view to do.
type Action int

const (
	ActionOpen Action = iota
	ActionNewChat
	ActionDelete
)

// ActionMsg is emitted as a tea.Msg when the user picks an entry.
type ActionMsg struct {
	Action Action
	ID     string
}

// Model holds the history entries and the selection state.
type Model struct {
	Items    []models.StoredConversation
	Selected int // len(Items) selects the new chat entry
	ActiveID string
	Focused  bool
	Width    int
	Height   int
}

func New() *Model {
	return &Model{Width: 30, Height: 20}
}

// SetItems replaces the entries, keeping the selection on the same
// conversation when it still exists.
func (s *Model) SetItems(items []models.StoredConversation, activeID string) {
	var selectedID string
	if s.Selected < len(s.Items) {
		selectedID = s.Items[s.Selected].ID
	}
	s.Items = items
	s.ActiveID = activeID
	s.Selected = len(items)
	for i, c := range items {
		if c.ID == selectedID {
			s.Selected = i
			break
		}
	}
}

// SelectedID returns the conversation under the cursor, or "" on the new
// chat entry.
func (s *Model) SelectedID() string {
	if s.Selected < len(s.Items) {
		return s.Items[s.Selected].ID
	}
	return ""
}

// Update moves the selection and turns enter/d/n into an ActionMsg.
func (s *Model) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !s.Focused {
		return nil
	}
	count := len(s.Items) + 1
	switch key.String() {
	case "up", "k":
		s.Selected = (s.Selected + count - 1) % count
	case "down", "j":
		s.Selected = (s.Selected + 1) % count
	case "home", "g":
		s.Selected = 0
	case "end", "G":
		s.Selected = count - 1
	case "enter":
		if id := s.SelectedID(); id != "" {
			return emit(ActionMsg{Action: ActionOpen, ID: id})
		}
		return emit(ActionMsg{Action: ActionNewChat})
	case "n":
		return emit(ActionMsg{Action: ActionNewChat})
	case "d", "delete":
		if id := s.SelectedID(); id != "" {
			return emit(ActionMsg{Action: ActionDelete, ID: id})
		}
	}
	return nil
}

func emit(msg ActionMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}
