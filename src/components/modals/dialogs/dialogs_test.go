package dialogs

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

type chosenMsg string

func TestConfirmationModalSelect(t *testing.T) {
	m := NewConfirmationModal("Delete?",
		ModalOption{Label: "Yes", OnSelect: func() tea.Cmd { return func() tea.Msg { return chosenMsg("yes") } }},
		ModalOption{Label: "No"},
	)

	assert.Nil(t, m.Update(tea.KeyMsg{Type: tea.KeyRight}))
	assert.Equal(t, 1, m.Selected)
	assert.Nil(t, m.Update(tea.KeyMsg{Type: tea.KeyRight}))
	assert.Equal(t, 0, m.Selected)
	assert.Nil(t, m.Update(tea.KeyMsg{Type: tea.KeyLeft}))
	assert.Equal(t, 1, m.Selected)
	m.Selected = 0

	cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.Closed)
	if assert.NotNil(t, cmd) {
		assert.Equal(t, chosenMsg("yes"), cmd())
	}
	assert.Nil(t, m.Update(tea.KeyMsg{Type: tea.KeyEnter}))
}

func TestConfirmationModalEsc(t *testing.T) {
	m := NewConfirmationModal("Delete?", ModalOption{Label: "Yes"})
	assert.Nil(t, m.Update(tea.KeyMsg{Type: tea.KeyEsc}))
	assert.True(t, m.Closed)
	assert.Contains(t, m.ViewRegion(40, 10), "Delete?")
}
