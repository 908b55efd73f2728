// confirmation.go - ConfirmationModal asks a yes/no style question with 1-3 options.
// Left/right move the selection, enter selects, esc cancels.

package dialogs

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ModalOption is one choice in a ConfirmationModal.
type ModalOption struct {
	Label    string
	OnSelect func() tea.Cmd
}

// ConfirmationModal is a reusable modal for confirmation dialogs (1-3 options).
type ConfirmationModal struct {
	Message  string
	Options  []ModalOption
	Selected int
	Closed   bool
}

// NewConfirmationModal creates a modal with the given message and options.
// Options beyond the third are dropped.
func NewConfirmationModal(message string, options ...ModalOption) *ConfirmationModal {
	if len(options) > 3 {
		options = options[:3]
	}
	return &ConfirmationModal{Message: message, Options: options}
}

// Update handles a key and returns the command of the chosen option, if any.
// The modal marks itself Closed on enter or esc.
func (m *ConfirmationModal) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.Closed || len(m.Options) == 0 {
		return nil
	}
	switch key.String() {
	case "left", "h":
		m.Selected = (m.Selected + len(m.Options) - 1) % len(m.Options)
	case "right", "l", "tab":
		m.Selected = (m.Selected + 1) % len(m.Options)
	case "enter":
		m.Closed = true
		if opt := m.Options[m.Selected]; opt.OnSelect != nil {
			return opt.OnSelect()
		}
	case "esc":
		m.Closed = true
	}
	return nil
}

// ViewRegion renders the modal centered in the given region.
func (m *ConfirmationModal) ViewRegion(regionWidth, regionHeight int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("245")).
		Padding(1, 4).
		Align(lipgloss.Center)

	msg := lipgloss.NewStyle().Bold(true).Render(m.Message)
	var opts string
	for i, opt := range m.Options {
		style := lipgloss.NewStyle().Padding(0, 2)
		if i == m.Selected {
			style = style.Bold(true).Foreground(lipgloss.Color("33")).Background(lipgloss.Color("236"))
		}
		opts += style.Render(opt.Label)
	}
	box := boxStyle.Render(msg + "\n\n" + opts)
	return lipgloss.Place(regionWidth, regionHeight, lipgloss.Center, lipgloss.Center, box)
}
