// help.go - HelpModal shows static help text in a bordered box.

package dialogs

import "github.com/charmbracelet/lipgloss"

// HelpModal is a reusable modal for displaying help or info content.
type HelpModal struct {
	Title   string
	Content string
}

// ViewRegion renders the modal centered in the given region.
func (m *HelpModal) ViewRegion(regionWidth, regionHeight int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Render(m.Title)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("39")).
		Padding(1, 2).
		Render(title + "\n\n" + m.Content + "\n\nEsc to close")
	return lipgloss.Place(regionWidth, regionHeight, lipgloss.Center, lipgloss.Center, box)
}
