package browse

import "github.com/charmbracelet/lipgloss"

// listMinWidth is the narrowest the contact list pane is drawn.
const listMinWidth = 30

var (
	accent = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	dim    = lipgloss.AdaptiveColor{Light: "240", Dark: "240"}

	mutedText = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	labelText = lipgloss.NewStyle().Bold(true).Foreground(accent)
	errorText = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
	warnText  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
)

// paneStyle is the rounded frame around a pane; the focused pane gets the
// accent color.
func paneStyle(focused bool) lipgloss.Style {
	color := dim
	if focused {
		color = accent
	}
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(color)
}

// splitWidth gives the list a third of the terminal, never less than
// listMinWidth, and the detail pane whatever is left.
func splitWidth(total int) (list, detail int) {
	if total <= 0 {
		return 0, 0
	}
	list = max(total/3, listMinWidth)
	return list, max(total-list, 0)
}
