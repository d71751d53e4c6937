// package tui provides the terminal progress view for Stagehand.
// This file defines the shared lipgloss styles used by the progress view.
package tui // import "github.com/stagehand/stagehand/internal/tui"

import "github.com/charmbracelet/lipgloss"

// colorPalette defines the core colors used in the TUI.
const (
	colorSubtle    = lipgloss.Color("240") // Muted gray
	colorHighlight = lipgloss.Color("81")  // A nice teal/cyan
	colorSpecial   = lipgloss.Color("208") // An orange for special attention
	colorError     = lipgloss.Color("196") // A bright red
	colorSuccess   = lipgloss.Color("40")  // A nice green
)

var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Foreground(colorSubtle)

	okStyle      = lipgloss.NewStyle().Foreground(colorSuccess)
	failStyle    = lipgloss.NewStyle().Foreground(colorError)
	skipStyle    = lipgloss.NewStyle().Foreground(colorSpecial)
	pendingStyle = lipgloss.NewStyle().Foreground(colorSubtle)
	detailStyle  = lipgloss.NewStyle().Foreground(colorSubtle).PaddingLeft(2)
)
