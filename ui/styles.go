package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#626262"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning   = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F55081"}
	caution   = lipgloss.AdaptiveColor{Light: "#C9A227", Dark: "#E5C07B"}

	// Borders
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(subtle).
			Padding(0, 1)

	activePaneStyle = paneStyle.
			BorderForeground(highlight)

	// Text
	titleStyle = lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(subtle).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(subtle)

	// Message levels
	infoStyle  = lipgloss.NewStyle().Foreground(subtle)
	warnStyle  = lipgloss.NewStyle().Foreground(caution)
	errorStyle = lipgloss.NewStyle().Foreground(warning)
	passStyle  = lipgloss.NewStyle().Foreground(special)
)
