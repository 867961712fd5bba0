package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorRed    = lipgloss.Color("#FF4D4F")
	colorYellow = lipgloss.Color("#FFB020")
	colorGreen  = lipgloss.Color("#26D07C")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorWhite  = lipgloss.Color("#F8F8F2")
	colorGray   = lipgloss.Color("#6272A4")
	colorAmber  = lipgloss.Color("#FFE7C2")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	bannerYesStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRed).
			Foreground(colorRed).
			Bold(true).
			Padding(0, 2)

	bannerNoStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGreen).
			Foreground(colorGreen).
			Bold(true).
			Padding(0, 2)

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle    = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	amberStyle    = lipgloss.NewStyle().Foreground(colorAmber)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#44475A")).Foreground(colorWhite)
	helpStyle     = lipgloss.NewStyle().Foreground(colorGray)
)

func riskStyle(risk float64) lipgloss.Style {
	switch {
	case risk >= 0.70:
		return critStyle
	case risk >= 0.35:
		return warnStyle
	default:
		return okStyle
	}
}
