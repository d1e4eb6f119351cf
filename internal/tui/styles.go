package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/orphanbars/realtime/internal/connection"
)

// UI colors.
var (
	colorHealthy  = lipgloss.Color("#22c55e")
	colorDegraded = lipgloss.Color("#d97706")
	colorDown     = lipgloss.Color("#dc2626")
	colorDimmed   = lipgloss.Color("#6b7280")
	colorBright   = lipgloss.Color("#f9fafb")
	colorBanner   = lipgloss.Color("#92400e")
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorBright)
	styleDimmed = lipgloss.NewStyle().Foreground(colorDimmed)
	styleBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBright).
			Background(colorBanner).
			Padding(0, 1)
	styleOverlay = lipgloss.NewStyle().Faint(true).Foreground(colorDimmed)
)

func healthStyle(h connection.Health) lipgloss.Style {
	switch h {
	case connection.HealthHealthy:
		return lipgloss.NewStyle().Foreground(colorHealthy)
	case connection.HealthDegraded:
		return lipgloss.NewStyle().Foreground(colorDegraded)
	default:
		return lipgloss.NewStyle().Foreground(colorDown)
	}
}
