package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha, the subset the editor chrome uses.
const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorSky      lipgloss.Color = "#89dceb"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorMauve    lipgloss.Color = "#cba6f7"
	colorPink     lipgloss.Color = "#f5c2e7"
	colorLavender lipgloss.Color = "#b4befe"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay0 lipgloss.Color = "#6c7086"
	colorSurface1 lipgloss.Color = "#45475a"
	colorSurface0 lipgloss.Color = "#313244"
	colorBase     lipgloss.Color = "#1e1e2e"
)

const (
	colorAccent  = colorPink
	colorError   = colorRed
	colorWarning = colorYellow
	colorSuccess = colorGreen
)

// strokeColors maps the colour names used by annotation styles onto the
// palette. Anything else is passed to lipgloss as is (hex or ANSI index).
var strokeColors = map[string]lipgloss.Color{
	"red":     colorRed,
	"orange":  colorPeach,
	"yellow":  colorYellow,
	"green":   colorGreen,
	"teal":    colorTeal,
	"cyan":    colorSky,
	"blue":    colorBlue,
	"purple":  colorMauve,
	"magenta": colorPink,
	"white":   colorText,
	"gray":    colorOverlay0,
}

func strokeColor(name string) lipgloss.Color {
	if c, ok := strokeColors[strings.ToLower(name)]; ok {
		return c
	}
	if name == "" {
		return colorText
	}
	return lipgloss.Color(name)
}

var (
	toolbarStyle  = lipgloss.NewStyle().Foreground(colorSubtext0).Background(colorSurface0)
	buttonStyle   = lipgloss.NewStyle().Foreground(colorSubtext0).Padding(0, 1)
	buttonOnStyle = lipgloss.NewStyle().Foreground(colorBase).Background(colorAccent).Bold(true).Padding(0, 1)
	statusStyle   = lipgloss.NewStyle().Foreground(colorSubtext0)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	warnStyle     = lipgloss.NewStyle().Foreground(colorWarning)
	okStyle       = lipgloss.NewStyle().Foreground(colorSuccess)
	footerKey     = lipgloss.NewStyle().Foreground(colorLavender).Bold(true)
	footerDesc    = lipgloss.NewStyle().Foreground(colorOverlay0)
	backdropStyle = lipgloss.NewStyle().Foreground(colorSurface1)
)
