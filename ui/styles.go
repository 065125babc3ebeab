package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

const ellipsis = "…"

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	dimFg     = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	barBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}
	red       = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}
	yellow    = lipgloss.Color("214")

	chapterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B6FFE4")).
			Background(darkGreen).
			Bold(true).
			Padding(0, 1)

	counterStyle = lipgloss.NewStyle().
			Foreground(dimFg).
			Background(barBg).
			Padding(0, 1)

	unitStyle = lipgloss.NewStyle().
			Padding(1, 2)

	toastStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true).
			Padding(0, 2)

	noteStyle = lipgloss.NewStyle().
			Foreground(dimFg).
			Padding(0, 2)
)

func statusIcon(status string) string {
	switch status {
	case "playing":
		return lipgloss.NewStyle().Foreground(mintGreen).Render("▶")
	case "paused":
		return lipgloss.NewStyle().Foreground(yellow).Render("⏸")
	default:
		return lipgloss.NewStyle().Foreground(dimFg).Render("■")
	}
}

// wrapUnit wraps text to width and keeps at most maxLines of it.
func wrapUnit(text string, width, maxLines int) string {
	if width < 2 {
		width = 2
	}
	lines := strings.Split(wordwrap.String(text, width), "\n")
	if maxLines > 0 && len(lines) > maxLines {
		last := truncate.StringWithTail(lines[maxLines-1], uint(width-1), "") //nolint:gosec
		lines = append(lines[:maxLines-1], last+ellipsis)
	}
	return strings.Join(lines, "\n")
}
