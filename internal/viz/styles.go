package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	canvas lipgloss.Style
	stats  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	active lipgloss.Style
	graph  lipgloss.Style
	help   lipgloss.Style
	err    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas: lipgloss.NewStyle().Padding(1, 2).Foreground(t.Body),
		stats: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(46),
		header: lipgloss.NewStyle().Foreground(t.Header).Bold(true).MarginBottom(1),
		label:  lipgloss.NewStyle().Foreground(t.Label).Width(12),
		value:  lipgloss.NewStyle().Foreground(t.Value),
		active: lipgloss.NewStyle().Foreground(t.Active).Bold(true),
		graph:  lipgloss.NewStyle().Foreground(t.Graph).Padding(1, 0),
		help:   lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		err:    lipgloss.NewStyle().Foreground(t.Error).Bold(true),
	}
}

// Bar renders ratio in [0, 1] as a fixed-width gauge.
func Bar(ratio float64, width int) string {
	if ratio > 1 {
		ratio = 1
	} else if !(ratio > 0) {
		ratio = 0
	}
	filled := int(ratio * float64(width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}
