package viz

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Name   string
	Header lipgloss.Color
	Body   lipgloss.Color
	Label  lipgloss.Color
	Value  lipgloss.Color
	Active lipgloss.Color
	Graph  lipgloss.Color
	Muted  lipgloss.Color
	Error  lipgloss.Color
}

var Themes = []Theme{
	{
		Name:   "terminal",
		Header: lipgloss.Color("86"),
		Body:   lipgloss.Color("252"),
		Label:  lipgloss.Color("245"),
		Value:  lipgloss.Color("252"),
		Active: lipgloss.Color("205"),
		Graph:  lipgloss.Color("49"),
		Muted:  lipgloss.Color("240"),
		Error:  lipgloss.Color("196"),
	},
	{
		Name:   "retro",
		Header: lipgloss.Color("#88ff88"),
		Body:   lipgloss.Color("#00ff00"),
		Label:  lipgloss.Color("#00aa00"),
		Value:  lipgloss.Color("#00ff00"),
		Active: lipgloss.Color("#ffff00"),
		Graph:  lipgloss.Color("#00cc00"),
		Muted:  lipgloss.Color("#005500"),
		Error:  lipgloss.Color("#ff0000"),
	},
	{
		Name:   "ocean",
		Header: lipgloss.Color("#00a8cc"),
		Body:   lipgloss.Color("#e0f0ff"),
		Label:  lipgloss.Color("#4488aa"),
		Value:  lipgloss.Color("#e0f0ff"),
		Active: lipgloss.Color("#ffd700"),
		Graph:  lipgloss.Color("#0077be"),
		Muted:  lipgloss.Color("#335577"),
		Error:  lipgloss.Color("#ff4444"),
	},
	{
		Name:   "minimal",
		Header: lipgloss.Color("#ffffff"),
		Body:   lipgloss.Color("#cccccc"),
		Label:  lipgloss.Color("#888888"),
		Value:  lipgloss.Color("#ffffff"),
		Active: lipgloss.Color("#0088ff"),
		Graph:  lipgloss.Color("#aaaaaa"),
		Muted:  lipgloss.Color("#555555"),
		Error:  lipgloss.Color("#ff0000"),
	},
}

// GetTheme falls back to the first theme for unknown names.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the theme after current, wrapping around.
func NextTheme(current string) Theme {
	for i, t := range Themes {
		if t.Name == current {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
