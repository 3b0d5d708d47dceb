package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Emoji    lipgloss.Style
	Box      lipgloss.Style
	Help     lipgloss.Style
}

func defaultStyles() styles {
	primary := lipgloss.Color("#7C3AED")
	muted := lipgloss.Color("#6C7086")
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(primary).MarginBottom(1),
		Subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CDD6F4")).Background(primary),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Emoji:    lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(1, 2),
		Help: lipgloss.NewStyle().Foreground(muted).MarginTop(1),
	}
}
