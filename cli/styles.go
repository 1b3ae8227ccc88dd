package cli

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA066"))
	sectionStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#FFA066"))
	commandStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7E9CD8"))
	flagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#957FB8"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#727169"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E46876"))
	italicStyle  = lipgloss.NewStyle().Italic(true)
)
