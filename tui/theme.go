package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	Command   lipgloss.Style
	Stderr    lipgloss.Style
	System    lipgloss.Style
	Footer    lipgloss.Style
	Status    lipgloss.Style
	Running   lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Cursor    lipgloss.Style
	Candidate lipgloss.Style
	Selected  lipgloss.Style
}

func defaultTheme() theme {
	accent := lipgloss.Color("#00E5FF")
	muted := lipgloss.Color("#9AA3B2")
	stderr := lipgloss.Color("#FF5BBD")
	danger := lipgloss.Color("#FF6B6B")
	running := lipgloss.Color("#FABD2F")

	return theme{
		Command: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Stderr: lipgloss.NewStyle().
			Foreground(stderr),
		System: lipgloss.NewStyle().
			Bold(true).
			Foreground(danger),
		Footer: lipgloss.NewStyle().
			Italic(true).
			Faint(true).
			Foreground(muted),
		Status: lipgloss.NewStyle().
			Foreground(muted),
		Running: lipgloss.NewStyle().
			Foreground(running),
		Error: lipgloss.NewStyle().
			Foreground(danger),
		Prompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Cursor: lipgloss.NewStyle().
			Reverse(true),
		Candidate: lipgloss.NewStyle().
			Foreground(muted),
		Selected: lipgloss.NewStyle().
			Reverse(true).
			Foreground(accent),
	}
}
