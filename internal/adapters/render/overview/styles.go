package overview

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	craving    lipgloss.Style
	lobby      lipgloss.Style
	detail     lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	countKey   lipgloss.Style
	countValue lipgloss.Style
	badge      lipgloss.Style
	author     lipgloss.Style
	resonated  lipgloss.Style
	faint      lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		craving:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		lobby:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		countKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		countValue: lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		badge:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		author:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		resonated:  lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		faint:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}
