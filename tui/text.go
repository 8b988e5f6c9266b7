package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	mutedStyleColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}
	textStyleColor  = lipgloss.AdaptiveColor{Light: "#36EEE0", Dark: "#00FFFF"}
	titleStyleColor = lipgloss.AdaptiveColor{Light: "#071330", Dark: "#F652A0"}
)

func Title(text string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(titleStyleColor).Render(text)
}

func Bold(text string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(textStyleColor).Render(text)
}

func Muted(text string) string {
	return lipgloss.NewStyle().Foreground(mutedStyleColor).Render(text)
}
