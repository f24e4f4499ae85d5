package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/log-hound/internal/ui"
)

// RenderHeader shows the AWS profile and default region on the left and the
// current search id on the right.
func RenderHeader(profile, region, searchID string, width int) string {
	who := region
	if profile != "" {
		who = profile + "@" + region
	}
	left := lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.Color("#F9FAFB")).
		Render(fmt.Sprintf(" log-hound | %s", who))

	right := ""
	if searchID != "" {
		short := searchID
		if len(short) > 8 {
			short = short[:8]
		}
		right = lipgloss.NewStyle().Foreground(ui.ColorMuted).
			Render("search " + short + " ")
	}

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	padding := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.NewStyle().
		Background(ui.ColorHighlight).
		Width(width).
		Render(left + padding + right)
}
