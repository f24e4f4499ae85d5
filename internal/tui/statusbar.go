package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/ui"
)

func RenderStatusBar(status, hints string, width int) string {
	left := lipgloss.NewStyle().Foreground(ui.ColorMuted).Render("  " + status)

	help := lipgloss.NewStyle().Foreground(ui.ColorMuted).
		Render(hints + " ")

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(help), 0)
	padding := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.NewStyle().
		Background(lipgloss.Color("#111827")).
		Width(width).
		Render(left + padding + help)
}

// progressStatus renders the job counters of a running search.
func progressStatus(c progressCounts) string {
	s := fmt.Sprintf("%s %d/%d done", ui.StateIcon(model.JobRunning), c.Done, c.Total)
	if c.Active > 0 {
		s += fmt.Sprintf(", %d running", c.Active)
	}
	if c.Pending > 0 {
		s += fmt.Sprintf(", %d queued", c.Pending)
	}
	if c.Failed > 0 {
		s += ui.StyleFailure.Render(fmt.Sprintf(", %d failed", c.Failed))
	}
	return s
}
