package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/log-hound/internal/model"
)

var (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorFailure   = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorInfo      = lipgloss.Color("#3B82F6")
	ColorTarget    = lipgloss.Color("#22D3EE")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorBorder    = lipgloss.Color("#374151")
	ColorHighlight = lipgloss.Color("#1F2937")

	StylePane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StylePaneFocused = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9FAFB")).
			Background(ColorPrimary).
			Padding(0, 1)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleFailure = lipgloss.NewStyle().Foreground(ColorFailure)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleTarget  = lipgloss.NewStyle().Foreground(ColorTarget)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)

	StyleMatch = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FCD34D")).
			Background(lipgloss.Color("#78350F"))
)

// TargetPalette colors result lines by target so sources stay apart in a
// merged feed.
var TargetPalette = []lipgloss.Color{
	"#22D3EE", "#A78BFA", "#34D399", "#F472B6", "#FBBF24", "#60A5FA",
}

func StateStyle(state model.JobState) lipgloss.Style {
	switch state {
	case model.JobSucceeded:
		return StyleSuccess
	case model.JobFailed:
		return StyleFailure
	case model.JobTimedOut, model.JobCancelled:
		return StyleWarning
	case model.JobPending:
		return StyleMuted
	default:
		return StyleInfo
	}
}

func StateIcon(state model.JobState) string {
	switch state {
	case model.JobSucceeded:
		return StyleSuccess.Render("V")
	case model.JobFailed:
		return StyleFailure.Render("X")
	case model.JobTimedOut:
		return StyleWarning.Render("T")
	case model.JobCancelled:
		return StyleWarning.Render("!")
	case model.JobRunning, model.JobSubmitted:
		return StyleInfo.Render("*")
	case model.JobPending:
		return StyleMuted.Render("o")
	default:
		return StyleMuted.Render("?")
	}
}
