package infoview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/ui"
)

// Search describes the query a search was started with.
type Search struct {
	ID        string
	Patterns  []string
	Exclude   []string
	TimeRange model.TimeRange
	Limit     int
	Started   time.Time
}

// Model shows the current search and the state of every log group's job.
type Model struct {
	search   *Search
	statuses []model.TargetStatus
	summary  *model.Summary
	viewport viewport.Model
	width    int
	height   int
	ready    bool
}

func New() Model {
	return Model{}
}

func (m *Model) SetSearch(s Search) {
	m.search = &s
	m.statuses = nil
	m.summary = nil
	m.refresh()
}

// SetStatuses replaces the live job states, in target order.
func (m *Model) SetStatuses(st []model.TargetStatus) {
	m.statuses = st
	m.refresh()
}

func (m *Model) SetSummary(s model.Summary) {
	m.summary = &s
	m.statuses = s.Statuses
	m.refresh()
}

func (m *Model) refresh() {
	if m.ready {
		m.viewport.SetContent(m.render())
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
		m.height = wsm.Height
		headerH := 1
		if !m.ready {
			m.viewport = viewport.New(wsm.Width, max(wsm.Height-headerH, 1))
			m.ready = true
			m.viewport.SetContent(m.render())
		} else {
			m.viewport.Width = wsm.Width
			m.viewport.Height = max(wsm.Height-headerH, 1)
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.search == nil {
		return "\n  No search yet"
	}

	pct := m.viewport.ScrollPercent() * 100
	header := fmt.Sprintf(" Search info  %3.0f%%", pct)
	hints := lipgloss.NewStyle().Foreground(ui.ColorMuted).Render(
		"  j/k:scroll  g/G:top/bot  PgUp/Dn:page  i/esc:back")
	headerLine := lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.Color("#F9FAFB")).
		Render(header) + hints

	return headerLine + "\n" + m.viewport.View()
}

func (m Model) render() string {
	if m.search == nil {
		return "  No search yet"
	}

	s := m.search
	bold := lipgloss.NewStyle().Bold(true)
	label := lipgloss.NewStyle().Foreground(ui.ColorMuted).Width(16)
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("#F9FAFB"))

	row := func(l, v string) string {
		return "  " + label.Render(l) + value.Render(v) + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(row("Search", s.ID))
	b.WriteString(row("Patterns", strings.Join(s.Patterns, " AND ")))
	if len(s.Exclude) > 0 {
		b.WriteString(row("Exclude", strings.Join(s.Exclude, ", ")))
	}
	b.WriteString(row("From", formatTime(s.TimeRange.Start)))
	b.WriteString(row("To", formatTime(s.TimeRange.End)))
	b.WriteString(row("Limit", fmt.Sprint(s.Limit)))
	b.WriteString(row("Started", formatTime(s.Started)))
	b.WriteString("\n")

	if sum := m.summary; sum != nil {
		b.WriteString("  " + bold.Render("Results") + "\n\n")
		b.WriteString(row("Emitted", fmt.Sprint(sum.Emitted)))
		b.WriteString(row("Excluded", fmt.Sprint(sum.DroppedExcluded)))
		b.WriteString(row("Over limit", fmt.Sprint(sum.DroppedLimit)))
		b.WriteString("\n")
	}

	b.WriteString("  " + bold.Render("Log groups") + "\n\n")
	if len(m.statuses) == 0 {
		b.WriteString("  " + ui.StyleMuted.Render("Waiting for jobs...") + "\n")
		return b.String()
	}

	counts := map[model.JobState]int{}
	for _, st := range m.statuses {
		counts[st.State]++
	}
	parts := []string{fmt.Sprintf("%d total", len(m.statuses))}
	for _, state := range []model.JobState{
		model.JobSucceeded, model.JobRunning, model.JobSubmitted, model.JobPending,
		model.JobFailed, model.JobTimedOut, model.JobCancelled,
	} {
		if n := counts[state]; n > 0 {
			parts = append(parts, ui.StateStyle(state).Render(fmt.Sprintf("%d %s", n, state)))
		}
	}
	b.WriteString("  " + strings.Join(parts, ", ") + "\n\n")

	for _, st := range m.statuses {
		name := st.Target.String()
		suffix := ""
		switch st.State {
		case model.JobFailed, model.JobTimedOut:
			name = ui.StyleFailure.Render(name)
		case model.JobRunning, model.JobSubmitted:
			name = ui.StyleInfo.Render(name)
		}
		if st.Reason != "" {
			suffix = ui.StateStyle(st.State).Render("  " + st.Reason)
		}
		fmt.Fprintf(&b, "  %s %-48s %6d records  %d attempts%s\n",
			ui.StateIcon(st.State), name, st.Records, st.Attempts, suffix)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
