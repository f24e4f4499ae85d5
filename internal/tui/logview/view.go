package logview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/search"
	"github.com/altinukshini/log-hound/internal/ui"
)

// Model is the live result feed. Entries are appended as batches arrive;
// the view follows the tail unless the user scrolled up.
type Model struct {
	viewport viewport.Model
	entries  []model.Entry
	visible  []model.Entry
	colors   map[model.Target]lipgloss.Color
	hl       *search.Highlighter
	width    int
	height   int
	ready    bool

	// Local refinement of fetched entries
	filterInput textinput.Model
	filtering   bool
	filter      search.Query
}

func New() Model {
	ti := textinput.New()
	ti.Placeholder = "Filter results (/ prefix for regex)"
	ti.CharLimit = 256
	return Model{
		filterInput: ti,
		colors:      make(map[model.Target]lipgloss.Color),
		hl:          search.NewHighlighter(nil),
	}
}

// Reset clears the feed for a new search.
func (m *Model) Reset(patterns []string) {
	m.entries = nil
	m.visible = nil
	m.colors = make(map[model.Target]lipgloss.Color)
	m.hl = search.NewHighlighter(patterns)
	m.refresh(true)
}

func (m *Model) Append(entries []model.Entry) {
	if len(entries) == 0 {
		return
	}
	m.entries = append(m.entries, entries...)
	follow := !m.ready || m.viewport.AtBottom()
	if m.filter.Pattern == "" {
		m.visible = m.entries
	} else {
		m.visible = append(m.visible, search.Filter(entries, m.filter)...)
	}
	m.refresh(follow)
}

func (m Model) Count() int {
	return len(m.entries)
}

func (m Model) VisibleCount() int {
	return len(m.visible)
}

func (m Model) IsFiltering() bool {
	return m.filtering
}

func (m *Model) applyFilter(raw string) {
	q := search.Query{Pattern: raw}
	if len(raw) > 1 && raw[0] == '/' {
		q = search.Query{Pattern: raw[1:], IsRegex: true}
	}
	m.filter = q
	m.visible = search.Filter(m.entries, q)
	m.refresh(false)
	m.viewport.GotoTop()
}

func (m *Model) refresh(follow bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.render())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			switch msg.String() {
			case "enter":
				m.applyFilter(m.filterInput.Value())
				m.filtering = false
				m.filterInput.Blur()
				return m, nil
			case "esc":
				m.filtering = false
				m.filterInput.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			return m, cmd
		}

		switch {
		case key.Matches(msg, ui.Keys.Filter):
			m.filtering = true
			m.filterInput.Focus()
			return m, textinput.Blink
		case key.Matches(msg, ui.Keys.Back) && m.filter.Pattern != "":
			m.filterInput.SetValue("")
			m.applyFilter("")
			return m, nil
		case key.Matches(msg, ui.Keys.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, ui.Keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filterInput.Width = max(msg.Width-6, 10)
		h := max(msg.Height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
			m.viewport.SetContent(m.render())
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) colorFor(t model.Target) lipgloss.Color {
	if c, ok := m.colors[t]; ok {
		return c
	}
	c := ui.TargetPalette[len(m.colors)%len(ui.TargetPalette)]
	m.colors[t] = c
	return c
}

func (m *Model) render() string {
	if len(m.visible) == 0 {
		if len(m.entries) > 0 {
			return ui.StyleMuted.Render("  No entries match the filter")
		}
		return ui.StyleMuted.Render("  No results yet")
	}
	match := func(s string) string { return ui.StyleMatch.Render(s) }
	lines := make([]string, len(m.visible))
	for i, e := range m.visible {
		src := lipgloss.NewStyle().Foreground(m.colorFor(e.Target)).
			Render("[" + e.Target.Region + ":" + e.Target.ShortName() + "]")
		msg := strings.ReplaceAll(strings.TrimRight(e.Raw, "\r\n"), "\n", " ")
		lines[i] = fmt.Sprintf("%s %s %s",
			ui.StyleMuted.Render(e.Timestamp.UTC().Format("01-02 15:04:05.000")),
			src,
			m.hl.Apply(msg, match))
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	header := fmt.Sprintf(" %d results", len(m.entries))
	if m.filter.Pattern != "" {
		header += fmt.Sprintf("  [%d shown, filter %q]", len(m.visible), m.filter.Pattern)
	}
	if m.ready {
		header += fmt.Sprintf("  %3.f%%", m.viewport.ScrollPercent()*100)
	}
	hints := ui.StyleMuted.Render("  /:filter  j/k:line  PgUp/PgDn:page  g/G:top/bot")
	out := lipgloss.NewStyle().Bold(true).Render(header) + hints

	if m.filtering {
		out += "\n  /" + m.filterInput.View()
	} else {
		out += "\n"
	}
	if m.ready {
		out += "\n" + m.viewport.View()
	}
	return out
}
