package searchview

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/log-hound/internal/ui"
)

type Field int

const (
	FieldPatterns Field = iota
	FieldExclude
	FieldGroups
	fieldCount
)

var TimeRanges = []string{"5m", "15m", "30m", "1h", "2h", "6h", "12h", "1d", "3d", "1w"}

var Limits = []int{100, 500, 1000, 5000, 10000}

var completeKey = key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("C-f", "complete group"))

// Query is what the form asks for.
type Query struct {
	Patterns []string
	Exclude  []string
	Groups   []string
	Last     string
	Limit    int
}

// Model is the search form: patterns, exclusions and log groups, plus a
// time range and a limit picked from fixed choices.
type Model struct {
	inputs   [fieldCount]textinput.Model
	focus    Field
	rangeIdx int
	limitIdx int
	known    []string
	width    int
	active   bool
}

func New(groups []string, last string, limit int) Model {
	var m Model
	placeholders := [fieldCount]string{
		"ERROR, user_id=123 (comma separated, all must match)",
		"health-check, ping (comma separated)",
		"app/prod, eu-west-1:api/prod",
	}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 512
		m.inputs[i] = ti
	}
	m.inputs[FieldGroups].SetValue(strings.Join(groups, ", "))

	m.rangeIdx = indexOf(TimeRanges, last, 3)
	m.limitIdx = 0
	for i, l := range Limits {
		if l == limit {
			m.limitIdx = i
		}
	}
	return m
}

func indexOf(vals []string, v string, fallback int) int {
	for i, x := range vals {
		if x == v {
			return i
		}
	}
	return fallback
}

func (m *Model) Activate() {
	m.active = true
	m.inputs[m.focus].Focus()
}

func (m *Model) Deactivate() {
	m.active = false
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

func (m Model) IsActive() bool {
	return m.active
}

func (m Model) Focused() Field {
	return m.focus
}

// SetKnownGroups sets the log-group names offered for completion.
func (m *Model) SetKnownGroups(groups []string) {
	m.known = groups
}

func (m Model) Query() Query {
	return Query{
		Patterns: splitList(m.inputs[FieldPatterns].Value()),
		Exclude:  splitList(m.inputs[FieldExclude].Value()),
		Groups:   splitList(m.inputs[FieldGroups].Value()),
		Last:     TimeRanges[m.rangeIdx],
		Limit:    Limits[m.limitIdx],
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Matches returns the known groups that start with the token being typed in
// the groups field.
func (m Model) Matches(n int) []string {
	val := m.inputs[FieldGroups].Value()
	token := strings.TrimSpace(val[strings.LastIndex(val, ",")+1:])
	if token == "" {
		return nil
	}
	var out []string
	for _, g := range m.known {
		if strings.HasPrefix(g, token) && g != token {
			out = append(out, g)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

func (m *Model) setFocus(f Field) {
	m.inputs[m.focus].Blur()
	m.focus = (f + fieldCount) % fieldCount
	m.inputs[m.focus].Focus()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.active {
			return m, nil
		}
		switch {
		case key.Matches(msg, ui.Keys.Tab):
			m.setFocus(m.focus + 1)
			return m, textinput.Blink
		case key.Matches(msg, ui.Keys.ShiftTab):
			m.setFocus(m.focus - 1)
			return m, textinput.Blink
		case key.Matches(msg, ui.Keys.TimeRange):
			m.rangeIdx = (m.rangeIdx + 1) % len(TimeRanges)
			return m, nil
		case key.Matches(msg, ui.Keys.Limit):
			m.limitIdx = (m.limitIdx + 1) % len(Limits)
			return m, nil
		case key.Matches(msg, completeKey) && m.focus == FieldGroups:
			if matches := m.Matches(1); len(matches) == 1 {
				val := m.inputs[FieldGroups].Value()
				head := val[:strings.LastIndex(val, ",")+1]
				if head != "" {
					head += " "
				}
				m.inputs[FieldGroups].SetValue(head + matches[0])
				m.inputs[FieldGroups].CursorEnd()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		for i := range m.inputs {
			m.inputs[i].Width = max(msg.Width-16, 10)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) View() string {
	labels := [fieldCount]string{"Patterns", "Exclude", "Groups"}
	label := lipgloss.NewStyle().Width(10)
	focused := label.Foreground(ui.ColorPrimary).Bold(true)

	var b strings.Builder
	for i := range m.inputs {
		l := label.Render(labels[i])
		if m.active && Field(i) == m.focus {
			l = focused.Render(labels[i])
		}
		b.WriteString(" " + l + " " + m.inputs[i].View() + "\n")
	}
	if m.active && m.focus == FieldGroups {
		if matches := m.Matches(5); len(matches) > 0 {
			b.WriteString(ui.StyleMuted.Render("            "+strings.Join(matches, "  ")) + "\n")
		}
	}
	fmt.Fprintf(&b, " %s %s   %s %s",
		label.Render("Time"), ui.StyleTarget.Render("last "+TimeRanges[m.rangeIdx]),
		ui.StyleMuted.Render("Limit"), ui.StyleTarget.Render(strconv.Itoa(Limits[m.limitIdx])))
	return b.String()
}
