package confirm

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/log-hound/internal/ui"
)

// ResultMsg is sent once the dialog closes.
type ResultMsg struct {
	Confirmed bool
	Action    string
}

// Model is a yes/no dialog. Confirm is preselected so enter accepts.
type Model struct {
	Title    string
	Message  string
	Action   string
	active   bool
	selected bool // true = confirm selected
}

func New(title, message, action string) Model {
	return Model{
		Title:    title,
		Message:  message,
		Action:   action,
		active:   true,
		selected: true,
	}
}

func (m Model) IsActive() bool { return m.active }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) result(ok bool) tea.Cmd {
	action := m.Action
	return func() tea.Msg {
		return ResultMsg{Confirmed: ok, Action: action}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.active {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "y", "Y":
			m.active = false
			return m, m.result(true)
		case "n", "N", "esc":
			m.active = false
			return m, m.result(false)
		case "enter":
			m.active = false
			return m, m.result(m.selected)
		case "tab", "left", "right", "h", "l":
			m.selected = !m.selected
		}
	}
	return m, nil
}

func (m Model) View() string {
	if !m.active {
		return ""
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorWarning).
		Padding(1, 2).
		Width(50)

	title := lipgloss.NewStyle().Bold(true).
		Foreground(ui.ColorWarning).
		Render(m.Title)

	yesStyle := lipgloss.NewStyle().Padding(0, 1)
	noStyle := lipgloss.NewStyle().Padding(0, 1)
	light := lipgloss.Color("#F9FAFB")

	if m.selected {
		yesStyle = yesStyle.Bold(true).Background(ui.ColorSuccess).Foreground(light)
		noStyle = noStyle.Foreground(ui.ColorMuted)
	} else {
		yesStyle = yesStyle.Foreground(ui.ColorMuted)
		noStyle = noStyle.Bold(true).Background(ui.ColorFailure).Foreground(light)
	}

	content := fmt.Sprintf("%s\n\n%s\n\n%s  %s\n\ny/n to confirm, esc to cancel",
		title, m.Message,
		yesStyle.Render("Yes"), noStyle.Render("No"))

	return style.Render(content)
}
