package logview

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/altinukshini/log-hound/internal/model"
)

func entries(msgs ...string) []model.Entry {
	base := time.Date(2026, 1, 23, 5, 0, 0, 0, time.UTC)
	t := model.Target{Region: "us-east-1", SourceName: "/ecs/api"}
	out := make([]model.Entry, len(msgs))
	for i, m := range msgs {
		out[i] = model.Entry{Timestamp: base.Add(time.Duration(i) * time.Second), Target: t, Raw: m}
	}
	return out
}

func sized() Model {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	return m
}

func TestAppendRendersEntries(t *testing.T) {
	m := sized()
	m.Reset([]string{"error"})
	m.Append(entries("ERROR one", "warn two"))

	if m.Count() != 2 {
		t.Fatalf("Count = %d, want 2", m.Count())
	}
	view := m.View()
	for _, want := range []string{"2 results", "[us-east-1:api]", "one", "warn two", "01-23 05:00:01.000"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestEmptyFeed(t *testing.T) {
	m := sized()
	if !strings.Contains(m.View(), "No results yet") {
		t.Errorf("expected placeholder, got:\n%s", m.View())
	}
}

func TestFilterRefinesFetchedEntries(t *testing.T) {
	m := sized()
	m.Append(entries("GET /health 200", "POST /orders 500", "GET /orders 200"))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !m.IsFiltering() {
		t.Fatal("expected filter input after /")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("orders")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.IsFiltering() {
		t.Error("filter input should close on enter")
	}
	if m.VisibleCount() != 2 {
		t.Errorf("VisibleCount = %d, want 2", m.VisibleCount())
	}
	if strings.Contains(m.View(), "health") {
		t.Error("filtered entry still shown")
	}

	// New entries are filtered as they arrive.
	m.Append(entries("GET /health 200", "DELETE /orders 204"))
	if m.Count() != 5 || m.VisibleCount() != 3 {
		t.Errorf("Count, VisibleCount = %d, %d; want 5, 3", m.Count(), m.VisibleCount())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.VisibleCount() != 5 {
		t.Errorf("esc should clear the filter, VisibleCount = %d", m.VisibleCount())
	}
}

func TestRegexFilter(t *testing.T) {
	m := sized()
	m.Append(entries("status=200", "status=503", "status=504"))
	m.applyFilter(`/status=50\d`)
	if m.VisibleCount() != 2 {
		t.Errorf("VisibleCount = %d, want 2", m.VisibleCount())
	}
}

func TestResetClearsFeed(t *testing.T) {
	m := sized()
	m.Append(entries("a", "b"))
	m.Reset(nil)
	if m.Count() != 0 || m.VisibleCount() != 0 {
		t.Errorf("Reset left %d/%d entries", m.Count(), m.VisibleCount())
	}
}

func TestTargetColorsAreStable(t *testing.T) {
	m := New()
	a := model.Target{Region: "us-east-1", SourceName: "a"}
	b := model.Target{Region: "us-east-1", SourceName: "b"}
	ca, cb := m.colorFor(a), m.colorFor(b)
	if ca == cb {
		t.Error("distinct targets should get distinct colors")
	}
	if m.colorFor(a) != ca {
		t.Error("color changed for the same target")
	}
}
