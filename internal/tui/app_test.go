package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altinukshini/log-hound/internal/api"
	"github.com/altinukshini/log-hound/internal/api/apitest"
	"github.com/altinukshini/log-hound/internal/config"
	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/orchestrator"
	"github.com/altinukshini/log-hound/internal/ui"
)

var apiTarget = model.Target{Region: "us-east-1", SourceName: "/ecs/api"}

func newTestApp(t *testing.T, backend *apitest.Backend) App {
	t.Helper()
	return newTestAppWithConfig(t, backend, &config.Config{
		DefaultGroups:    []string{"/ecs/api"},
		DefaultTimeRange: "1h",
		DefaultLimit:     100,
	})
}

func newTestAppWithConfig(t *testing.T, backend *apitest.Backend, cfg *config.Config) App {
	t.Helper()
	app := NewApp(cfg, backend, Options{
		Region: "us-east-1",
		Search: []orchestrator.Option{
			orchestrator.WithPollInterval(time.Millisecond, time.Millisecond),
			orchestrator.WithRetryBackoff(time.Millisecond, time.Millisecond),
			orchestrator.WithSubmitSpacing(0),
		},
	})
	return update(t, app, tea.WindowSizeMsg{Width: 120, Height: 30})
}

func update(t *testing.T, app App, msg tea.Msg) App {
	t.Helper()
	m, _ := app.Update(msg)
	return *m.(*App)
}

func typeText(t *testing.T, app App, s string) App {
	t.Helper()
	return update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// pump feeds the current search's stream into the app until it is done.
func pump(t *testing.T, app App) App {
	t.Helper()
	require.NotNil(t, app.search)
	deadline := time.After(5 * time.Second)
	for app.running() {
		msgc := make(chan tea.Msg, 1)
		go func(s *orchestrator.Search) { msgc <- waitBatch(s)() }(app.search)
		select {
		case msg := <-msgc:
			app = update(t, app, msg)
		case <-deadline:
			t.Fatal("search did not finish")
		}
	}
	return app
}

func TestAppSearchStreamsResults(t *testing.T) {
	now := time.Now()
	backend := apitest.New().Script(apiTarget, apitest.Script{
		RunningPolls: 1,
		Records: []api.Record{
			apitest.Rec(now.Add(-2*time.Minute), "ERROR db timeout"),
			apitest.Rec(now.Add(-time.Minute), "ERROR cache miss"),
		},
	})
	app := newTestApp(t, backend)
	assert.Equal(t, PaneForm, app.focused)

	app = typeText(t, app, "ERROR")
	app = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, app.search)
	assert.Equal(t, PaneResults, app.focused)
	assert.Equal(t, []model.Target{apiTarget}, app.search.Targets())

	app = pump(t, app)
	require.NotNil(t, app.summary)
	assert.Equal(t, 2, app.summary.Emitted)
	assert.Equal(t, 2, app.feed.Count())
	assert.Contains(t, app.status, "2 results")

	view := app.View()
	assert.Contains(t, view, "db timeout")
	assert.Contains(t, view, "[us-east-1:api]")
}

func TestAppRequiresPattern(t *testing.T) {
	backend := apitest.New()
	app := newTestApp(t, backend)

	app = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, app.search)
	assert.Contains(t, app.status, "pattern")
	assert.Empty(t, backend.Submitted())
}

func TestAppIgnoresStaleMessages(t *testing.T) {
	app := newTestApp(t, apitest.New())

	app = update(t, app, ui.BatchMsg{SearchID: "old", Batch: model.EntryBatch{
		Entries: []model.Entry{{Target: apiTarget, Raw: "stale"}},
	}})
	assert.Equal(t, 0, app.feed.Count())

	app = update(t, app, ui.SearchDoneMsg{SearchID: "old"})
	assert.Nil(t, app.summary)
}

func TestAppCancelKey(t *testing.T) {
	backend := apitest.New().Script(apiTarget, apitest.Script{Hang: true})
	app := newTestApp(t, backend)

	app = typeText(t, app, "ERROR")
	app = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, app.running())

	app = update(t, app, tea.KeyMsg{Type: tea.KeyCtrlX})
	app = pump(t, app)

	require.Len(t, app.summary.Statuses, 1)
	st := app.summary.Statuses[0]
	assert.Equal(t, model.JobCancelled, st.State)
	assert.Equal(t, orchestrator.ErrInterrupted.Error(), st.Reason)
}

func TestAppResearchCancelsPrevious(t *testing.T) {
	backend := apitest.New().Script(apiTarget, apitest.Script{Hang: true})
	app := newTestApp(t, backend)

	app = typeText(t, app, "ERROR")
	app = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	first := app.search
	require.NotNil(t, first)

	// Back to the form and search again.
	app = update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	require.Equal(t, PaneForm, app.focused)
	app = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, app.search)
	assert.NotEqual(t, first.ID(), app.search.ID())

	sum := first.Wait()
	require.Len(t, sum.Statuses, 1)
	assert.Equal(t, model.JobCancelled, sum.Statuses[0].State)

	app.search.Cancel()
	pump(t, app)
}

func TestAppGroupsLoadedFeedCompletion(t *testing.T) {
	app := newTestAppWithConfig(t, apitest.New(), &config.Config{})
	app = update(t, app, ui.GroupsLoadedMsg{Region: "us-east-1", Groups: []string{"/ecs/api", "/ecs/worker"}})

	// Patterns -> Exclude -> Groups
	app = update(t, app, tea.KeyMsg{Type: tea.KeyTab})
	app = update(t, app, tea.KeyMsg{Type: tea.KeyTab})
	app = typeText(t, app, "/ecs/w")
	assert.Equal(t, []string{"/ecs/worker"}, app.form.Matches(5))

	app = update(t, app, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.Equal(t, []string{"/ecs/worker"}, app.form.Query().Groups)
}

func TestAppNoGroups(t *testing.T) {
	backend := apitest.New()
	app := newTestAppWithConfig(t, backend, &config.Config{})
	app = typeText(t, app, "ERROR")
	app = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, app.search)
	assert.Contains(t, app.status, "log group")
}

func TestAppHelpToggle(t *testing.T) {
	app := newTestApp(t, apitest.New())
	app = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, PaneResults, app.focused)

	app = update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, strings.Contains(app.View(), "Cancel the running search"))

	app = update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.False(t, app.showHelp)
}

func TestDoneStatus(t *testing.T) {
	sum := model.Summary{
		Emitted:         3,
		DroppedExcluded: 2,
		Statuses: []model.TargetStatus{
			{Target: apiTarget, State: model.JobSucceeded},
			{Target: model.Target{Region: "eu-west-1", SourceName: "/ecs/web"}, State: model.JobTimedOut},
		},
	}
	s := doneStatus(sum, 1500*time.Millisecond)
	assert.Contains(t, s, "3 results in 1.5s")
	assert.Contains(t, s, "2 excluded")
	assert.Contains(t, s, "web timed_out")
}

func TestAppInfoPanel(t *testing.T) {
	backend := apitest.New()
	app := newTestApp(t, backend)
	app = typeText(t, app, "ERROR")
	app = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	app = pump(t, app)

	app = update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	require.True(t, app.showInfo)
	view := app.View()
	assert.Contains(t, view, "Search info")
	assert.Contains(t, view, "us-east-1:/ecs/api")
	assert.Contains(t, view, "1 succeeded")

	app = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, app.showInfo)
}

func TestAppQuitAsksWhileRunning(t *testing.T) {
	backend := apitest.New().Script(apiTarget, apitest.Script{Hang: true})
	app := newTestApp(t, backend)
	app = typeText(t, app, "ERROR")
	app = update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, app.running())

	app = update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.True(t, app.dialog.IsActive())
	assert.Contains(t, app.View(), "Stop it and quit?")

	m, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	app = *m.(*App)
	require.NotNil(t, cmd)
	app = update(t, app, cmd())
	assert.False(t, app.quitting)
	assert.True(t, app.running())

	app.search.Cancel()
	pump(t, app)
}
