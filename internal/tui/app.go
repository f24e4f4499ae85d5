package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/altinukshini/log-hound/internal/api"
	"github.com/altinukshini/log-hound/internal/cache"
	"github.com/altinukshini/log-hound/internal/config"
	"github.com/altinukshini/log-hound/internal/governor"
	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/orchestrator"
	"github.com/altinukshini/log-hound/internal/output"
	"github.com/altinukshini/log-hound/internal/query"
	"github.com/altinukshini/log-hound/internal/target"
	"github.com/altinukshini/log-hound/internal/timerange"
	"github.com/altinukshini/log-hound/internal/tui/confirm"
	"github.com/altinukshini/log-hound/internal/tui/infoview"
	"github.com/altinukshini/log-hound/internal/tui/logview"
	"github.com/altinukshini/log-hound/internal/tui/searchview"
	"github.com/altinukshini/log-hound/internal/ui"
)

const (
	tickInterval = 200 * time.Millisecond

	// header(1) + statusbar(1) + divider(1)
	chromeLines = 3
	formLines   = 5
)

// GroupLister lists log groups of a region, used for group completion.
type GroupLister interface {
	ListLogGroups(ctx context.Context, region, prefix string) ([]string, error)
}

type Options struct {
	Profile string
	Region  string

	// Groups and Cache feed group completion; both are optional.
	Groups GroupLister
	Cache  *cache.GroupCache

	// Gate is shared by every search started from the app so re-searching
	// does not reset submission pacing.
	Gate   query.Gate
	Search []orchestrator.Option
	Logger *zap.Logger
}

type Pane int

const (
	PaneForm Pane = iota
	PaneResults
)

type App struct {
	cfg     *config.Config
	backend api.Backend
	opts    Options
	log     *zap.Logger

	form   searchview.Model
	feed   logview.Model
	info   infoview.Model
	dialog confirm.Model

	// Current search; older ones are cancelled and drained in the background.
	search   *orchestrator.Search
	progress *progress
	summary  *model.Summary
	started  time.Time

	focused  Pane
	width    int
	height   int
	status   string
	showHelp bool
	showInfo bool
	quitting bool
}

func NewApp(cfg *config.Config, backend api.Backend, opts Options) App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Gate == nil {
		opts.Gate = governor.New(
			governor.WithCapacity(cfg.RegionConcurrency),
			governor.WithSpacing(cfg.SubmitSpacing))
	}
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = config.DefaultLimit
	}
	last := cfg.DefaultTimeRange
	if last == "" {
		last = config.DefaultTimeRange
	}
	form := searchview.New(cfg.DefaultGroups, last, limit)
	form.Activate()
	return App{
		cfg:     cfg,
		backend: backend,
		opts:    opts,
		log:     opts.Logger,
		form:    form,
		feed:    logview.New(),
		info:    infoview.New(),
		focused: PaneForm,
		status:  "Type patterns and press enter to search",
	}
}

func (a App) Init() tea.Cmd {
	return a.loadGroups()
}

// loadGroups fetches the log groups of the default region for completion,
// going through the on-disk cache when one is configured.
func (a App) loadGroups() tea.Cmd {
	lister, gc, region := a.opts.Groups, a.opts.Cache, a.opts.Region
	if lister == nil || region == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if gc == nil {
			groups, err := lister.ListLogGroups(ctx, region, "")
			return ui.GroupsLoadedMsg{Region: region, Groups: groups, Err: err}
		}
		groups, cached, err := gc.Load(ctx, region, "", false, lister.ListLogGroups)
		return ui.GroupsLoadedMsg{Region: region, Groups: groups, Cached: cached, Err: err}
	}
}

func waitBatch(s *orchestrator.Search) tea.Cmd {
	return func() tea.Msg {
		b, ok := <-s.Batches()
		if !ok {
			return ui.SearchDoneMsg{SearchID: s.ID(), Summary: s.Wait()}
		}
		return ui.BatchMsg{SearchID: s.ID(), Batch: b}
	}
}

func tick(id string) tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return ui.ProgressTickMsg{SearchID: id}
	})
}

// discard drains a search nobody is watching anymore so its collector can
// finish.
func discard(s *orchestrator.Search) {
	go func() {
		_, _ = output.Drain(s, func(model.EntryBatch) error { return nil })
	}()
}

func (a App) running() bool {
	return a.search != nil && a.summary == nil
}

func (a App) currentID() string {
	if a.search == nil {
		return ""
	}
	return a.search.ID()
}

// startSearch resolves the form into a request and starts a streaming
// search. Any search still running is cancelled first.
func (a *App) startSearch() tea.Cmd {
	q := a.form.Query()
	if len(q.Patterns) == 0 {
		a.status = ui.StyleWarning.Render("Enter at least one pattern")
		return nil
	}
	groups := q.Groups
	if len(groups) == 0 {
		groups = a.cfg.DefaultGroups
	}
	targets, err := target.Resolve(groups, a.opts.Region)
	if err != nil {
		a.status = ui.StyleFailure.Render(err.Error())
		return nil
	}
	if len(targets) == 0 {
		a.status = ui.StyleWarning.Render("Enter at least one log group")
		return nil
	}
	tr, err := timerange.Relative(q.Last, time.Now())
	if err != nil {
		a.status = ui.StyleFailure.Render(err.Error())
		return nil
	}

	if a.running() {
		a.search.Cancel()
		discard(a.search)
	}

	prog := newProgress(targets)
	opts := append([]orchestrator.Option{}, a.opts.Search...)
	opts = append(opts,
		orchestrator.WithGovernor(a.opts.Gate),
		orchestrator.WithLogger(a.log),
		orchestrator.WithObserver(prog.observe))
	s, err := orchestrator.Run(context.Background(), a.backend, orchestrator.Request{
		Targets:   targets,
		Patterns:  model.PatternSet{MustMatch: q.Patterns, MustNotMatch: q.Exclude},
		TimeRange: tr,
		Limit:     q.Limit,
		Mode:      model.OutputStreaming,
	}, opts...)
	if err != nil {
		a.search = nil
		a.status = ui.StyleFailure.Render(err.Error())
		return nil
	}

	a.search = s
	a.progress = prog
	a.summary = nil
	a.started = time.Now()
	a.feed.Reset(q.Patterns)
	a.info.SetSearch(infoview.Search{
		ID:        s.ID(),
		Patterns:  q.Patterns,
		Exclude:   q.Exclude,
		TimeRange: tr,
		Limit:     q.Limit,
		Started:   a.started,
	})
	a.info.SetStatuses(prog.snapshot())
	a.status = progressStatus(prog.counts())
	a.focus(PaneResults)
	return tea.Batch(waitBatch(s), tick(s.ID()))
}

// stopAndQuit cancels the running search and waits for its jobs to stop
// their queries before quitting.
func (a *App) stopAndQuit() tea.Cmd {
	a.quitting = true
	if !a.running() {
		return tea.Quit
	}
	s := a.search
	s.Cancel()
	a.status = "Stopping queries..."
	return func() tea.Msg {
		_, _ = output.Drain(s, func(model.EntryBatch) error { return nil })
		return tea.Quit()
	}
}

func (a *App) focus(p Pane) {
	a.focused = p
	if p == PaneForm {
		a.form.Activate()
	} else {
		a.form.Deactivate()
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.propagateSize()
		return &a, nil

	case ui.GroupsLoadedMsg:
		if msg.Err != nil {
			a.log.Debug("group listing failed", zap.String("region", msg.Region), zap.Error(msg.Err))
			return &a, nil
		}
		a.form.SetKnownGroups(msg.Groups)
		return &a, nil

	case ui.BatchMsg:
		if msg.SearchID != a.currentID() {
			return &a, nil
		}
		a.feed.Append(msg.Batch.Entries)
		return &a, waitBatch(a.search)

	case ui.SearchDoneMsg:
		if msg.SearchID != a.currentID() {
			return &a, nil
		}
		sum := msg.Summary
		a.summary = &sum
		a.info.SetSummary(sum)
		a.status = doneStatus(sum, time.Since(a.started))
		return &a, nil

	case ui.ProgressTickMsg:
		if msg.SearchID != a.currentID() || !a.running() {
			return &a, nil
		}
		a.status = progressStatus(a.progress.counts())
		a.info.SetStatuses(a.progress.snapshot())
		return &a, tick(msg.SearchID)

	case confirm.ResultMsg:
		if msg.Action == "quit" && msg.Confirmed {
			return &a, a.stopAndQuit()
		}
		return &a, nil

	case tea.KeyMsg:
		if a.quitting {
			return &a, nil
		}
		if msg.String() == "ctrl+c" {
			return &a, a.stopAndQuit()
		}
		if a.showHelp {
			a.showHelp = false
			return &a, nil
		}
		if a.dialog.IsActive() {
			var cmd tea.Cmd
			a.dialog, cmd = a.dialog.Update(msg)
			return &a, cmd
		}
		if key.Matches(msg, ui.Keys.Cancel) {
			if a.running() {
				a.search.Cancel()
				a.status = "Cancelling..."
			}
			return &a, nil
		}

		if a.focused == PaneForm {
			switch {
			case key.Matches(msg, ui.Keys.Enter):
				return &a, a.startSearch()
			case key.Matches(msg, ui.Keys.Back):
				a.focus(PaneResults)
				return &a, nil
			}
			var cmd tea.Cmd
			a.form, cmd = a.form.Update(msg)
			return &a, cmd
		}

		if !a.feed.IsFiltering() {
			switch {
			case key.Matches(msg, ui.Keys.Quit):
				if a.running() {
					a.dialog = confirm.New("Quit", "A search is still running. Stop it and quit?", "quit")
					return &a, nil
				}
				return &a, a.stopAndQuit()
			case key.Matches(msg, ui.Keys.Info):
				a.showInfo = !a.showInfo
				return &a, nil
			case a.showInfo && key.Matches(msg, ui.Keys.Back):
				a.showInfo = false
				return &a, nil
			case key.Matches(msg, ui.Keys.Help):
				a.showHelp = true
				return &a, nil
			case key.Matches(msg, ui.Keys.Tab), msg.String() == "e":
				a.focus(PaneForm)
				return &a, nil
			}
		}
	}

	var cmd tea.Cmd
	if a.showInfo {
		a.info, cmd = a.info.Update(msg)
	} else {
		a.feed, cmd = a.feed.Update(msg)
	}
	cmds = append(cmds, cmd)
	// Cursor blinks and other internal messages go to the form as well.
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		a.form, cmd = a.form.Update(msg)
		cmds = append(cmds, cmd)
	}
	return &a, tea.Batch(cmds...)
}

func doneStatus(s model.Summary, took time.Duration) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d results in %s", s.Emitted, took.Round(100*time.Millisecond)))
	if s.DroppedExcluded > 0 {
		parts = append(parts, fmt.Sprintf("%d excluded", s.DroppedExcluded))
	}
	if s.DroppedLimit > 0 {
		parts = append(parts, fmt.Sprintf("%d over limit", s.DroppedLimit))
	}
	if n := len(s.Statuses) - s.Count(model.JobSucceeded); n > 0 {
		var failed []string
		for _, st := range s.Statuses {
			if st.State != model.JobSucceeded {
				failed = append(failed, st.Target.ShortName()+" "+string(st.State))
			}
		}
		parts = append(parts, ui.StyleWarning.Render(strings.Join(failed, ", ")))
	}
	return strings.Join(parts, " | ")
}

func (a *App) propagateSize() {
	feedH := max(a.height-chromeLines-formLines, 3)
	a.form, _ = a.form.Update(tea.WindowSizeMsg{Width: a.width, Height: formLines})
	a.feed, _ = a.feed.Update(tea.WindowSizeMsg{Width: a.width, Height: feedH})
	a.info, _ = a.info.Update(tea.WindowSizeMsg{Width: a.width, Height: feedH})
}

func (a App) contextHints() string {
	if a.focused == PaneForm {
		hints := "enter:search  tab:field  C-t:range  C-l:limit  C-f:complete  esc:results"
		if a.running() {
			hints = "C-x:cancel  " + hints
		}
		return hints
	}
	hints := "e:edit  /:filter  i:info  ?:help  q:quit"
	if a.running() {
		hints = "C-x:cancel  " + hints
	}
	return hints
}

func (a App) View() string {
	header := RenderHeader(a.opts.Profile, a.opts.Region, a.currentID(), a.width)

	form := lipgloss.NewStyle().Height(formLines).MaxHeight(formLines).Render(a.form.View())
	divColor := ui.ColorBorder
	if a.focused == PaneResults {
		divColor = ui.ColorPrimary
	}
	divider := lipgloss.NewStyle().Foreground(divColor).Render(strings.Repeat("─", max(a.width, 0)))

	content := a.feed.View()
	switch {
	case a.showHelp:
		content = a.renderHelp()
	case a.dialog.IsActive():
		content = a.dialog.View()
	case a.showInfo:
		content = a.info.View()
	}

	// Hard clamp: the content area never pushes the status bar off screen.
	maxContentLines := a.height - chromeLines - formLines
	if maxContentLines > 0 {
		lines := strings.Split(content, "\n")
		if len(lines) > maxContentLines {
			content = strings.Join(lines[:maxContentLines], "\n")
		}
	}

	statusBar := RenderStatusBar(a.status, a.contextHints(), a.width)
	return header + "\n" + form + "\n" + divider + "\n" + content + "\n" + statusBar
}

func (a App) renderHelp() string {
	bold := lipgloss.NewStyle().Bold(true)
	k := lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true).Width(14)
	desc := lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB"))

	row := func(key, d string) string {
		return "  " + k.Render(key) + desc.Render(d) + "\n"
	}

	var b strings.Builder
	b.WriteString("\n" + bold.Render("  Search form") + "\n\n")
	b.WriteString(row("enter", "Start a new search (cancels the running one)"))
	b.WriteString(row("tab / S-tab", "Next / previous field"))
	b.WriteString(row("C-t", "Cycle time range"))
	b.WriteString(row("C-l", "Cycle result limit"))
	b.WriteString(row("C-f", "Complete log group"))
	b.WriteString(row("esc", "Go to results"))

	b.WriteString("\n" + bold.Render("  Results") + "\n\n")
	b.WriteString(row("e / tab", "Edit the search"))
	b.WriteString(row("/", "Filter fetched results (/ prefix for regex)"))
	b.WriteString(row("i", "Search info and per log group status"))
	b.WriteString(row("esc", "Clear filter"))
	b.WriteString(row("j / k", "Scroll"))
	b.WriteString(row("g / G", "Go to top / bottom"))
	b.WriteString(row("PgUp/PgDn", "Page up / page down"))
	b.WriteString(row("C-x", "Cancel the running search"))
	b.WriteString(row("q / C-c", "Quit"))

	b.WriteString("\n" + lipgloss.NewStyle().Foreground(ui.ColorMuted).Render("  Press any key to close") + "\n")
	return b.String()
}

// ErrNoRegion is returned by Run when no region could be determined.
var ErrNoRegion = errors.New("no region configured: use --region or AWS_REGION")

// Run starts the interactive program and blocks until it exits.
func Run(cfg *config.Config, backend api.Backend, opts Options) error {
	if opts.Region == "" {
		return ErrNoRegion
	}
	p := tea.NewProgram(NewApp(cfg, backend, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
