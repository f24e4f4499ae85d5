// Package output renders search results for the terminal and for programs.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/search"
	"github.com/altinukshini/log-hound/internal/ui"
)

const TimestampLayout = "2006-01-02 15:04:05.000"

// Printer writes entries as colored text lines. The first write error is
// kept and every later write is skipped.
type Printer struct {
	w     io.Writer
	mode  model.OutputMode
	hl    *search.Highlighter
	color bool
	err   error
}

func NewPrinter(w io.Writer, mode model.OutputMode, patterns []string, color bool) *Printer {
	return &Printer{w: w, mode: mode, hl: search.NewHighlighter(patterns), color: color}
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// Batch writes one batch. Grouped batches get a header line and merged
// batches a result count.
func (p *Printer) Batch(b model.EntryBatch) error {
	switch {
	case p.mode == model.OutputGrouped && b.Target != nil:
		p.printf("\n%s %s (%d results)\n\n",
			p.style(ui.StyleInfo, "━━━"),
			p.style(ui.StyleTarget.Bold(true), b.Target.String()),
			len(b.Entries))
	case b.Target == nil:
		p.printf("%s %s results:\n\n",
			p.style(ui.StyleSuccess, "Found"),
			p.style(ui.StyleTarget, fmt.Sprint(len(b.Entries))))
	}
	for _, e := range b.Entries {
		p.Entry(e)
	}
	return p.err
}

// Entry writes "timestamp [region:short-group] message".
func (p *Printer) Entry(e model.Entry) {
	msg := strings.TrimRight(e.Raw, "\r\n")
	if p.color {
		msg = p.hl.Apply(msg, func(m string) string { return ui.StyleMatch.Render(m) })
	}
	p.printf("%s %s %s\n",
		p.style(ui.StyleMuted, e.Timestamp.UTC().Format(TimestampLayout)),
		p.style(ui.StyleInfo, "["+e.Target.Region+":"+e.Target.ShortName()+"]"),
		msg)
}

// NoResults is printed when a search emitted nothing.
func (p *Printer) NoResults() error {
	p.printf("%s\n", p.style(ui.StyleWarning, "No matching logs found."))
	return p.err
}

// Banner describes the search about to run.
func Banner(w io.Writer, patterns, exclude []string, r model.TimeRange, targets []model.Target, color bool) {
	p := &Printer{w: w, color: color}

	what := "*"
	if len(patterns) > 0 {
		what = quoteJoin(patterns, " AND ")
	}
	not := ""
	if len(exclude) > 0 {
		not = " " + p.style(ui.StyleFailure, "NOT") + " " + quoteJoin(exclude, ", ")
	}
	fmt.Fprintf(w, "%s %s%s  from %s to %s\n",
		p.style(ui.StyleTarget, "Searching"),
		p.style(ui.StyleWarning, what),
		not,
		r.Start.UTC().Format(time.DateTime),
		r.End.UTC().Format(time.DateTime))

	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}
	fmt.Fprintf(w, "Log groups: %s\n\n", p.style(ui.StyleMuted, strings.Join(names, ", ")))
}

func quoteJoin(vals []string, sep string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, sep)
}
