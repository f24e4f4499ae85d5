// Package search holds the client-side text matching used on top of the
// query engine: exclusion, local refinement and match highlighting.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/altinukshini/log-hound/internal/model"
)

// Query is a local refinement over already fetched entries.
type Query struct {
	Pattern       string
	IsRegex       bool
	CaseSensitive bool
}

// Filter returns the entries whose message matches q. An empty pattern
// matches everything; an invalid regex matches nothing.
func Filter(entries []model.Entry, q Query) []model.Entry {
	if q.Pattern == "" {
		return entries
	}
	matcher, err := buildMatcher(q)
	if err != nil {
		return nil
	}
	var out []model.Entry
	for _, e := range entries {
		if matcher(e.Raw) {
			out = append(out, e)
		}
	}
	return out
}

func buildMatcher(q Query) (func(string) bool, error) {
	if q.IsRegex {
		flags := ""
		if !q.CaseSensitive {
			flags = "(?i)"
		}
		re, err := regexp.Compile(flags + q.Pattern)
		if err != nil {
			return nil, err
		}
		return func(line string) bool { return re.MatchString(line) }, nil
	}

	pattern := q.Pattern
	if !q.CaseSensitive {
		pattern = strings.ToLower(pattern)
	}
	return func(line string) bool {
		if !q.CaseSensitive {
			line = strings.ToLower(line)
		}
		return strings.Contains(line, pattern)
	}, nil
}

// Excluder drops lines containing any of its terms, ignoring case.
type Excluder struct {
	terms []string
}

// NewExcluder builds an Excluder. Terms are deduplicated case-insensitively
// and empty terms are ignored. Terms are matched verbatim, surrounding
// whitespace included.
func NewExcluder(terms []string) *Excluder {
	seen := make(map[string]bool, len(terms))
	ex := &Excluder{}
	for _, t := range terms {
		lt := strings.ToLower(t)
		if lt == "" || seen[lt] {
			continue
		}
		seen[lt] = true
		ex.terms = append(ex.terms, lt)
	}
	return ex
}

func (x *Excluder) Terms() []string { return x.terms }

func (x *Excluder) Excluded(line string) bool {
	if len(x.terms) == 0 {
		return false
	}
	line = strings.ToLower(line)
	for _, t := range x.terms {
		if strings.Contains(line, t) {
			return true
		}
	}
	return false
}

// Span is a half-open byte range [Start, End) within a line.
type Span struct {
	Start, End int
}

// Highlighter finds the parts of a line matched by the search patterns.
type Highlighter struct {
	res []*regexp.Regexp
}

// NewHighlighter compiles each pattern as a case-insensitive regex, falling
// back to a literal match when it does not compile.
func NewHighlighter(patterns []string) *Highlighter {
	h := &Highlighter{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(p))
		}
		h.res = append(h.res, re)
	}
	return h
}

// Spans returns the sorted, merged match ranges in line.
func (h *Highlighter) Spans(line string) []Span {
	var spans []Span
	for _, re := range h.res {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			if loc[1] > loc[0] {
				spans = append(spans, Span{loc[0], loc[1]})
			}
		}
	}
	if len(spans) < 2 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			last.End = max(last.End, s.End)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// Apply wraps every matched range with style.
func (h *Highlighter) Apply(line string, style func(string) string) string {
	spans := h.Spans(line)
	if len(spans) == 0 {
		return line
	}
	var b strings.Builder
	pos := 0
	for _, s := range spans {
		b.WriteString(line[pos:s.Start])
		b.WriteString(style(line[s.Start:s.End]))
		pos = s.End
	}
	b.WriteString(line[pos:])
	return b.String()
}
