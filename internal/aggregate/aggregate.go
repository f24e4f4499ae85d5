// Package aggregate merges per-target results into the caller's stream. It
// applies exclusion, enforces the global limit and orders entries according
// to the output mode.
package aggregate

import (
	"sort"

	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/search"
)

type item struct {
	entry model.Entry
	index int
	seq   int
}

// Aggregator is owned by a single goroutine and is not safe for concurrent
// use. It lives for one search invocation.
type Aggregator struct {
	mode     model.OutputMode
	limit    int
	exclude  *search.Excluder
	targets  []model.Target
	position map[model.Target]int

	seq             int
	accepted        int
	droppedExcluded int
	droppedLimit    int

	merged []item
	groups [][]model.Entry
}

func New(targets []model.Target, mode model.OutputMode, limit int, exclude []string) *Aggregator {
	a := &Aggregator{
		mode:     mode,
		limit:    limit,
		exclude:  search.NewExcluder(exclude),
		targets:  targets,
		position: make(map[model.Target]int, len(targets)),
		groups:   make([][]model.Entry, len(targets)),
	}
	for i, t := range targets {
		if _, ok := a.position[t]; !ok {
			a.position[t] = i
		}
	}
	return a
}

// Add takes the entries of one target in backend order and returns the
// batches that are ready to emit now. Only streaming mode emits from Add.
func (a *Aggregator) Add(target model.Target, entries []model.Entry) []model.EntryBatch {
	idx, ok := a.position[target]
	if !ok {
		idx = len(a.targets)
		a.position[target] = idx
		a.targets = append(a.targets, target)
		a.groups = append(a.groups, nil)
	}

	var kept []model.Entry
	for _, e := range entries {
		if a.exclude.Excluded(e.Raw) {
			a.droppedExcluded++
			continue
		}
		if a.Full() {
			a.droppedLimit++
			continue
		}
		a.accepted++
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		return nil
	}

	switch a.mode {
	case model.OutputStreaming:
		t := target
		return []model.EntryBatch{{Target: &t, Entries: kept}}
	case model.OutputGrouped:
		a.groups[idx] = append(a.groups[idx], kept...)
	default:
		for _, e := range kept {
			a.merged = append(a.merged, item{entry: e, index: idx, seq: a.seq})
			a.seq++
		}
	}
	return nil
}

// Full reports whether the limit has been reached.
func (a *Aggregator) Full() bool {
	return a.limit > 0 && a.accepted >= a.limit
}

// Flush returns everything buffered. It is called once, after every job
// has reported.
func (a *Aggregator) Flush() []model.EntryBatch {
	switch a.mode {
	case model.OutputStreaming:
		return nil
	case model.OutputGrouped:
		var out []model.EntryBatch
		for i, entries := range a.groups {
			if len(entries) == 0 {
				continue
			}
			t := a.targets[i]
			out = append(out, model.EntryBatch{Target: &t, Entries: entries})
		}
		a.groups = make([][]model.Entry, len(a.targets))
		return out
	}

	if len(a.merged) == 0 {
		return nil
	}
	sort.SliceStable(a.merged, func(i, j int) bool {
		x, y := a.merged[i], a.merged[j]
		if !x.entry.Timestamp.Equal(y.entry.Timestamp) {
			return x.entry.Timestamp.Before(y.entry.Timestamp)
		}
		if x.index != y.index {
			return x.index < y.index
		}
		return x.seq < y.seq
	})
	entries := make([]model.Entry, len(a.merged))
	for i, it := range a.merged {
		entries[i] = it.entry
	}
	a.merged = nil
	return []model.EntryBatch{{Entries: entries}}
}

// Summary combines the counters with the per-target statuses.
func (a *Aggregator) Summary(statuses []model.TargetStatus) model.Summary {
	return model.Summary{
		Emitted:         a.accepted,
		DroppedExcluded: a.droppedExcluded,
		DroppedLimit:    a.droppedLimit,
		Statuses:        statuses,
	}
}
