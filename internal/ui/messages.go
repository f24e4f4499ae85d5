package ui

import (
	"github.com/altinukshini/log-hound/internal/model"
)

type BatchMsg struct {
	SearchID string
	Batch    model.EntryBatch
}

// SearchDoneMsg is sent once the batch stream of a search is closed.
type SearchDoneMsg struct {
	SearchID string
	Summary  model.Summary
}

// ProgressTickMsg refreshes the job counters while a search runs.
type ProgressTickMsg struct {
	SearchID string
}

type GroupsLoadedMsg struct {
	Region string
	Groups []string
	Cached bool
	Err    error
}
