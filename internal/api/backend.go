package api

import (
	"context"

	"github.com/altinukshini/log-hound/internal/model"
)

// MaxQueryLimit is the largest result count the query engine returns for
// one query.
const MaxQueryLimit = 10000

// Backend is the narrow contract to the asynchronous query engine. Calls are
// stateless and safe for concurrent use.
type Backend interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Poll(ctx context.Context, target model.Target, handle string) (PollResult, error)
	Cancel(ctx context.Context, target model.Target, handle string) error
}

type SubmitRequest struct {
	Target    model.Target
	TimeRange model.TimeRange
	Patterns  []string // ANDed
	Limit     int
}

type PollStatus int

const (
	PollRunning PollStatus = iota
	PollDone
)

func (s PollStatus) String() string {
	if s == PollDone {
		return "done"
	}
	return "running"
}

// PollResult carries the records known so far. While a query is running the
// engine may return a partial snapshot; each poll replaces the previous one.
type PollResult struct {
	Status  PollStatus
	Records []Record
}

type Field struct {
	Name  string
	Value string
}

// Record is one raw result row in the order the engine returned its fields.
type Record []Field

func (r Record) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}
