// Package apitest provides an in-memory api.Backend for tests.
package apitest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/altinukshini/log-hound/internal/api"
	"github.com/altinukshini/log-hound/internal/model"
)

// Script describes how the fake engine answers for one target.
type Script struct {
	// SubmitErrs are returned by successive Submit calls before one succeeds.
	SubmitErrs []error
	// RunningPolls is the number of polls that report running before done.
	RunningPolls int
	// Partial is returned with every running poll.
	Partial []api.Record
	Records []api.Record
	// PollErr, when set, is returned by the first poll of the target.
	PollErr error
	// Hang keeps the query running until it is cancelled.
	Hang bool
}

type Call struct {
	Target model.Target
	Handle string
	At     time.Time
}

// Backend is a scriptable api.Backend. Unscripted targets complete on the
// first poll with no records.
type Backend struct {
	mu        sync.Mutex
	scripts   map[model.Target]*Script
	submits   map[model.Target]int
	polls     map[string]int
	tpolls    map[model.Target]int
	handles   map[string]model.Target
	live      map[string]bool
	active    map[string]int
	maxActive map[string]int
	submitted []Call
	cancelled []Call
	seq       int
}

func New() *Backend {
	return &Backend{
		scripts:   make(map[model.Target]*Script),
		submits:   make(map[model.Target]int),
		polls:     make(map[string]int),
		tpolls:    make(map[model.Target]int),
		handles:   make(map[string]model.Target),
		live:      make(map[string]bool),
		active:    make(map[string]int),
		maxActive: make(map[string]int),
	}
}

// Script sets the behaviour for target and returns the backend for chaining.
func (b *Backend) Script(target model.Target, s Script) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[target] = &s
	return b
}

func (b *Backend) script(target model.Target) *Script {
	if s, ok := b.scripts[target]; ok {
		return s
	}
	return &Script{}
}

func (b *Backend) Submit(ctx context.Context, req api.SubmitRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.script(req.Target)
	n := b.submits[req.Target]
	b.submits[req.Target] = n + 1
	if n < len(s.SubmitErrs) {
		return "", s.SubmitErrs[n]
	}

	b.seq++
	handle := fmt.Sprintf("q-%d", b.seq)
	b.handles[handle] = req.Target
	b.live[handle] = true
	region := req.Target.Region
	b.active[region]++
	if b.active[region] > b.maxActive[region] {
		b.maxActive[region] = b.active[region]
	}
	b.submitted = append(b.submitted, Call{Target: req.Target, Handle: handle, At: time.Now()})
	return handle, nil
}

func (b *Backend) Poll(ctx context.Context, target model.Target, handle string) (api.PollResult, error) {
	if err := ctx.Err(); err != nil {
		return api.PollResult{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.live[handle] {
		return api.PollResult{}, api.Rejected("poll", "Cancelled", "query "+handle+" is not running")
	}
	s := b.script(target)
	n := b.polls[handle]
	b.polls[handle] = n + 1
	first := b.tpolls[target] == 0
	b.tpolls[target]++

	if first && s.PollErr != nil {
		if !api.Retryable(s.PollErr) {
			b.finish(handle)
		}
		return api.PollResult{}, s.PollErr
	}
	if s.Hang || n < s.RunningPolls {
		return api.PollResult{Status: api.PollRunning, Records: s.Partial}, nil
	}
	b.finish(handle)
	return api.PollResult{Status: api.PollDone, Records: s.Records}, nil
}

func (b *Backend) Cancel(_ context.Context, target model.Target, handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelled = append(b.cancelled, Call{Target: target, Handle: handle, At: time.Now()})
	b.finish(handle)
	return nil
}

func (b *Backend) finish(handle string) {
	if !b.live[handle] {
		return
	}
	b.live[handle] = false
	b.active[b.handles[handle].Region]--
}

// Submitted returns the successful submissions in order.
func (b *Backend) Submitted() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.submitted...)
}

func (b *Backend) Cancelled() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.cancelled...)
}

// SubmitAttempts counts every Submit call for target, failed ones included.
func (b *Backend) SubmitAttempts(target model.Target) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submits[target]
}

// MaxActive is the highest number of queries running at once in region.
func (b *Backend) MaxActive(region string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxActive[region]
}

// Active is the number of queries still running in region.
func (b *Backend) Active(region string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active[region]
}

// Rec builds a record with the standard timestamp and message fields.
func Rec(ts time.Time, msg string) api.Record {
	return api.Record{
		{Name: model.FieldTimestamp, Value: ts.UTC().Format("2006-01-02 15:04:05.000")},
		{Name: model.FieldMessage, Value: msg},
	}
}
