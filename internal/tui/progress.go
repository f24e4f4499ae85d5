package tui

import (
	"sync"

	"github.com/altinukshini/log-hound/internal/model"
)

// progress tracks the latest state of every job of one search. Jobs report
// from their own goroutines; the view reads a snapshot on each tick.
type progress struct {
	mu     sync.Mutex
	order  []model.Target
	states map[model.Target]model.TargetStatus
	total  int
}

func newProgress(targets []model.Target) *progress {
	p := &progress{
		order:  targets,
		states: make(map[model.Target]model.TargetStatus, len(targets)),
		total:  len(targets),
	}
	for _, t := range targets {
		p.states[t] = model.TargetStatus{Target: t, State: model.JobPending}
	}
	return p
}

func (p *progress) observe(st model.TargetStatus) {
	p.mu.Lock()
	p.states[st.Target] = st
	p.mu.Unlock()
}

type progressCounts struct {
	Pending, Active, Done, Failed, Total int
	Records                              int
}

func (p *progress) counts() progressCounts {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := progressCounts{Total: p.total}
	for _, st := range p.states {
		c.Records += st.Records
		switch st.State {
		case model.JobPending:
			c.Pending++
		case model.JobSubmitted, model.JobRunning:
			c.Active++
		case model.JobSucceeded, model.JobCancelled:
			c.Done++
		default:
			c.Failed++
		}
	}
	return c
}

// snapshot returns the latest status of every target in resolution order.
func (p *progress) snapshot() []model.TargetStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.TargetStatus, len(p.order))
	for i, t := range p.order {
		out[i] = p.states[t]
	}
	return out
}
