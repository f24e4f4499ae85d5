// Package orchestrator fans a search out to one query job per target and
// merges their results into a single stream.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/altinukshini/log-hound/internal/aggregate"
	"github.com/altinukshini/log-hound/internal/api"
	"github.com/altinukshini/log-hound/internal/governor"
	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/query"
)

var (
	ErrNoTargets    = errors.New("no targets to search")
	ErrInvalidLimit = errors.New("limit must be positive")

	// Cancellation causes, visible in the reason of cancelled targets.
	ErrInterrupted  = errors.New("search interrupted")
	ErrLimitReached = errors.New("result limit reached")
)

type Request struct {
	Targets   []model.Target
	Patterns  model.PatternSet
	TimeRange model.TimeRange
	Limit     int
	Mode      model.OutputMode
}

func (r *Request) validate() error {
	if len(r.Targets) == 0 {
		return ErrNoTargets
	}
	if err := r.TimeRange.Validate(); err != nil {
		return err
	}
	if r.Limit <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, r.Limit)
	}
	if r.Mode == "" {
		r.Mode = model.OutputInterleaved
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidOutputMode, r.Mode)
	}
	return nil
}

func dedupe(targets []model.Target) []model.Target {
	seen := make(map[model.Target]bool, len(targets))
	out := make([]model.Target, 0, len(targets))
	for _, t := range targets {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Search is one running invocation.
type Search struct {
	id      string
	targets []model.Target
	batches chan model.EntryBatch
	cancel  context.CancelCauseFunc
	done    chan struct{}
	summary model.Summary
}

func (s *Search) ID() string { return s.id }

// Targets returns the deduplicated targets in resolution order.
func (s *Search) Targets() []model.Target { return s.targets }

// Batches streams results. The channel is closed once every job has
// reported and buffered results were flushed. Callers must drain it.
func (s *Search) Batches() <-chan model.EntryBatch { return s.batches }

// Cancel stops all outstanding jobs. Calling it more than once, or after
// the search finished, has no effect.
func (s *Search) Cancel() { s.cancel(ErrInterrupted) }

// Wait blocks until Batches is closed and returns the final summary.
func (s *Search) Wait() model.Summary {
	<-s.done
	return s.summary
}

// Run validates req and starts the search. Validation errors are returned
// before any backend call is made; per-target failures end up in the
// summary instead.
func Run(ctx context.Context, backend api.Backend, req Request, opts ...Option) (*Search, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	gate := o.gate
	if gate == nil {
		gate = governor.New(governor.WithCapacity(o.concurrency), governor.WithSpacing(o.spacing))
	}

	targets := dedupe(req.Targets)
	s := &Search{
		id:      uuid.NewString(),
		targets: targets,
		batches: make(chan model.EntryBatch, o.buffer),
		done:    make(chan struct{}),
	}
	log := o.logger.With(zap.String("search_id", s.id))
	log.Debug("search started",
		zap.Int("targets", len(targets)),
		zap.String("mode", string(req.Mode)),
		zap.Int("limit", req.Limit))

	// Jobs only stop on our own cause, so external cancellation is mapped
	// onto ErrInterrupted instead of inheriting the parent's error.
	jobCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	s.cancel = cancel
	stopWatch := context.AfterFunc(ctx, func() { cancel(ErrInterrupted) })

	jobCfg := o.job
	jobCfg.Logger = log
	results := make(chan query.Outcome, len(targets))
	var g errgroup.Group
	for _, t := range targets {
		job := query.New(backend, gate, query.Spec{
			Target:    t,
			TimeRange: req.TimeRange,
			Patterns:  req.Patterns.MustMatch,
			Limit:     req.Limit,
		}, jobCfg)
		g.Go(func() error {
			results <- job.Run(jobCtx)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	agg := aggregate.New(targets, req.Mode, req.Limit, req.Patterns.MustNotMatch)
	go func() {
		defer close(s.done)
		defer stopWatch()
		defer cancel(nil)
		s.collect(results, agg, log)
	}()
	return s, nil
}

// collect is the single consumer of job outcomes and the only owner of the
// aggregator.
func (s *Search) collect(results <-chan query.Outcome, agg *aggregate.Aggregator, log *zap.Logger) {
	statuses := make(map[model.Target]model.TargetStatus, len(s.targets))
	for out := range results {
		statuses[out.Target] = out.Status
		log.Debug("job finished",
			zap.Stringer("target", out.Target),
			zap.String("state", string(out.Status.State)),
			zap.Int("records", out.Status.Records),
			zap.Int("attempt", out.Status.Attempts))

		for _, b := range agg.Add(out.Target, out.Entries) {
			s.batches <- b
		}
		if agg.Full() {
			s.cancel(ErrLimitReached)
		}
	}
	for _, b := range agg.Flush() {
		s.batches <- b
	}

	ordered := make([]model.TargetStatus, 0, len(s.targets))
	for _, t := range s.targets {
		ordered = append(ordered, statuses[t])
	}
	s.summary = agg.Summary(ordered)
	close(s.batches)
	log.Debug("search finished",
		zap.Int("emitted", s.summary.Emitted),
		zap.Int("dropped_excluded", s.summary.DroppedExcluded),
		zap.Int("dropped_limit", s.summary.DroppedLimit))
}
