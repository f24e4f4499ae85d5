// Package query runs a single backend query for one target through its
// whole lifecycle: slot acquisition, submission, polling, retries, timeout
// and cancellation.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/altinukshini/log-hound/internal/api"
	"github.com/altinukshini/log-hound/internal/model"
)

const (
	DefaultPollInterval    = 250 * time.Millisecond
	DefaultMaxPollInterval = 2 * time.Second
	DefaultRetryBase       = 500 * time.Millisecond
	DefaultRetryMax        = 8 * time.Second
	DefaultMaxAttempts     = 3
	DefaultTimeout         = 5 * time.Minute
	DefaultCancelTimeout   = 5 * time.Second
)

var errJobTimeout = errors.New("job timed out")

// Gate is the slice of the rate governor a job needs.
type Gate interface {
	Acquire(ctx context.Context, region string) error
	Pace(ctx context.Context, region string) error
	Release(region string)
}

// Config tunes a job. Zero fields take the package defaults.
type Config struct {
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	RetryBase       time.Duration
	RetryMax        time.Duration
	MaxAttempts     int
	Timeout         time.Duration
	CancelTimeout   time.Duration

	Logger *zap.Logger
	// OnState, if set, is called from the job goroutine on every state change.
	OnState func(model.TargetStatus)
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPollInterval <= 0 {
		c.MaxPollInterval = DefaultMaxPollInterval
	}
	if c.MaxPollInterval < c.PollInterval {
		c.MaxPollInterval = c.PollInterval
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.RetryMax <= 0 {
		c.RetryMax = DefaultRetryMax
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CancelTimeout <= 0 {
		c.CancelTimeout = DefaultCancelTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Spec is what a job asks the backend for.
type Spec struct {
	Target    model.Target
	TimeRange model.TimeRange
	Patterns  []string
	Limit     int
}

// Outcome is the result of a finished job. Entries are in backend order.
type Outcome struct {
	Target  model.Target
	Entries []model.Entry
	Status  model.TargetStatus
}

// Job is single-use: Run may be called once.
type Job struct {
	spec    Spec
	backend api.Backend
	gate    Gate
	cfg     Config
	log     *zap.Logger

	state    model.JobState
	attempts int
	handle   string
	records  []api.Record
	reason   string
}

func New(backend api.Backend, gate Gate, spec Spec, cfg Config) *Job {
	cfg = cfg.withDefaults()
	if spec.Limit <= 0 || spec.Limit > api.MaxQueryLimit {
		spec.Limit = api.MaxQueryLimit
	}
	return &Job{
		spec:    spec,
		backend: backend,
		gate:    gate,
		cfg:     cfg,
		log:     cfg.Logger.With(zap.Stringer("target", spec.Target)),
		state:   model.JobPending,
	}
}

// Run drives the job to a terminal state. Failures are reported in the
// outcome's status, never returned.
func (j *Job) Run(ctx context.Context) Outcome {
	region := j.spec.Target.Region
	if err := j.gate.Acquire(ctx, region); err != nil {
		j.finish(model.JobCancelled, reasonFor(ctx, err))
		return j.outcome()
	}
	defer j.gate.Release(region)

	j.set(model.JobSubmitted)
	jobCtx, cancel := context.WithTimeoutCause(ctx, j.cfg.Timeout, errJobTimeout)
	defer cancel()

	j.execute(ctx, jobCtx)
	return j.outcome()
}

func (j *Job) execute(parent, ctx context.Context) {
	for {
		j.attempts++
		err := j.attempt(ctx)
		if err == nil {
			j.finish(model.JobSucceeded, "")
			return
		}
		if j.stopped(parent, ctx) {
			return
		}
		if !api.Retryable(err) {
			j.abandon(parent)
			j.finish(model.JobFailed, err.Error())
			return
		}
		if j.attempts >= j.cfg.MaxAttempts {
			j.abandon(parent)
			j.finish(model.JobFailed, fmt.Sprintf("giving up after %d attempts: %v", j.attempts, err))
			return
		}

		delay := backoff(j.cfg.RetryBase, j.cfg.RetryMax, j.attempts)
		j.log.Debug("retrying query",
			zap.Int("attempt", j.attempts),
			zap.Duration("delay", delay),
			zap.Error(err))
		j.abandon(parent)
		if !sleep(ctx, delay) {
			j.stopped(parent, ctx)
			return
		}
		if err := j.gate.Pace(ctx, j.spec.Target.Region); err != nil {
			// The limiter refuses waits that would overrun the job deadline.
			if !j.stopped(parent, ctx) {
				j.finish(model.JobTimedOut, fmt.Sprintf("no submission slot before deadline: %v", err))
			}
			return
		}
		if j.state == model.JobRunning {
			j.set(model.JobSubmitted)
		}
		j.records = nil
	}
}

// attempt submits once and polls until done. A nil error means the records
// snapshot is complete.
func (j *Job) attempt(ctx context.Context) error {
	handle, err := j.backend.Submit(ctx, api.SubmitRequest{
		Target:    j.spec.Target,
		TimeRange: j.spec.TimeRange,
		Patterns:  j.spec.Patterns,
		Limit:     j.spec.Limit,
	})
	if err != nil {
		return err
	}
	j.handle = handle
	j.log.Debug("query submitted", zap.String("handle", handle), zap.Int("attempt", j.attempts))
	j.set(model.JobRunning)

	interval := j.cfg.PollInterval
	for {
		if !sleep(ctx, interval) {
			return context.Cause(ctx)
		}
		res, err := j.backend.Poll(ctx, j.spec.Target, handle)
		if err != nil {
			if errors.Is(err, api.ErrBackendRejected) {
				// The engine already ended the query.
				j.handle = ""
			}
			return err
		}
		if len(res.Records) > 0 {
			j.records = res.Records
		}
		if res.Status == api.PollDone {
			j.handle = ""
			return nil
		}
		interval = min(interval*2, j.cfg.MaxPollInterval)
	}
}

// stopped finishes the job if its context ended and reports whether it did.
func (j *Job) stopped(parent, ctx context.Context) bool {
	switch {
	case parent.Err() != nil:
		j.abandon(parent)
		j.finish(model.JobCancelled, context.Cause(parent).Error())
		return true
	case ctx.Err() != nil:
		j.abandon(parent)
		j.finish(model.JobTimedOut, fmt.Sprintf("no result after %s", j.cfg.Timeout))
		return true
	}
	return false
}

// abandon cancels the live backend query, if any, on a context detached
// from cancellation but bounded by CancelTimeout.
func (j *Job) abandon(parent context.Context) {
	if j.handle == "" {
		return
	}
	handle := j.handle
	j.handle = ""
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), j.cfg.CancelTimeout)
	defer cancel()
	if err := j.backend.Cancel(ctx, j.spec.Target, handle); err != nil {
		j.log.Debug("cancel query failed", zap.String("handle", handle), zap.Error(err))
	}
}

func (j *Job) set(to model.JobState) {
	if err := transition(j.state, to); err != nil {
		j.log.Error("job state", zap.Error(err))
		return
	}
	j.state = to
	j.log.Debug("job state", zap.String("state", string(to)))
	if j.cfg.OnState != nil {
		j.cfg.OnState(j.status(len(j.records)))
	}
}

func (j *Job) finish(to model.JobState, reason string) {
	j.reason = reason
	j.set(to)
}

func (j *Job) status(records int) model.TargetStatus {
	return model.TargetStatus{
		Target:   j.spec.Target,
		State:    j.state,
		Records:  records,
		Attempts: j.attempts,
		Reason:   j.reason,
	}
}

func (j *Job) outcome() Outcome {
	entries := make([]model.Entry, 0, len(j.records))
	skipped := 0
	for _, rec := range j.records {
		e, ok := api.ToEntry(j.spec.Target, rec)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	if skipped > 0 {
		j.log.Debug("skipped records without timestamp or message", zap.Int("count", skipped))
	}
	return Outcome{
		Target:  j.spec.Target,
		Entries: entries,
		Status:  j.status(len(entries)),
	}
}

func reasonFor(ctx context.Context, err error) string {
	if cause := context.Cause(ctx); cause != nil {
		return cause.Error()
	}
	return err.Error()
}

// backoff returns base doubled once per completed attempt, capped at ceiling.
func backoff(base, ceiling time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return min(d, ceiling)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
