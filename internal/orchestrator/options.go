package orchestrator

import (
	"time"

	"go.uber.org/zap"

	"github.com/altinukshini/log-hound/internal/governor"
	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/query"
)

const DefaultBatchBuffer = 16

type options struct {
	gate        query.Gate
	concurrency int
	spacing     time.Duration
	job         query.Config
	logger      *zap.Logger
	buffer      int
}

func defaultOptions() options {
	return options{
		concurrency: governor.DefaultCapacity,
		spacing:     governor.DefaultSpacing,
		logger:      zap.NewNop(),
		buffer:      DefaultBatchBuffer,
	}
}

type Option func(*options)

// WithGovernor shares a rate governor across invocations. It overrides
// WithRegionConcurrency and WithSubmitSpacing.
func WithGovernor(g query.Gate) Option {
	return func(o *options) { o.gate = g }
}

func WithRegionConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func WithSubmitSpacing(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.spacing = d
		}
	}
}

// WithJobTimeout bounds each job from submission to result.
func WithJobTimeout(d time.Duration) Option {
	return func(o *options) { o.job.Timeout = d }
}

func WithMaxAttempts(n int) Option {
	return func(o *options) { o.job.MaxAttempts = n }
}

// WithPollInterval sets the initial and maximum poll backoff.
func WithPollInterval(initial, max time.Duration) Option {
	return func(o *options) {
		o.job.PollInterval = initial
		o.job.MaxPollInterval = max
	}
}

func WithRetryBackoff(base, max time.Duration) Option {
	return func(o *options) {
		o.job.RetryBase = base
		o.job.RetryMax = max
	}
}

func WithCancelTimeout(d time.Duration) Option {
	return func(o *options) { o.job.CancelTimeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBatchBuffer sets the capacity of the Batches channel.
func WithBatchBuffer(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.buffer = n
		}
	}
}

// WithObserver registers fn to receive every job state change. fn is called
// from job goroutines and must be safe for concurrent use.
func WithObserver(fn func(model.TargetStatus)) Option {
	return func(o *options) { o.job.OnState = fn }
}
