package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/altinukshini/log-hound/internal/api"
	"github.com/altinukshini/log-hound/internal/api/apitest"
	"github.com/altinukshini/log-hound/internal/governor"
	"github.com/altinukshini/log-hound/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	target = model.Target{Region: "us-east-1", SourceName: "app/prod"}
	t0     = time.Date(2026, 1, 23, 5, 0, 0, 0, time.UTC)
)

func fastConfig() Config {
	return Config{
		PollInterval:    time.Millisecond,
		MaxPollInterval: 4 * time.Millisecond,
		RetryBase:       time.Millisecond,
		RetryMax:        4 * time.Millisecond,
		Timeout:         time.Second,
		CancelTimeout:   100 * time.Millisecond,
	}
}

func newJob(b api.Backend, g Gate, cfg Config) *Job {
	return New(b, g, Spec{
		Target:    target,
		TimeRange: model.TimeRange{Start: t0, End: t0.Add(time.Hour)},
		Patterns:  []string{"ERROR"},
		Limit:     100,
	}, cfg)
}

func openGate() *governor.Governor {
	return governor.New(governor.WithSpacing(0))
}

func TestJobSucceeds(t *testing.T) {
	b := apitest.New().Script(target, apitest.Script{
		RunningPolls: 2,
		Partial:      []api.Record{apitest.Rec(t0, "ERROR one")},
		Records: []api.Record{
			apitest.Rec(t0, "ERROR one"),
			apitest.Rec(t0.Add(time.Second), "ERROR two"),
		},
	})
	g := openGate()

	out := newJob(b, g, fastConfig()).Run(context.Background())

	assert.Equal(t, model.JobSucceeded, out.Status.State)
	assert.Equal(t, 1, out.Status.Attempts)
	assert.Equal(t, 2, out.Status.Records)
	require.Len(t, out.Entries, 2)
	assert.Equal(t, "ERROR one", out.Entries[0].Raw)
	assert.Equal(t, "ERROR two", out.Entries[1].Raw)
	assert.Equal(t, 0, g.Active(target.Region), "slot must be released")
	assert.Empty(t, b.Cancelled())
}

func TestJobRejectedFailsWithoutRetry(t *testing.T) {
	b := apitest.New().Script(target, apitest.Script{
		SubmitErrs: []error{api.Rejected("start query", "MalformedQueryException", "bad query")},
	})

	out := newJob(b, openGate(), fastConfig()).Run(context.Background())

	assert.Equal(t, model.JobFailed, out.Status.State)
	assert.Equal(t, 1, out.Status.Attempts)
	assert.Contains(t, out.Status.Reason, "MalformedQueryException")
	assert.Equal(t, 1, b.SubmitAttempts(target))
}

func TestJobRetriesThrottling(t *testing.T) {
	throttled := &api.Error{Kind: api.KindThrottled, Op: "start query", Code: "ThrottlingException"}
	b := apitest.New().Script(target, apitest.Script{
		SubmitErrs: []error{throttled, throttled},
		Records:    []api.Record{apitest.Rec(t0, "ERROR")},
	})

	out := newJob(b, openGate(), fastConfig()).Run(context.Background())

	assert.Equal(t, model.JobSucceeded, out.Status.State)
	assert.Equal(t, 3, out.Status.Attempts)
	assert.Len(t, out.Entries, 1)
}

func TestJobGivesUpAfterMaxAttempts(t *testing.T) {
	transient := api.Transient("start query", "ServiceUnavailableException", "down")
	b := apitest.New().Script(target, apitest.Script{
		SubmitErrs: []error{transient, transient, transient, transient},
	})

	out := newJob(b, openGate(), fastConfig()).Run(context.Background())

	assert.Equal(t, model.JobFailed, out.Status.State)
	assert.Equal(t, DefaultMaxAttempts, out.Status.Attempts)
	assert.Contains(t, out.Status.Reason, "giving up after 3 attempts")
	assert.Equal(t, DefaultMaxAttempts, b.SubmitAttempts(target))
}

func TestJobResubmitsAfterTransientPollError(t *testing.T) {
	b := apitest.New().Script(target, apitest.Script{
		PollErr: api.Transient("get query results", "Timeout", "engine timeout"),
		Records: []api.Record{apitest.Rec(t0, "ERROR")},
	})

	out := newJob(b, openGate(), fastConfig()).Run(context.Background())

	assert.Equal(t, model.JobSucceeded, out.Status.State)
	assert.Equal(t, 2, out.Status.Attempts)
	cancelled := b.Cancelled()
	require.Len(t, cancelled, 1, "previous handle is cancelled before re-submitting")
	assert.Equal(t, b.Submitted()[0].Handle, cancelled[0].Handle)
}

func TestJobTimesOut(t *testing.T) {
	b := apitest.New().Script(target, apitest.Script{Hang: true})
	cfg := fastConfig()
	cfg.Timeout = 30 * time.Millisecond
	g := openGate()

	out := newJob(b, g, cfg).Run(context.Background())

	assert.Equal(t, model.JobTimedOut, out.Status.State)
	assert.Len(t, b.Cancelled(), 1)
	assert.Equal(t, 0, b.Active(target.Region))
	assert.Equal(t, 0, g.Active(target.Region))
}

func TestJobCancelledKeepsFetchedRecords(t *testing.T) {
	b := apitest.New().Script(target, apitest.Script{
		Hang:    true,
		Partial: []api.Record{apitest.Rec(t0, "ERROR early")},
	})
	stop := errors.New("limit reached")
	ctx, cancel := context.WithCancelCause(context.Background())
	time.AfterFunc(30*time.Millisecond, func() { cancel(stop) })

	out := newJob(b, openGate(), fastConfig()).Run(ctx)

	assert.Equal(t, model.JobCancelled, out.Status.State)
	assert.Equal(t, "limit reached", out.Status.Reason)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "ERROR early", out.Entries[0].Raw)
	assert.Len(t, b.Cancelled(), 1)
}

func TestJobCancelledWhilePending(t *testing.T) {
	b := apitest.New()
	g := governor.New(governor.WithCapacity(1), governor.WithSpacing(0))
	require.NoError(t, g.Acquire(context.Background(), target.Region))
	defer g.Release(target.Region)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out := newJob(b, g, fastConfig()).Run(ctx)

	assert.Equal(t, model.JobCancelled, out.Status.State)
	assert.Equal(t, 0, out.Status.Attempts)
	assert.Equal(t, 0, b.SubmitAttempts(target))
	assert.Equal(t, 1, g.Active(target.Region))
}

func TestJobSkipsIncompleteRecords(t *testing.T) {
	b := apitest.New().Script(target, apitest.Script{
		Records: []api.Record{
			apitest.Rec(t0, "ERROR good"),
			{{Name: model.FieldMessage, Value: "no timestamp"}},
			{{Name: model.FieldTimestamp, Value: "not a time"}, {Name: model.FieldMessage, Value: "bad"}},
		},
	})

	out := newJob(b, openGate(), fastConfig()).Run(context.Background())

	require.Len(t, out.Entries, 1)
	assert.Equal(t, 1, out.Status.Records)
}

func TestJobReportsStateChanges(t *testing.T) {
	b := apitest.New().Script(target, apitest.Script{RunningPolls: 1})
	var (
		mu     sync.Mutex
		states []model.JobState
	)
	cfg := fastConfig()
	cfg.OnState = func(st model.TargetStatus) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, st.State)
	}

	newJob(b, openGate(), cfg).Run(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []model.JobState{model.JobSubmitted, model.JobRunning, model.JobSucceeded}, states)
}

func TestJobCapsLimit(t *testing.T) {
	j := New(apitest.New(), openGate(), Spec{Target: target, Limit: 50000}, Config{})
	assert.Equal(t, api.MaxQueryLimit, j.spec.Limit)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to model.JobState
		ok       bool
	}{
		{model.JobPending, model.JobSubmitted, true},
		{model.JobPending, model.JobCancelled, true},
		{model.JobPending, model.JobRunning, false},
		{model.JobSubmitted, model.JobRunning, true},
		{model.JobSubmitted, model.JobSucceeded, false},
		{model.JobRunning, model.JobSubmitted, true},
		{model.JobRunning, model.JobSucceeded, true},
		{model.JobRunning, model.JobTimedOut, true},
		{model.JobSucceeded, model.JobRunning, false},
		{model.JobCancelled, model.JobSubmitted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := transition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	want := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second,
	}
	for i, w := range want {
		if got := backoff(DefaultRetryBase, DefaultRetryMax, i+1); got != w {
			t.Errorf("backoff(attempt %d) = %v, want %v", i+1, got, w)
		}
	}
}
