package query

import (
	"fmt"

	"github.com/altinukshini/log-hound/internal/model"
)

// allowed lists the legal successors of each non-terminal state. A running
// job may go back to submitted when it re-submits after a retryable error.
var allowed = map[model.JobState][]model.JobState{
	model.JobPending:   {model.JobSubmitted, model.JobCancelled},
	model.JobSubmitted: {model.JobRunning, model.JobFailed, model.JobTimedOut, model.JobCancelled},
	model.JobRunning:   {model.JobSubmitted, model.JobSucceeded, model.JobFailed, model.JobTimedOut, model.JobCancelled},
}

// transition validates a state change.
func transition(from, to model.JobState) error {
	for _, s := range allowed[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("illegal job transition %s -> %s", from, to)
}
