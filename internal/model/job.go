package model

// JobState is the lifecycle state of one query job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobSubmitted JobState = "submitted"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobTimedOut  JobState = "timed_out"
	JobCancelled JobState = "cancelled"
)

func (s JobState) Terminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobTimedOut, JobCancelled:
		return true
	}
	return false
}

// TargetStatus is the final outcome of the job for one target.
type TargetStatus struct {
	Target   Target   `json:"target"`
	State    JobState `json:"state"`
	Records  int      `json:"records"`
	Attempts int      `json:"attempts"`
	Reason   string   `json:"reason,omitempty"`
}

// Summary is the final report of one search invocation.
type Summary struct {
	Emitted         int            `json:"emitted"`
	DroppedExcluded int            `json:"dropped_excluded"`
	DroppedLimit    int            `json:"dropped_limit"`
	Statuses        []TargetStatus `json:"statuses"`
}

// Count returns how many targets ended in the given state.
func (s Summary) Count(state JobState) int {
	n := 0
	for _, st := range s.Statuses {
		if st.State == state {
			n++
		}
	}
	return n
}

// AllFailed reports whether no target produced a usable result.
func (s Summary) AllFailed() bool {
	if len(s.Statuses) == 0 {
		return false
	}
	for _, st := range s.Statuses {
		if st.State == JobSucceeded || st.State == JobCancelled {
			return false
		}
	}
	return true
}
