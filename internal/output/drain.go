package output

import "github.com/altinukshini/log-hound/internal/model"

// Stream is a running search.
type Stream interface {
	Batches() <-chan model.EntryBatch
	Cancel()
	Wait() model.Summary
}

// Drain hands every batch to fn until the stream ends. If fn fails the
// search is cancelled, the rest of the stream is discarded and the first
// error is returned with the summary.
func Drain(s Stream, fn func(model.EntryBatch) error) (model.Summary, error) {
	var firstErr error
	for b := range s.Batches() {
		if firstErr != nil {
			continue
		}
		if err := fn(b); err != nil {
			firstErr = err
			s.Cancel()
		}
	}
	return s.Wait(), firstErr
}
