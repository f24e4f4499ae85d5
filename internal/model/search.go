package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidTimeRange  = errors.New("invalid time range")
	ErrInvalidOutputMode = errors.New("invalid output mode")
)

// PatternSet holds the patterns of one search. MustMatch entries are ANDed by
// the query engine; MustNotMatch entries are applied client-side.
type PatternSet struct {
	MustMatch    []string `json:"patterns"`
	MustNotMatch []string `json:"exclude,omitempty"`
}

// TimeRange is an absolute, inclusive query window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r TimeRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidTimeRange)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidTimeRange,
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

type OutputMode string

const (
	OutputInterleaved OutputMode = "interleaved"
	OutputGrouped     OutputMode = "grouped"
	OutputStreaming   OutputMode = "streaming"
	OutputSerialized  OutputMode = "serialized"
)

// ParseOutputMode accepts the mode names case-insensitively; "json" is an
// alias for serialized output.
func ParseOutputMode(s string) (OutputMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "interleaved":
		return OutputInterleaved, nil
	case "grouped":
		return OutputGrouped, nil
	case "streaming":
		return OutputStreaming, nil
	case "serialized", "json":
		return OutputSerialized, nil
	}
	return "", fmt.Errorf("%w: %q (want interleaved, grouped, streaming or json)", ErrInvalidOutputMode, s)
}

func (m OutputMode) Valid() bool {
	switch m {
	case OutputInterleaved, OutputGrouped, OutputStreaming, OutputSerialized:
		return true
	}
	return false
}

// Buffered reports whether the mode holds entries until every job finished.
func (m OutputMode) Buffered() bool {
	return m != OutputStreaming
}
