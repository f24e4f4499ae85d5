package model

import "time"

// Well-known record fields returned by the query engine.
const (
	FieldTimestamp = "@timestamp"
	FieldMessage   = "@message"
	FieldLogStream = "@logStream"
)

// Entry is one parsed, timestamped result record.
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Target    Target            `json:"target"`
	Fields    map[string]string `json:"fields,omitempty"`
	Raw       string            `json:"message"`
}

func (e Entry) LogStream() string {
	return e.Fields[FieldLogStream]
}

// EntryBatch is the unit handed to a sink. Target is nil for batches that
// merge several targets (interleaved and serialized output).
type EntryBatch struct {
	Target  *Target
	Entries []Entry
}
