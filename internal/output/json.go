package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cli/go-gh/v2/pkg/jq"

	"github.com/altinukshini/log-hound/internal/model"
)

// Document is the serialized form of one search.
type Document struct {
	SearchID string          `json:"search_id"`
	Query    QueryInfo       `json:"query"`
	Entries  []DocumentEntry `json:"entries"`
	Summary  model.Summary   `json:"summary"`
}

type QueryInfo struct {
	Patterns []string  `json:"patterns"`
	Exclude  []string  `json:"exclude"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Limit    int       `json:"limit"`
}

type DocumentEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Region    string            `json:"region"`
	LogGroup  string            `json:"log_group"`
	LogStream string            `json:"log_stream,omitempty"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func NewDocument(searchID string, patterns model.PatternSet, r model.TimeRange, limit int) *Document {
	return &Document{
		SearchID: searchID,
		Query: QueryInfo{
			Patterns: nonNil(patterns.MustMatch),
			Exclude:  nonNil(patterns.MustNotMatch),
			Start:    r.Start.UTC(),
			End:      r.End.UTC(),
			Limit:    limit,
		},
		Entries: []DocumentEntry{},
	}
}

// Add appends the entries of a batch in order.
func (d *Document) Add(b model.EntryBatch) {
	for _, e := range b.Entries {
		var fields map[string]string
		for k, v := range e.Fields {
			if k == model.FieldLogStream {
				continue
			}
			if fields == nil {
				fields = make(map[string]string)
			}
			fields[k] = v
		}
		d.Entries = append(d.Entries, DocumentEntry{
			Timestamp: e.Timestamp.UTC(),
			Region:    e.Target.Region,
			LogGroup:  e.Target.SourceName,
			LogStream: e.LogStream(),
			Message:   e.Raw,
			Fields:    fields,
		})
	}
}

// Write encodes the document as indented JSON, or evaluates expr over it
// when expr is not empty.
func (d *Document) Write(w io.Writer, expr string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if expr == "" {
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	if err := jq.Evaluate(bytes.NewReader(data), w, expr); err != nil {
		return fmt.Errorf("jq: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
