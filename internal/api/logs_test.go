package api

import (
	"testing"
	"time"

	"github.com/altinukshini/log-hound/internal/model"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		limit    int
		want     string
	}{
		{
			name:     "single pattern",
			patterns: []string{"ERROR"},
			limit:    100,
			want:     "fields @timestamp, @message, @logStream\n| filter @message like /ERROR/\n| sort @timestamp desc\n| limit 100",
		},
		{
			name:     "and patterns",
			patterns: []string{"ERROR", "user_id=123"},
			limit:    5,
			want:     "fields @timestamp, @message, @logStream\n| filter @message like /ERROR/ and @message like /user_id=123/\n| sort @timestamp desc\n| limit 5",
		},
		{
			name:     "no patterns",
			patterns: nil,
			limit:    10,
			want:     "fields @timestamp, @message, @logStream\n| sort @timestamp desc\n| limit 10",
		},
		{
			name:     "slash escaped",
			patterns: []string{"GET /health", `a\/b`},
			limit:    20000,
			want:     "fields @timestamp, @message, @logStream\n| filter @message like /GET \\/health/ and @message like /a\\/b/\n| sort @timestamp desc\n| limit 10000",
		},
		{
			name:     "trailing backslash",
			patterns: []string{`C:\`, `ends\\`},
			limit:    10,
			want:     "fields @timestamp, @message, @logStream\n| filter @message like /C:\\\\/ and @message like /ends\\\\/\n| sort @timestamp desc\n| limit 10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildQuery(tt.patterns, tt.limit); got != tt.want {
				t.Errorf("BuildQuery() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 1, 23, 5, 36, 5, 200_000_000, time.UTC)
	for _, in := range []string{"2026-01-23 05:36:05.200", "2026-01-23T05:36:05.2Z", "2026-01-23T07:36:05.200+02:00"} {
		got, ok := ParseTimestamp(in)
		if !ok || !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseTimestamp("yesterday"); ok {
		t.Error("expected parse failure")
	}
}

func TestToEntry(t *testing.T) {
	target := model.Target{Region: "us-east-1", SourceName: "app/prod"}
	rec := Record{
		{Name: "@timestamp", Value: "2026-01-23 05:36:05.200"},
		{Name: "@message", Value: "ERROR db timeout"},
		{Name: "@logStream", Value: "web-1"},
	}
	e, ok := ToEntry(target, rec)
	if !ok {
		t.Fatal("ToEntry rejected a complete record")
	}
	if e.Raw != "ERROR db timeout" || e.Target != target || e.LogStream() != "web-1" {
		t.Errorf("entry = %+v", e)
	}
	if _, dup := e.Fields["@message"]; dup {
		t.Error("message should not be duplicated into fields")
	}

	if _, ok := ToEntry(target, Record{{Name: "@message", Value: "x"}}); ok {
		t.Error("record without timestamp accepted")
	}
	if _, ok := ToEntry(target, Record{{Name: "@timestamp", Value: "2026-01-23 05:36:05.200"}}); ok {
		t.Error("record without message accepted")
	}
}
