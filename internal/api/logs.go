package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/altinukshini/log-hound/internal/model"
)

// BuildQuery renders the Insights query for a set of ANDed patterns. Each
// pattern is matched against @message as a regular expression; results are
// sorted newest first and capped at limit.
func BuildQuery(patterns []string, limit int) string {
	if limit <= 0 || limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	var b strings.Builder
	b.WriteString("fields @timestamp, @message, @logStream")

	var conds []string
	for _, p := range patterns {
		if p == "" {
			continue
		}
		conds = append(conds, fmt.Sprintf("@message like /%s/", escapeRegexLiteral(p)))
	}
	if len(conds) > 0 {
		b.WriteString("\n| filter ")
		b.WriteString(strings.Join(conds, " and "))
	}
	b.WriteString("\n| sort @timestamp desc")
	fmt.Fprintf(&b, "\n| limit %d", limit)
	return b.String()
}

// escapeRegexLiteral escapes unescaped slashes so the pattern cannot close
// the /.../ literal early. A trailing lone backslash is doubled so it
// cannot escape the closing slash.
func escapeRegexLiteral(p string) string {
	var b strings.Builder
	escaped := false
	for _, r := range p {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '/':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	if escaped {
		b.WriteRune('\\')
	}
	return b.String()
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the engine's timestamp format
// ("2026-01-23 05:36:05.200", UTC) with an RFC3339 fallback.
func ParseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToEntry converts a raw record into an Entry. Records without a parseable
// timestamp or without a message are rejected.
func ToEntry(target model.Target, rec Record) (model.Entry, bool) {
	ts, ok := rec.Get(model.FieldTimestamp)
	if !ok {
		return model.Entry{}, false
	}
	when, ok := ParseTimestamp(ts)
	if !ok {
		return model.Entry{}, false
	}
	msg, ok := rec.Get(model.FieldMessage)
	if !ok {
		return model.Entry{}, false
	}

	var fields map[string]string
	for _, f := range rec {
		if f.Name == model.FieldTimestamp || f.Name == model.FieldMessage {
			continue
		}
		if fields == nil {
			fields = make(map[string]string, len(rec))
		}
		fields[f.Name] = f.Value
	}
	return model.Entry{Timestamp: when, Target: target, Fields: fields, Raw: msg}, true
}
