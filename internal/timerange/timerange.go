// Package timerange resolves relative ("1h30m") and absolute time
// specifiers into an absolute model.TimeRange. Resolution happens once per
// search so every job sees the same window.
package timerange

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/altinukshini/log-hound/internal/model"
)

var durationRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(s(?:ec(?:ond)?s?)?|m(?:in(?:ute)?s?)?|h(?:(?:ou)?rs?)?|d(?:ays?)?|w(?:eeks?)?)`)

// absolute layouts tried after RFC3339, all interpreted as UTC.
var layouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Resolve returns the query window. When start is set the window is
// [start, end] with end defaulting to now; otherwise it is the last
// duration before now.
func Resolve(last, start, end string, now time.Time) (model.TimeRange, error) {
	now = now.UTC()
	if strings.TrimSpace(start) != "" {
		return Explicit(start, end, now)
	}
	return Relative(last, now)
}

// Relative returns [now-d, now] for a duration spec such as "2h".
func Relative(spec string, now time.Time) (model.TimeRange, error) {
	d, err := ParseDuration(spec)
	if err != nil {
		return model.TimeRange{}, err
	}
	r := model.TimeRange{Start: now.Add(-d), End: now}
	return r, r.Validate()
}

// Explicit parses absolute start and optional end timestamps.
func Explicit(start, end string, now time.Time) (model.TimeRange, error) {
	s, err := ParseTime(start)
	if err != nil {
		return model.TimeRange{}, err
	}
	e := now
	if strings.TrimSpace(end) != "" {
		if e, err = ParseTime(end); err != nil {
			return model.TimeRange{}, err
		}
	}
	r := model.TimeRange{Start: s, End: e}
	return r, r.Validate()
}

// ParseTime accepts RFC3339 or one of the UTC layouts above.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unable to parse datetime %q (expected RFC3339, YYYY-MM-DD HH:MM:SS or YYYY-MM-DD)",
		model.ErrInvalidTimeRange, s)
}

// ParseDuration parses flexible duration specs: "30s", "15m", "2h", "1d",
// "1w", combinations like "1h30m" and "1w2d", decimals like "1.5h" and
// verbose units like "2hours" or "30mins".
func ParseDuration(spec string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	if s == "" {
		return 0, fmt.Errorf("%w: empty duration", model.ErrInvalidTimeRange)
	}

	matches := durationRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: invalid duration %q (examples: 1h, 30m, 2d, 1h30m, 1.5h)", model.ErrInvalidTimeRange, spec)
	}

	var seconds float64
	covered := 0
	for _, m := range matches {
		if strings.TrimSpace(s[covered:m[0]]) != "" {
			return 0, fmt.Errorf("%w: invalid duration %q", model.ErrInvalidTimeRange, spec)
		}
		covered = m[1]

		value, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid number in duration %q", model.ErrInvalidTimeRange, spec)
		}
		switch s[m[4]] {
		case 's':
			seconds += value
		case 'm':
			seconds += value * 60
		case 'h':
			seconds += value * 3600
		case 'd':
			seconds += value * 86400
		case 'w':
			seconds += value * 604800
		}
	}
	if strings.TrimSpace(s[covered:]) != "" {
		return 0, fmt.Errorf("%w: invalid duration %q", model.ErrInvalidTimeRange, spec)
	}
	if seconds <= 0 || seconds > math.MaxInt64/float64(time.Second) {
		return 0, fmt.Errorf("%w: duration %q out of range", model.ErrInvalidTimeRange, spec)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
