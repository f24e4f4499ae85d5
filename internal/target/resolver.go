// Package target turns user-supplied log group specs into concrete
// region/log-group pairs.
package target

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/altinukshini/log-hound/internal/model"
)

var ErrInvalidTargetSpec = errors.New("invalid target spec")

// Parse parses a single "log-group" or "region:log-group" spec. The part
// before the first colon is only taken as a region when it looks like one,
// so "my-app:production" stays a log group name.
func Parse(spec, defaultRegion string) (model.Target, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return model.Target{}, fmt.Errorf("%w: empty spec", ErrInvalidTargetSpec)
	}

	region, name := defaultRegion, s
	if i := strings.IndexByte(s, ':'); i >= 0 && IsRegion(s[:i]) {
		region, name = s[:i], s[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Target{}, fmt.Errorf("%w: %q has no log group", ErrInvalidTargetSpec, spec)
	}
	if region == "" {
		return model.Target{}, fmt.Errorf("%w: %q has no region and no default region is set", ErrInvalidTargetSpec, spec)
	}
	return model.Target{Region: region, SourceName: name}, nil
}

// Resolve parses every spec and drops duplicates, keeping first-seen order.
func Resolve(specs []string, defaultRegion string) ([]model.Target, error) {
	seen := make(map[model.Target]bool, len(specs))
	targets := make([]model.Target, 0, len(specs))
	for _, spec := range specs {
		t, err := Parse(spec, defaultRegion)
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		targets = append(targets, t)
	}
	return targets, nil
}

// IsRegion reports whether s is shaped like an AWS region identifier:
// a two-letter lowercase prefix, at least one lowercase middle part and a
// numeric suffix (us-east-1, ap-southeast-2, us-gov-west-1).
func IsRegion(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return false
	}
	if len(parts[0]) != 2 || !isLower(parts[0]) {
		return false
	}
	for _, p := range parts[1 : len(parts)-1] {
		if p == "" || !isLower(p) {
			return false
		}
	}
	_, err := strconv.ParseUint(parts[len(parts)-1], 10, 32)
	return err == nil
}

func isLower(s string) bool {
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
