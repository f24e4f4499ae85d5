package config

// SearchOptions are the search inputs given on the command line. The *Set
// fields tell an explicit flag apart from its default value.
type SearchOptions struct {
	Preset   string
	Patterns []string
	Groups   []string
	Exclude  []string
	Last     string
	LastSet  bool
	Limit    int
	LimitSet bool
}

type Resolved struct {
	Groups   []string
	Patterns []string
	Exclude  []string
	Last     string
	Limit    int
}

// Resolve merges a preset, the command line and the config defaults.
// Preset patterns and excludes come first, followed by the flag values.
// Groups on the command line replace the preset's or the default groups.
// Time range and limit take the first of: explicit flag, preset, config
// default, built-in default.
func (c Config) Resolve(o SearchOptions) (Resolved, error) {
	var p Preset
	if o.Preset != "" {
		var err error
		if p, err = c.Preset(o.Preset); err != nil {
			return Resolved{}, err
		}
	}

	r := Resolved{
		Patterns: concat(p.Patterns, o.Patterns),
		Exclude:  concat(p.Exclude, o.Exclude),
	}

	switch {
	case len(o.Groups) > 0:
		r.Groups = o.Groups
	case o.Preset != "":
		r.Groups = p.Groups
	default:
		r.Groups = c.DefaultGroups
	}

	if o.LastSet {
		r.Last = o.Last
	} else {
		r.Last = firstString(p.TimeRange, c.DefaultTimeRange, o.Last, DefaultTimeRange)
	}
	// An explicit limit is passed through unchecked so the orchestrator
	// can reject it.
	if o.LimitSet {
		r.Limit = o.Limit
	} else {
		r.Limit = firstInt(p.Limit, c.DefaultLimit, o.Limit, DefaultLimit)
	}
	return r, nil
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
