package model

// Target is one independently queried log source: a log group in a region.
type Target struct {
	Region     string `json:"region"`
	SourceName string `json:"log_group"`
}

func (t Target) String() string {
	return t.Region + ":" + t.SourceName
}

// ShortName returns the last path segment of the log group name,
// e.g. "/aws/app/rails" -> "rails".
func (t Target) ShortName() string {
	name := t.SourceName
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			if i == len(name)-1 {
				return name
			}
			return name[i+1:]
		}
	}
	return name
}
