package output

import (
	"fmt"
	"io"

	"github.com/cli/go-gh/v2/pkg/tableprinter"

	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/ui"
)

// WriteReport renders one row per target in resolution order.
func WriteReport(w io.Writer, s model.Summary, isTTY bool, width int) error {
	tp := tableprinter.New(w, isTTY, width)
	tp.AddHeader([]string{"TARGET", "STATE", "RECORDS", "ATTEMPTS", "REASON"})
	for _, st := range s.Statuses {
		state := string(st.State)
		tp.AddField(st.Target.String())
		if isTTY {
			style := ui.StateStyle(st.State)
			tp.AddField(state, tableprinter.WithColor(func(s string) string { return style.Render(s) }))
		} else {
			tp.AddField(state)
		}
		tp.AddField(fmt.Sprint(st.Records))
		tp.AddField(fmt.Sprint(st.Attempts))
		tp.AddField(st.Reason)
		tp.EndRow()
	}
	if err := tp.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d emitted, %d excluded, %d over limit\n",
		s.Emitted, s.DroppedExcluded, s.DroppedLimit)
	return err
}

// NeedsReport reports whether any target did not succeed.
func NeedsReport(s model.Summary) bool {
	return s.Count(model.JobSucceeded) != len(s.Statuses)
}

// WriteGroups lists log-group names for a region.
func WriteGroups(w io.Writer, region string, groups []string, isTTY bool, width int) error {
	tp := tableprinter.New(w, isTTY, width)
	tp.AddHeader([]string{"REGION", "LOG GROUP"})
	for _, g := range groups {
		tp.AddField(region)
		tp.AddField(g)
		tp.EndRow()
	}
	return tp.Render()
}
