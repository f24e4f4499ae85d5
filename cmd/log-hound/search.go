package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/altinukshini/log-hound/internal/config"
	"github.com/altinukshini/log-hound/internal/model"
	"github.com/altinukshini/log-hound/internal/orchestrator"
	"github.com/altinukshini/log-hound/internal/output"
	"github.com/altinukshini/log-hound/internal/target"
	"github.com/altinukshini/log-hound/internal/timerange"
)

var (
	errNoPatterns = errors.New("at least one pattern is required (or a preset with patterns)")
	errAllFailed  = errors.New("no log group could be searched")
)

type searchFlags struct {
	preset      string
	groups      []string
	exclude     []string
	last        string
	start       string
	end         string
	output      string
	limit       int
	timeout     time.Duration
	concurrency int
	jq          string
	report      bool
}

func newSearchCmd(c *cli) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search [pattern...]",
		Short: "Search log groups for lines matching all patterns",
		Example: `  log-hound search ERROR -g my-app/production
  log-hound search "user_id=123" -g api/logs,eu-west-1:web/logs --last 2h
  log-hound search timeout -g service/prod --limit 50 -o grouped
  log-hound search ERROR "user_id=123" -g app/logs    # both must match
  log-hound search ERROR -g app/logs -x health-check
  log-hound search ERROR -p production
  log-hound search ERROR -g app/logs -o json --jq '.entries[].message'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := config.SearchOptions{
				Preset:   f.preset,
				Patterns: args,
				Groups:   trimList(f.groups),
				Exclude:  trimList(f.exclude),
				Last:     f.last,
				LastSet:  cmd.Flags().Changed("last"),
				Limit:    f.limit,
				LimitSet: cmd.Flags().Changed("limit"),
			}
			return runSearch(cmd.Context(), c, opts, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.preset, "preset", "p", "", "Use a preset from the config file")
	fl.StringSliceVarP(&f.groups, "groups", "g", nil, "Log groups to search, as group or region:group (comma separated)")
	fl.StringSliceVarP(&f.exclude, "exclude", "x", nil, "Drop lines containing any of these terms (comma separated)")
	fl.StringVarP(&f.last, "last", "l", config.DefaultTimeRange, "Relative time range, e.g. 30m, 2h, 1d, 1h30m")
	fl.StringVar(&f.start, "start", "", "Start time (RFC3339, \"2006-01-02 15:04:05\" or 2006-01-02); overrides --last")
	fl.StringVar(&f.end, "end", "", "End time, used with --start (default now)")
	fl.StringVarP(&f.output, "output", "o", string(model.OutputInterleaved), "Output mode: interleaved, grouped, streaming, json")
	fl.IntVar(&f.limit, "limit", config.DefaultLimit, "Maximum results per log group and in total")
	fl.DurationVar(&f.timeout, "timeout", 0, "Give up on a log group after this long (default from config)")
	fl.IntVar(&f.concurrency, "concurrency", 0, "Concurrent queries per region (default from config)")
	fl.StringVar(&f.jq, "jq", "", "Filter JSON output with a jq expression (implies -o json)")
	fl.BoolVar(&f.report, "report", false, "Always print the per-log-group status report")
	return cmd
}

// trimList trims comma-split flag values ("a, b") and drops empty ones.
func trimList(vals []string) []string {
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// searchOptions maps the config file and flags onto orchestrator options.
func (c *cli) searchOptions(f searchFlags) []orchestrator.Option {
	concurrency := c.cfg.RegionConcurrency
	if f.concurrency > 0 {
		concurrency = f.concurrency
	}
	timeout := c.cfg.JobTimeout
	if f.timeout > 0 {
		timeout = f.timeout
	}
	return []orchestrator.Option{
		orchestrator.WithRegionConcurrency(concurrency),
		orchestrator.WithSubmitSpacing(c.cfg.SubmitSpacing),
		orchestrator.WithJobTimeout(timeout),
		orchestrator.WithMaxAttempts(c.cfg.MaxAttempts),
		orchestrator.WithLogger(c.log),
	}
}

func buildRequest(c *cli, opts config.SearchOptions, f searchFlags, now time.Time) (orchestrator.Request, error) {
	r, err := c.cfg.Resolve(opts)
	if err != nil {
		return orchestrator.Request{}, err
	}
	if len(r.Patterns) == 0 {
		return orchestrator.Request{}, errNoPatterns
	}
	targets, err := target.Resolve(r.Groups, c.awsRegion())
	if err != nil {
		return orchestrator.Request{}, err
	}
	if len(targets) == 0 {
		return orchestrator.Request{}, fmt.Errorf("%w: use -g or set default_groups in the config file", orchestrator.ErrNoTargets)
	}
	tr, err := timerange.Resolve(r.Last, f.start, f.end, now)
	if err != nil {
		return orchestrator.Request{}, err
	}
	mode, err := model.ParseOutputMode(f.output)
	if err != nil {
		return orchestrator.Request{}, err
	}
	if f.jq != "" {
		mode = model.OutputSerialized
	}
	return orchestrator.Request{
		Targets:   targets,
		Patterns:  model.PatternSet{MustMatch: r.Patterns, MustNotMatch: r.Exclude},
		TimeRange: tr,
		Limit:     r.Limit,
		Mode:      mode,
	}, nil
}

func runSearch(ctx context.Context, c *cli, opts config.SearchOptions, f searchFlags, stdout, stderr io.Writer) error {
	req, err := buildRequest(c, opts, f, time.Now())
	if err != nil {
		return err
	}
	color := c.term.IsColorEnabled()
	if req.Mode != model.OutputSerialized {
		output.Banner(stderr, req.Patterns.MustMatch, req.Patterns.MustNotMatch, req.TimeRange, req.Targets, color)
	}

	// The first signal cancels the search; results gathered so far are
	// still flushed and reported.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := orchestrator.Run(ctx, c.backend(), req, c.searchOptions(f)...)
	if err != nil {
		return err
	}
	c.log.Debug("search running", zap.String("search_id", s.ID()), zap.Int("targets", len(s.Targets())))

	var sum model.Summary
	if req.Mode == model.OutputSerialized {
		doc := output.NewDocument(s.ID(), req.Patterns, req.TimeRange, req.Limit)
		sum, err = output.Drain(s, func(b model.EntryBatch) error {
			doc.Add(b)
			return nil
		})
		if err != nil {
			return err
		}
		doc.Summary = sum
		if err := doc.Write(stdout, f.jq); err != nil {
			return err
		}
	} else {
		p := output.NewPrinter(stdout, req.Mode, req.Patterns.MustMatch, color)
		sum, err = output.Drain(s, p.Batch)
		if err == nil && sum.Emitted == 0 {
			err = p.NoResults()
		}
		if err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}

	if f.report || output.NeedsReport(sum) {
		width, _, _ := c.term.Size()
		fmt.Fprintln(stderr)
		if err := output.WriteReport(stderr, sum, c.errTTY, width); err != nil {
			return err
		}
	}
	if sum.AllFailed() {
		return errAllFailed
	}
	return nil
}
