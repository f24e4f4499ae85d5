package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/altinukshini/log-hound/internal/governor"
	"github.com/altinukshini/log-hound/internal/tui"
)

func newTUICmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "tui",
		Aliases: []string{"ui"},
		Short:   "Search interactively",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			be := c.backend()
			opts := tui.Options{
				Profile: c.awsProfile(),
				Region:  c.awsRegion(),
				Groups:  be,
				Gate: governor.New(
					governor.WithCapacity(c.cfg.RegionConcurrency),
					governor.WithSpacing(c.cfg.SubmitSpacing)),
				Search: c.searchOptions(searchFlags{}),
				Logger: c.log,
			}
			if gc, err := c.groupCache(); err == nil {
				opts.Cache = gc
			} else {
				c.log.Debug("group cache unavailable", zap.Error(err))
			}
			return tui.Run(c.cfg, be, opts)
		},
	}
}
