package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/altinukshini/log-hound/internal/cache"
	"github.com/altinukshini/log-hound/internal/output"
)

const (
	groupCacheSizeMB = 10
	listTimeout      = time.Minute
)

func (c *cli) groupCache() (*cache.GroupCache, error) {
	dir, err := cache.DefaultDir()
	if err != nil {
		return nil, err
	}
	return cache.NewGroupCache(dir, groupCacheSizeMB, cache.DefaultTTL)
}

func newGroupsCmd(c *cli) *cobra.Command {
	var (
		prefix  string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List log groups in the default region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			region := c.awsRegion()
			if region == "" {
				return fmt.Errorf("no region: use --region or AWS_REGION")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			be := c.backend()
			var (
				groups []string
				cached bool
				err    error
			)
			gc, cerr := c.groupCache()
			if cerr != nil {
				c.log.Debug("group cache unavailable", zap.Error(cerr))
				groups, err = be.ListLogGroups(ctx, region, prefix)
			} else {
				groups, cached, err = gc.Load(ctx, region, prefix, refresh, be.ListLogGroups)
			}
			if err != nil {
				return fmt.Errorf("list log groups: %w", err)
			}
			c.log.Debug("log groups listed", zap.String("region", region), zap.Int("count", len(groups)), zap.Bool("cached", cached))

			if len(groups) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No log groups found.")
				return nil
			}
			width, _, _ := c.term.Size()
			return output.WriteGroups(cmd.OutOrStdout(), region, groups, c.term.IsTerminalOutput(), width)
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list log groups starting with this prefix")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore the cached listing")
	return cmd
}
