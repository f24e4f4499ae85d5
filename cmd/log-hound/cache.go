package main

import (
	"fmt"
	"time"

	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/spf13/cobra"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the cached log-group listings",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc, err := c.groupCache()
			if err != nil {
				return err
			}
			entries, err := gc.ListEntries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cache is empty.")
				return nil
			}
			width, _, _ := c.term.Size()
			tp := tableprinter.New(cmd.OutOrStdout(), c.term.IsTerminalOutput(), width)
			tp.AddHeader([]string{"REGION", "PREFIX", "GROUPS", "STORED"})
			for _, e := range entries {
				tp.AddField(e.Region)
				tp.AddField(e.Prefix)
				tp.AddField(fmt.Sprint(len(e.Groups)))
				tp.AddField(e.StoredAt.Local().Format(time.DateTime))
				tp.EndRow()
			}
			return tp.Render()
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc, err := c.groupCache()
			if err != nil {
				return err
			}
			size, _ := gc.TotalSize()
			if err := gc.DeleteAll(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d bytes of cached listings\n", size)
			return nil
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}
