package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/altinukshini/log-hound/internal/config"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and manage the config file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.cfg.Marshal()
			if err != nil {
				return err
			}
			if c.cfg.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", c.cfg.Path)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	path := &cobra.Command{
		Use:         "path",
		Short:       "Print the config file location",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.configFile()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.configFile()
			if err != nil {
				return err
			}
			if err := config.Init(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", p)
			return nil
		},
	}

	presets := &cobra.Command{
		Use:   "presets",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := c.cfg.PresetNames()
			if len(names) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No presets configured.")
				return nil
			}
			w := cmd.OutOrStdout()
			for _, name := range names {
				p, _ := c.cfg.Preset(name)
				fmt.Fprintf(w, "%s", name)
				if p.Description != "" {
					fmt.Fprintf(w, " - %s", p.Description)
				}
				fmt.Fprintln(w)
				fmt.Fprintf(w, "  groups: %v\n", p.Groups)
				if len(p.Patterns) > 0 {
					fmt.Fprintf(w, "  patterns: %v\n", p.Patterns)
				}
				if len(p.Exclude) > 0 {
					fmt.Fprintf(w, "  exclude: %v\n", p.Exclude)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(show, path, initCmd, presets)
	return cmd
}

// configFile is the --config value or the default location.
func (c *cli) configFile() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	return config.DefaultPath()
}
