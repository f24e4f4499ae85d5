package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/altinukshini/log-hound/internal/api"
	"github.com/altinukshini/log-hound/internal/config"
)

var version = "dev"

func init() {
	if version != "dev" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
}

// backend is what the commands need from the log service.
type backend interface {
	api.Backend
	ListLogGroups(ctx context.Context, region, prefix string) ([]string, error)
}

// terminal is the part of term.Term the commands use.
type terminal interface {
	IsTerminalOutput() bool
	IsColorEnabled() bool
	Size() (int, int, error)
}

// cli holds the state shared by all commands. It is filled in by the root
// command's PersistentPreRunE.
type cli struct {
	profile    string
	region     string
	configPath string
	debug      bool

	cfg    *config.Config
	log    *zap.Logger
	term   terminal // describes stdout
	errTTY bool     // stderr is a terminal

	newBackend func(profile, region string, log *zap.Logger) backend
}

func newCLI() *cli {
	return &cli{
		log:    zap.NewNop(),
		term:   term.FromEnv(),
		errTTY: os.Getenv("GH_FORCE_TTY") != "" || term.IsTerminal(os.Stderr),
		newBackend: func(profile, region string, log *zap.Logger) backend {
			return api.NewClient(profile, region, api.WithLogger(log))
		},
	}
}

// Profile and region come from flags, then the environment, then the
// config file.
func (c *cli) awsProfile() string {
	if c.profile != "" {
		return c.profile
	}
	if p := os.Getenv("AWS_PROFILE"); p != "" {
		return p
	}
	return c.cfg.DefaultProfile
}

func (c *cli) awsRegion() string {
	if c.region != "" {
		return c.region
	}
	for _, env := range []string{"AWS_REGION", "AWS_DEFAULT_REGION"} {
		if r := os.Getenv(env); r != "" {
			return r
		}
	}
	return c.cfg.DefaultRegion
}

func (c *cli) backend() backend {
	return c.newBackend(c.awsProfile(), c.awsRegion(), c.log)
}

// skipConfig marks commands that must run without a readable config file.
const skipConfig = "skip-config"

func (c *cli) setup(cmd *cobra.Command) error {
	if cmd.Annotations[skipConfig] == "" {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return err
		}
		c.cfg = cfg
	} else {
		c.cfg = &config.Config{}
	}

	debugEnv, _ := strconv.ParseBool(os.Getenv(config.EnvPrefix + "_DEBUG"))
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if c.debug || debugEnv {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zc.OutputPaths = []string{"stderr"}
	log, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.log = log
	return nil
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "log-hound",
		Short: "Search CloudWatch Logs Insights across log groups and regions",
		Long: `log-hound runs one Logs Insights query per log group, in any number of
regions, and merges the results into a single time-ordered stream.

Log groups are given as "group" (default region) or "region:group".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.log.Sync()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.profile, "profile", "", "AWS profile (default $AWS_PROFILE)")
	pf.StringVar(&c.region, "region", "", "Default AWS region (default $AWS_REGION)")
	pf.StringVar(&c.configPath, "config", "", "Config file (default ~/"+config.FileName+")")
	pf.BoolVar(&c.debug, "debug", false, "Log debug output to stderr")

	root.AddCommand(
		newSearchCmd(c),
		newGroupsCmd(c),
		newTUICmd(c),
		newConfigCmd(c),
		newCacheCmd(c),
	)
	return root
}

func run(args []string, stdout, stderr io.Writer) int {
	c := newCLI()
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
