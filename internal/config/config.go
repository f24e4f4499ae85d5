// Package config loads ~/.log-hound.yaml: defaults for searches, tuning of
// the query orchestrator and named presets.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/altinukshini/log-hound/internal/target"
	"github.com/altinukshini/log-hound/internal/timerange"
)

const (
	EnvPrefix = "LOG_HOUND"
	FileName  = ".log-hound.yaml"

	DefaultTimeRange   = "1h"
	DefaultLimit       = 100
	DefaultConcurrency = 5
	DefaultSpacing     = 200 * time.Millisecond
	DefaultJobTimeout  = 5 * time.Minute
	DefaultMaxAttempts = 3
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrConfigExists   = errors.New("config file already exists")
)

// Preset is a named set of search defaults.
type Preset struct {
	Description string   `mapstructure:"description" yaml:"description,omitempty"`
	Groups      []string `mapstructure:"groups" yaml:"groups"`
	Patterns    []string `mapstructure:"patterns" yaml:"patterns,omitempty"`
	Exclude     []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	TimeRange   string   `mapstructure:"time_range" yaml:"time_range,omitempty"`
	Limit       int      `mapstructure:"limit" yaml:"limit,omitempty"`
}

type Config struct {
	DefaultProfile    string            `mapstructure:"default_profile" yaml:"default_profile,omitempty"`
	DefaultRegion     string            `mapstructure:"default_region" yaml:"default_region,omitempty"`
	DefaultGroups     []string          `mapstructure:"default_groups" yaml:"default_groups"`
	DefaultTimeRange  string            `mapstructure:"default_time_range" yaml:"default_time_range"`
	DefaultLimit      int               `mapstructure:"default_limit" yaml:"default_limit"`
	RegionConcurrency int               `mapstructure:"region_concurrency" yaml:"region_concurrency"`
	SubmitSpacing     time.Duration     `mapstructure:"submit_spacing" yaml:"submit_spacing"`
	JobTimeout        time.Duration     `mapstructure:"job_timeout" yaml:"job_timeout"`
	MaxAttempts       int               `mapstructure:"max_attempts" yaml:"max_attempts"`
	Presets           map[string]Preset `mapstructure:"presets" yaml:"presets,omitempty"`

	// Path is the file the config was read from, empty if none was found.
	Path string `mapstructure:"-" yaml:"-"`
}

// DefaultPath returns ~/.log-hound.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home dir: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_profile", "")
	v.SetDefault("default_region", "")
	v.SetDefault("default_groups", []string{})
	v.SetDefault("default_time_range", DefaultTimeRange)
	v.SetDefault("default_limit", DefaultLimit)
	v.SetDefault("region_concurrency", DefaultConcurrency)
	v.SetDefault("submit_spacing", DefaultSpacing)
	v.SetDefault("job_timeout", DefaultJobTimeout)
	v.SetDefault("max_attempts", DefaultMaxAttempts)
	return v
}

// Load reads the config at path, or at DefaultPath when path is empty. A
// missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := newViper()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	v.SetConfigFile(path)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			if explicit {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			found = false
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if found {
		cfg.Path = path
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	if c.DefaultRegion != "" && !target.IsRegion(c.DefaultRegion) {
		return fmt.Errorf("default_region %q is not a region identifier", c.DefaultRegion)
	}
	if c.DefaultTimeRange != "" {
		if _, err := timerange.ParseDuration(c.DefaultTimeRange); err != nil {
			return fmt.Errorf("default_time_range: %w", err)
		}
	}
	if c.DefaultLimit < 0 {
		return fmt.Errorf("default_limit must not be negative")
	}
	if c.RegionConcurrency < 0 || c.MaxAttempts < 0 {
		return fmt.Errorf("region_concurrency and max_attempts must not be negative")
	}
	if c.SubmitSpacing < 0 || c.JobTimeout < 0 {
		return fmt.Errorf("submit_spacing and job_timeout must not be negative")
	}
	for name, p := range c.Presets {
		if p.TimeRange != "" {
			if _, err := timerange.ParseDuration(p.TimeRange); err != nil {
				return fmt.Errorf("preset %s: time_range: %w", name, err)
			}
		}
		if p.Limit < 0 {
			return fmt.Errorf("preset %s: limit must not be negative", name)
		}
	}
	return nil
}

// PresetNames returns the preset names sorted.
func (c Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c Config) Preset(name string) (Preset, error) {
	p, ok := c.Presets[strings.ToLower(name)]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (available: %s)", ErrPresetNotFound, name, strings.Join(c.PresetNames(), ", "))
	}
	return p, nil
}

// Marshal renders the effective configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Init writes the sample config to path unless a file already exists.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := os.WriteFile(path, []byte(Sample), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Sample is written by `log-hound config init`.
const Sample = `# log-hound configuration

# AWS profile and region used when --profile / --region are not given.
# default_profile: production
# default_region: ap-northeast-1

# Log groups searched when no -g is given.
default_groups: []

default_time_range: 1h
default_limit: 100

# Query orchestration.
region_concurrency: 5
submit_spacing: 200ms
job_timeout: 5m
max_attempts: 3

# Use with: log-hound search -p <preset> "ERROR"
presets:
  prod:
    description: Production environment
    groups: [app/production, api/production]
    time_range: 1h
    limit: 200
  staging:
    description: Staging environment
    groups: [app/staging, api/staging]
    exclude: [health-check, ping]
  all-regions:
    description: Search across all regions
    groups:
      - us-east-1:app/prod
      - ap-northeast-1:app/prod
      - eu-west-1:app/prod
`
