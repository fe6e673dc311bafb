// Package config loads the process configuration from an HCL file, the environment and command line flags.
//
// Precedence, lowest first: the HCL file, SNAPSHOT_GEYSER_<KEY> environment variables, flags.
package config

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/plerkle-io/snapshot-geyser/artifact_source"
	"github.com/plerkle-io/snapshot-geyser/constants"
	"github.com/plerkle-io/snapshot-geyser/error_types"
	"github.com/plerkle-io/snapshot-geyser/loader"
	"github.com/plerkle-io/snapshot-geyser/logging"
	"github.com/plerkle-io/snapshot-geyser/rate_limiter"
	"github.com/plerkle-io/snapshot-geyser/replay"
)

// keys shared by the HCL file, the environment and flags
const (
	KeySnapshotURL       = "snapshot_url"
	KeyPluginConfig      = "plugin_config"
	KeyLogLevel          = "log_level"
	KeyProgressInterval  = "progress_interval"
	KeyMaxBytesPerSecond = "download.max_bytes_per_second"
	KeyBurstBytes        = "download.burst_bytes"
)

// OverridableKeys lists the keys which may be set from the environment or flags
var OverridableKeys = []string{
	KeySnapshotURL,
	KeyPluginConfig,
	KeyLogLevel,
	KeyProgressInterval,
	KeyMaxBytesPerSecond,
	KeyBurstBytes,
}

type Config struct {
	SnapshotURL      string `hcl:"snapshot_url,optional"`
	PluginConfig     string `hcl:"plugin_config,optional"`
	LogLevel         string `hcl:"log_level,optional"`
	ProgressInterval uint64 `hcl:"progress_interval,optional"`

	Download *DownloadConfig                 `hcl:"download,block"`
	Http     *artifact_source.HttpConnection `hcl:"http,block"`
	Aws      *artifact_source.AwsConnection  `hcl:"aws,block"`
	Gcp      *artifact_source.GcpConnection  `hcl:"gcp,block"`
}

// DownloadConfig throttles the snapshot download
type DownloadConfig struct {
	MaxBytesPerSecond *int64 `hcl:"max_bytes_per_second"`
	// BurstBytes defaults to one second of MaxBytesPerSecond
	BurstBytes *int64 `hcl:"burst_bytes"`
}

func (d *DownloadConfig) Validate() error {
	if d.MaxBytesPerSecond != nil && *d.MaxBytesPerSecond <= 0 {
		return fmt.Errorf("max_bytes_per_second must be greater than 0")
	}
	if d.BurstBytes != nil {
		if d.MaxBytesPerSecond == nil {
			return fmt.Errorf("burst_bytes requires max_bytes_per_second")
		}
		if *d.BurstBytes <= 0 {
			return fmt.Errorf("burst_bytes must be greater than 0")
		}
	}
	return nil
}

// EnvVar returns the environment variable which overrides key
func EnvVar(key string) string {
	return constants.EnvPrefix + "_" + strcase.ToScreamingSnake(strings.ReplaceAll(key, ".", "_"))
}

// FlagName returns the command line flag which overrides key
func FlagName(key string) string {
	return strcase.ToKebab(key[strings.LastIndex(key, ".")+1:])
}

// ApplyOverrides layers the environment and any flags bound to v over the values read from the file
func (c *Config) ApplyOverrides(v *viper.Viper) error {
	for _, key := range OverridableKeys {
		if err := v.BindEnv(key, EnvVar(key)); err != nil {
			return err
		}
	}

	// file values sit below the environment and flags
	v.SetDefault(KeySnapshotURL, c.SnapshotURL)
	v.SetDefault(KeyPluginConfig, c.PluginConfig)
	v.SetDefault(KeyLogLevel, c.LogLevel)
	v.SetDefault(KeyProgressInterval, c.ProgressInterval)

	c.SnapshotURL = v.GetString(KeySnapshotURL)
	c.PluginConfig = v.GetString(KeyPluginConfig)
	c.LogLevel = v.GetString(KeyLogLevel)
	c.ProgressInterval = v.GetUint64(KeyProgressInterval)

	if v.IsSet(KeyMaxBytesPerSecond) {
		c.download().MaxBytesPerSecond = int64Ptr(v.GetInt64(KeyMaxBytesPerSecond))
	}
	if v.IsSet(KeyBurstBytes) {
		c.download().BurstBytes = int64Ptr(v.GetInt64(KeyBurstBytes))
	}
	return nil
}

func (c *Config) download() *DownloadConfig {
	if c.Download == nil {
		c.Download = &DownloadConfig{}
	}
	return c.Download
}

func int64Ptr(i int64) *int64 {
	return &i
}

// Validate returns a ConfigurationError describing every problem found
func (c *Config) Validate() error {
	var problems []string
	if c.SnapshotURL == "" {
		problems = append(problems, fmt.Sprintf("snapshot_url must be set (--%s or %s)", FlagName(KeySnapshotURL), EnvVar(KeySnapshotURL)))
	}
	if c.PluginConfig == "" {
		problems = append(problems, fmt.Sprintf("plugin_config must be set (--%s or %s)", FlagName(KeyPluginConfig), EnvVar(KeyPluginConfig)))
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			problems = append(problems, err.Error())
		}
	}

	type block struct {
		name      string
		validator interface{ Validate() error }
	}
	var blocks []block
	if c.Download != nil {
		blocks = append(blocks, block{"download", c.Download})
	}
	if c.Http != nil {
		blocks = append(blocks, block{"http", c.Http})
	}
	if c.Aws != nil {
		blocks = append(blocks, block{"aws", c.Aws})
	}
	if c.Gcp != nil {
		blocks = append(blocks, block{"gcp", c.Gcp})
	}
	for _, b := range blocks {
		if err := b.validator.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %s", b.name, err.Error()))
		}
	}

	if len(problems) > 0 {
		return error_types.NewConfigurationError("invalid configuration", fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

// Limiter returns the download limiter, or nil when the download is not throttled
func (c *Config) Limiter() (*rate_limiter.Limiter, error) {
	if c.Download == nil || c.Download.MaxBytesPerSecond == nil {
		return nil, nil
	}
	burst := *c.Download.MaxBytesPerSecond
	if c.Download.BurstBytes != nil {
		burst = *c.Download.BurstBytes
	}
	limiter, err := rate_limiter.NewLimiter(&rate_limiter.Definition{
		Name:       "download",
		FillRate:   rate.Limit(*c.Download.MaxBytesPerSecond),
		BucketSize: burst,
	})
	if err != nil {
		return nil, error_types.NewConfigurationError("invalid download limits", err)
	}
	return limiter, nil
}

// ReplayConfig converts the process configuration into the settings of a replay pass
func (c *Config) ReplayConfig() (*replay.Config, error) {
	limiter, err := c.Limiter()
	if err != nil {
		return nil, err
	}

	var sourceOpts []artifact_source.Option
	if c.Http != nil {
		sourceOpts = append(sourceOpts, artifact_source.WithHttpConnection(c.Http))
	}
	if c.Aws != nil {
		sourceOpts = append(sourceOpts, artifact_source.WithAwsConnection(c.Aws))
	}
	if c.Gcp != nil {
		sourceOpts = append(sourceOpts, artifact_source.WithGcpConnection(c.Gcp))
	}

	return &replay.Config{
		SnapshotURL:      c.SnapshotURL,
		PluginConfig:     c.PluginConfig,
		ProgressInterval: c.ProgressInterval,
		SourceOptions:    sourceOpts,
		LoadOptions:      []loader.Option{loader.WithLogger(logging.NewHCLogger("plugin"))},
		Limiter:          limiter,
	}, nil
}
