package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plerkle-io/snapshot-geyser/artifact_source"
	"github.com/plerkle-io/snapshot-geyser/error_types"
)

const fullConfig = `
snapshot_url      = "s3://mainnet-snapshots/snapshot-250000000-abc.tar.zst"
plugin_config     = env("GEYSER_TEST_PLUGIN_CONFIG")
log_level         = env_or("GEYSER_TEST_UNSET", "debug")
progress_interval = 500000

download {
  max_bytes_per_second = 104857600
  burst_bytes          = 8388608
}

http {
  max_conns_per_host = 8
}

aws {
  region              = "eu-west-1"
  endpoint_url        = "http://localhost:9000"
  s3_force_path_style = true
}

gcp {
  quota_project = "billing-project"
}
`

func TestParse(t *testing.T) {
	t.Setenv("GEYSER_TEST_PLUGIN_CONFIG", "/etc/geyser/plugin.json")

	cfg, err := Parse([]byte(fullConfig), "snapshot-geyser.hcl")
	require.NoError(t, err)

	assert.Equal(t, "s3://mainnet-snapshots/snapshot-250000000-abc.tar.zst", cfg.SnapshotURL)
	assert.Equal(t, "/etc/geyser/plugin.json", cfg.PluginConfig)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(500000), cfg.ProgressInterval)
	require.NotNil(t, cfg.Download)
	assert.Equal(t, int64(104857600), *cfg.Download.MaxBytesPerSecond)
	assert.Equal(t, int64(8388608), *cfg.Download.BurstBytes)
	assert.Equal(t, 8, *cfg.Http.MaxConnsPerHost)
	assert.Equal(t, "eu-west-1", *cfg.Aws.Region)
	assert.True(t, *cfg.Aws.S3ForcePathStyle)
	assert.Equal(t, "billing-project", *cfg.Gcp.QuotaProject)
	assert.Nil(t, cfg.Gcp.Credentials)
	assert.NoError(t, cfg.Validate())
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]struct {
		src     string
		wantErr string
	}{
		"syntax":            {src: `snapshot_url = "https://example.com`, wantErr: "failed to parse config"},
		"unknown attribute": {src: `snapshot_uri = "https://example.com/snapshot.tar.zst"`, wantErr: "failed to decode config"},
		"wrong type":        {src: `progress_interval = "often"`, wantErr: "failed to decode config"},
		"duplicate block":   {src: "download {}\ndownload {}", wantErr: "failed to decode config"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "snapshot-geyser.hcl")
			assert.Equal(t, error_types.KindConfiguration, error_types.KindOf(err))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestKeyNames(t *testing.T) {
	assert.Equal(t, "SNAPSHOT_GEYSER_SNAPSHOT_URL", EnvVar(KeySnapshotURL))
	assert.Equal(t, "SNAPSHOT_GEYSER_DOWNLOAD_MAX_BYTES_PER_SECOND", EnvVar(KeyMaxBytesPerSecond))
	assert.Equal(t, "snapshot-url", FlagName(KeySnapshotURL))
	assert.Equal(t, "max-bytes-per-second", FlagName(KeyMaxBytesPerSecond))
}

func writeConfig(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot-geyser.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0600))
	return path
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
snapshot_url  = "https://file.example.com/snapshot.tar.zst"
plugin_config = "/file/plugin.json"
log_level     = "warn"
`)
	t.Setenv(EnvVar(KeyPluginConfig), "/env/plugin.json")
	t.Setenv(EnvVar(KeyLogLevel), "error")
	t.Setenv(EnvVar(KeyMaxBytesPerSecond), "1048576")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(FlagName(KeyLogLevel), "info", "")
	flags.String(FlagName(KeySnapshotURL), "", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "debug"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag(KeyLogLevel, flags.Lookup(FlagName(KeyLogLevel))))
	require.NoError(t, v.BindPFlag(KeySnapshotURL, flags.Lookup(FlagName(KeySnapshotURL))))

	cfg, err := Load(path, v)
	require.NoError(t, err)

	// file, unchanged flag
	assert.Equal(t, "https://file.example.com/snapshot.tar.zst", cfg.SnapshotURL)
	// env over file
	assert.Equal(t, "/env/plugin.json", cfg.PluginConfig)
	// flag over env
	assert.Equal(t, "debug", cfg.LogLevel)
	// env without file value
	require.NotNil(t, cfg.Download)
	assert.Equal(t, int64(1048576), *cfg.Download.MaxBytesPerSecond)
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv(EnvVar(KeySnapshotURL), "/data/snapshot.tar.zst")
	t.Setenv(EnvVar(KeyPluginConfig), "/data/plugin.json")

	cfg, err := Load("", viper.New())
	require.NoError(t, err)
	assert.Equal(t, "/data/snapshot.tar.zst", cfg.SnapshotURL)
	assert.Nil(t, cfg.Download)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.hcl"), viper.New())
	assert.Equal(t, error_types.KindConfiguration, error_types.KindOf(err))

	_, err = Load(writeConfig(t, `log_level = "info"`), viper.New())
	assert.Equal(t, error_types.KindConfiguration, error_types.KindOf(err))
	assert.ErrorContains(t, err, "--snapshot-url")
	assert.ErrorContains(t, err, "SNAPSHOT_GEYSER_PLUGIN_CONFIG")
}

func TestValidate(t *testing.T) {
	zero := int64(0)
	burst := int64(10)
	retries := 0
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "bad log level", cfg: Config{LogLevel: "verbose"}, wantErr: "unknown log level"},
		{name: "zero rate", cfg: Config{Download: &DownloadConfig{MaxBytesPerSecond: &zero}}, wantErr: "download: max_bytes_per_second"},
		{name: "burst without rate", cfg: Config{Download: &DownloadConfig{BurstBytes: &burst}}, wantErr: "download: burst_bytes requires"},
		{name: "aws retries", cfg: Config{Aws: &artifact_source.AwsConnection{MaxErrorRetryAttempts: &retries}}, wantErr: "aws: max_error_retry_attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.SnapshotURL = "/data/snapshot.tar.zst"
			tt.cfg.PluginConfig = "/data/plugin.json"
			err := tt.cfg.Validate()
			assert.Equal(t, error_types.KindConfiguration, error_types.KindOf(err))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_ReplayConfig(t *testing.T) {
	rate := int64(1 << 20)
	cfg := &Config{
		SnapshotURL:      "https://snapshots.example.com/snapshot.tar.zst",
		PluginConfig:     "/data/plugin.json",
		ProgressInterval: 10,
		Download:         &DownloadConfig{MaxBytesPerSecond: &rate},
		Http:             &artifact_source.HttpConnection{},
	}
	rc, err := cfg.ReplayConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg.SnapshotURL, rc.SnapshotURL)
	assert.Equal(t, uint64(10), rc.ProgressInterval)
	assert.Len(t, rc.SourceOptions, 1)
	require.NotNil(t, rc.Limiter)
	assert.Equal(t, "download", rc.Limiter.Name)

	cfg.Download = nil
	rc, err = cfg.ReplayConfig()
	require.NoError(t, err)
	assert.Nil(t, rc.Limiter)
}
