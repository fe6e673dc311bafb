package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/turbot/go-kit/helpers"
	"github.com/turbot/pipe-fittings/error_helpers"

	"github.com/plerkle-io/snapshot-geyser/error_types"
)

// Parse decodes HCL configuration. filename is only used in diagnostics
func Parse(src []byte, filename string) (*Config, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		slog.Warn("failed to parse config", "file", filename)
		return nil, error_types.NewConfigurationError(fmt.Sprintf("failed to parse %s", filename), error_helpers.HclDiagsToError("failed to parse config", diags))
	}

	target := &Config{}
	if diags := decodeBody(file.Body, target); diags.HasErrors() {
		return nil, error_types.NewConfigurationError(fmt.Sprintf("failed to decode %s", filename), error_helpers.HclDiagsToError("failed to decode config", diags))
	}
	return target, nil
}

// decodeBody decodes body into target, reporting a panic raised by the decoder as a diagnostic
func decodeBody(body hcl.Body, target *Config) (diags hcl.Diagnostics) {
	defer func() {
		if r := recover(); r != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "unexpected error decoding config",
				Detail:   helpers.ToError(r).Error(),
			})
		}
	}()
	return gohcl.DecodeBody(body, evalContext(), target)
}

// Load reads the HCL file at path, if any, applies the overrides from v and validates the result
func Load(path string, v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, error_types.NewConfigurationError("invalid config path", err)
		}
		src, err := os.ReadFile(expanded)
		if err != nil {
			return nil, error_types.NewConfigurationError("failed to read config file", err)
		}
		if cfg, err = Parse(src, expanded); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyOverrides(v); err != nil {
		return nil, error_types.NewConfigurationError("failed to read overrides", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
