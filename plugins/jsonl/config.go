package jsonl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/mitchellh/go-homedir"
)

// Config is read from the plugin configuration file the host passes to OnLoad
type Config struct {
	// OutputPath is the file accounts are written to. Relative paths resolve against the config file directory
	OutputPath string `json:"output_path"`
	// Owners restricts output to accounts owned by these programs, all accounts when empty
	Owners []string `json:"owners,omitempty"`
	// IncludeData writes the base64 account data
	IncludeData bool `json:"include_data,omitempty"`

	owners map[solana.PublicKey]struct{}
}

func loadConfig(configFile string) (*Config, error) {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}
	c := &Config{}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
	}

	if c.OutputPath == "" {
		return nil, fmt.Errorf("%s: output_path must be set", configFile)
	}
	if c.OutputPath, err = homedir.Expand(c.OutputPath); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(c.OutputPath) {
		c.OutputPath = filepath.Join(filepath.Dir(configFile), c.OutputPath)
	}

	if len(c.Owners) > 0 {
		c.owners = make(map[solana.PublicKey]struct{}, len(c.Owners))
		for _, o := range c.Owners {
			key, err := solana.PublicKeyFromBase58(o)
			if err != nil {
				return nil, fmt.Errorf("invalid owner %s: %w", o, err)
			}
			c.owners[key] = struct{}{}
		}
	}
	return c, nil
}

func (c *Config) wants(owner solana.PublicKey) bool {
	if c.owners == nil {
		return true
	}
	_, ok := c.owners[owner]
	return ok
}
