package geyser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Protocol is the mechanism used to load a plugin
type Protocol string

const (
	// ProtocolNative loads a Go plugin shared object into the host process
	ProtocolNative Protocol = "native"
	// ProtocolGRPC starts the plugin as a child process and talks to it over gRPC
	ProtocolGRPC Protocol = "grpc"
)

// PluginConfig is the host's view of a plugin configuration file.
// Only libpath and protocol are interpreted, everything else belongs to the plugin
type PluginConfig struct {
	// Path is the path of the configuration file itself, passed to Plugin.OnLoad
	Path string `json:"-"`

	LibPath  string   `json:"libpath"`
	Protocol Protocol `json:"protocol,omitempty"`
}

// LoadPluginConfig reads the plugin configuration file at path
func LoadPluginConfig(path string) (*PluginConfig, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand plugin config path %s: %w", path, err)
	}
	configRaw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin config: %w", err)
	}
	return ParsePluginConfig(path, configRaw)
}

// ParsePluginConfig parses the JSON plugin configuration read from path
func ParsePluginConfig(path string, configRaw []byte) (*PluginConfig, error) {
	c := &PluginConfig{Path: path}
	if err := json.Unmarshal(configRaw, c); err != nil {
		return nil, fmt.Errorf("failed to parse plugin config %s: %w", path, err)
	}
	if err := c.resolve(); err != nil {
		return nil, fmt.Errorf("invalid plugin config %s: %w", path, err)
	}
	return c, nil
}

func (c *PluginConfig) resolve() error {
	if c.LibPath == "" {
		return errors.New("libpath is required")
	}

	libPath, err := homedir.Expand(c.LibPath)
	if err != nil {
		return err
	}
	// relative library paths are relative to the config file
	if !filepath.IsAbs(libPath) {
		libPath = filepath.Join(filepath.Dir(c.Path), libPath)
	}
	c.LibPath = libPath

	switch c.Protocol {
	case ProtocolNative, ProtocolGRPC:
	case "":
		if strings.HasSuffix(c.LibPath, ".so") {
			c.Protocol = ProtocolNative
		} else {
			c.Protocol = ProtocolGRPC
		}
	default:
		return fmt.Errorf("unsupported protocol '%s', expected '%s' or '%s'", c.Protocol, ProtocolNative, ProtocolGRPC)
	}
	return nil
}
