package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	pfconstants "github.com/turbot/pipe-fittings/constants"
	"github.com/turbot/pipe-fittings/sanitize"

	"github.com/plerkle-io/snapshot-geyser/constants"
)

// levelName is the configured level, shared with the hclog logger handed to go-plugin
var levelName = "info"

// Initialize sets the default slog logger for the process.
// level takes precedence over SNAPSHOT_GEYSER_LOG_LEVEL, an empty level means info
func Initialize(source string, level string) error {
	if level == "" {
		level = os.Getenv(constants.EnvLogLevel)
	}
	if level == "" {
		level = "info"
	}
	leveler, err := ParseLevel(level)
	if err != nil {
		return err
	}
	levelName = strings.ToLower(level)
	slog.SetDefault(newLogger(source, leveler, os.Stderr))
	return nil
}

// ParseLevel converts a level name into a slog level
func ParseLevel(level string) (slog.Leveler, error) {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "off":
		return pfconstants.LogLevelOff, nil
	default:
		return nil, fmt.Errorf("unknown log level '%s', expected one of debug, info, warn, error, off", level)
	}
}

// newLogger returns a logger that writes JSON to w and sanitizes log entries
func newLogger(source string, level slog.Leveler, w io.Writer) *slog.Logger {
	if level == pfconstants.LogLevelOff {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	}

	handlerOptions := &slog.HandlerOptions{
		Level: level,

		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindGroup {
				return a
			}
			sanitized := sanitize.Instance.SanitizeKeyValue(a.Key, a.Value.Any())

			return slog.Attr{
				Key:   a.Key,
				Value: slog.AnyValue(sanitized),
			}
		},
	}
	return slog.New(slog.NewJSONHandler(w, handlerOptions)).With("source", source)
}

// NewHCLogger returns an hclog logger at the configured level, for go-plugin clients and servers
func NewHCLogger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(levelName),
		Output:     os.Stderr,
		JSONFormat: true,
	})
}

// Level returns the name of the configured level
func Level() string {
	return levelName
}
