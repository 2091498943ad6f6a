// Package config loads tracer settings from defaults, a TOML file, SCOPETRACE_* environment
// variables and command-line flags, and builds a ready-to-use Tracer from them.
package config

import (
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/gburgyan/go-scopetrace"
	"github.com/gburgyan/go-scopetrace/internal/logger"
)

// Sink types.
const (
	SinkConsole = "console"
	SinkStderr  = "stderr"
	SinkFile    = "file"
	SinkLogger  = "logger"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	validSinks = []string{SinkConsole, SinkStderr, SinkFile, SinkLogger}
)

// Config is the full tracer configuration.
type Config struct {
	Cache CacheConfig `koanf:"cache"`
	Trace TraceConfig `koanf:"trace"`
	Sink  SinkConfig  `koanf:"sink"`
	Log   LogConfig   `koanf:"log"`
}

// CacheConfig controls output batching.
type CacheConfig struct {
	// Capacity is the number of lines buffered before a flush. 0 or 1 disables the cache.
	Capacity uint `koanf:"capacity"`

	// Grow doubles the capacity instead of flushing when the buffer overflows it.
	Grow bool `koanf:"grow"`
}

// TraceConfig controls what is displayed.
type TraceConfig struct {
	Active   bool   `koanf:"active"`
	Announce bool   `koanf:"announce"`
	Unit     string `koanf:"unit"`
}

// SinkConfig selects where trace lines go.
type SinkConfig struct {
	// Type is one of console, stderr, file or logger.
	Type string `koanf:"type"`

	// Path is the file base name for the file sink, and the log file for the logger sink
	// (stderr when empty).
	Path string `koanf:"path"`

	// Color controls highlighting on the console sinks.
	Color bool `koanf:"color"`

	// Level is the level trace lines are logged at by the logger sink.
	Level string `koanf:"level"`
}

// LogConfig controls the tracer's own diagnostics, which go to stderr.
type LogConfig struct {
	Level string `koanf:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{Capacity: 0},
		Trace: TraceConfig{Active: true, Announce: true, Unit: "ms"},
		Sink:  SinkConfig{Type: SinkConsole, Path: "scopetrace", Color: true, Level: "info"},
		Log:   LogConfig{Level: "off"},
	}
}

// Validate reports every invalid setting at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.WithMessage(ErrInvalidConfig, "config is nil")
	}

	var errs []error
	if _, ok := scopetrace.FormatterForUnit(cfg.Trace.Unit); !ok {
		errs = append(errs, errors.Newf("trace.unit: unknown unit %q", cfg.Trace.Unit))
	}
	if !slices.Contains(validSinks, cfg.Sink.Type) {
		errs = append(errs, errors.Newf("sink.type: must be one of %v, got %q", validSinks, cfg.Sink.Type))
	}
	if cfg.Sink.Type == SinkFile && cfg.Sink.Path == "" {
		errs = append(errs, errors.New("sink.path: required for the file sink"))
	}
	if _, err := logger.ParseLevel(cfg.Sink.Level); err != nil {
		errs = append(errs, errors.Wrap(err, "sink.level"))
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, errors.Wrap(err, "log.level"))
	}
	if len(errs) > 0 {
		return errors.Mark(
			errors.Wrapf(errors.Join(errs...), "validation failed with %d error(s)", len(errs)),
			ErrInvalidConfig,
		)
	}
	return nil
}
