package config

import (
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/gburgyan/go-scopetrace"
	"github.com/gburgyan/go-scopetrace/internal/logger"
	"github.com/gburgyan/go-scopetrace/sink"
)

// Build creates a Tracer from cfg, after validating it. Extra options are applied after the
// configured ones.
func Build(cfg *Config, opts ...scopetrace.Option) (*scopetrace.Tracer, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	s, err := buildSink(cfg.Sink)
	if err != nil {
		return nil, err
	}

	format, _ := scopetrace.FormatterForUnit(cfg.Trace.Unit)
	logLevel, _ := logger.ParseLevel(cfg.Log.Level)

	all := []scopetrace.Option{
		scopetrace.WithCacheCapacity(cfg.Cache.Capacity),
		scopetrace.WithCacheGrowth(cfg.Cache.Grow),
		scopetrace.WithTraceActive(cfg.Trace.Active),
		scopetrace.WithAnnounceScopeStart(cfg.Trace.Announce),
		scopetrace.WithDurationFormatter(format),
		scopetrace.WithLogger(logger.New(os.Stderr, logLevel)),
	}
	return scopetrace.New(s, append(all, opts...)...), nil
}

func buildSink(cfg SinkConfig) (scopetrace.Sink, error) {
	switch cfg.Type {
	case SinkConsole:
		return consoleSink(sink.NewConsole(os.Stdout), cfg.Color), nil
	case SinkStderr:
		return consoleSink(sink.NewConsole(os.Stderr), cfg.Color), nil
	case SinkFile:
		return sink.NewFile(cfg.Path), nil
	case SinkLogger:
		level, _ := logger.ParseLevel(cfg.Level)
		if cfg.Path == "" {
			return sink.NewLogger(logger.New(os.Stderr, logger.LevelDebug), level.ToSlogLevel()), nil
		}
		h, err := logger.NewFileHandler(cfg.Path, logger.LevelDebug)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "opening %s", cfg.Path), sink.ErrSinkOpen)
		}
		return sink.NewLogger(slog.New(h), level.ToSlogLevel()), nil
	}
	return nil, errors.Wrapf(ErrInvalidConfig, "unknown sink type %q", cfg.Type)
}

func consoleSink(c *sink.Console, colored bool) *sink.Console {
	if !colored {
		return c.WithoutColor()
	}
	return c
}
