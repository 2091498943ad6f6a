package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by the Loader.
const EnvPrefix = "SCOPETRACE_"

// ErrInvalidPermissions is returned when the config file is world-writable.
var ErrInvalidPermissions = errors.New("config file has insecure permissions")

// Loader reads configuration from multiple sources.
// Precedence order (highest to lowest):
// 1. Flags passed to Load
// 2. Environment variables (SCOPETRACE_CACHE_CAPACITY → cache.capacity)
// 3. The TOML file, when a path is set
// 4. Defaults
type Loader struct {
	path string
}

// NewLoader creates a loader reading the TOML file at path; an empty path skips the file.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load merges every source and validates the result. Flag keys use the dotted config path,
// e.g. "cache.capacity".
func (l *Loader) Load(flags map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsToMap(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if l.path != "" {
		if err := l.loadTOMLFile(k); err != nil {
			return nil, errors.Wrapf(err, "failed to load %s", l.path)
		}
	}

	envOpt := env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform,
	}
	if err := k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if len(flags) > 0 {
		if err := k.Load(confmap.Provider(flags, "."), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) loadTOMLFile(k *koanf.Koanf) error {
	info, err := os.Stat(l.path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o002 != 0 {
		return errors.Wrapf(ErrInvalidPermissions, "%s is world-writable (mode: %s)", l.path, info.Mode().Perm())
	}
	return k.Load(file.Provider(l.path), tomlparser.Parser())
}

// envTransform maps SCOPETRACE_SINK_TYPE to sink.type.
func envTransform(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", ".")
	return key, value
}

func defaultsToMap() map[string]any {
	d := Default()
	return map[string]any{
		"cache.capacity": d.Cache.Capacity,
		"cache.grow":     d.Cache.Grow,
		"trace.active":   d.Trace.Active,
		"trace.announce": d.Trace.Announce,
		"trace.unit":     d.Trace.Unit,
		"sink.type":      d.Sink.Type,
		"sink.path":      d.Sink.Path,
		"sink.color":     d.Sink.Color,
		"sink.level":     d.Sink.Level,
		"log.level":      d.Log.Level,
	}
}
