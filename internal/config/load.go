package config

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/errors"
)

// newViperInstance creates a new Viper instance with the standard
// configuration: FAIRCOMBINE_ env prefix, key replacer and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from the optional file at path plus
// environment variables and defaults. An empty path skips the file and
// loads env + defaults only.
//
// The returned error is always a configuration error; a missing file at
// an explicitly requested path is treated as one.
func Load(ctx context.Context, path string) (*Config, error) {
	v := newViperInstance()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("redis.addr", cfg.Redis.Addr).
		Str("catalog.path", cfg.Catalog.Path).
		Dur("lock.timeout", cfg.Lock.Timeout).
		Int("dependency_declarations", len(cfg.Catalog.Dependencies)).
		Msg("configuration loaded and unmarshaled")

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// isConfigNotFoundError returns true if the error is a viper config
// file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from
// strings like "5s".
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

// setDefaults configures all default values on the Viper instance.
// IMPORTANT: keys must match the mapstructure tag names exactly.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8000")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Catalog defaults
	v.SetDefault("catalog.path", "metrics.csv")
	v.SetDefault("catalog.dependencies", map[string]any{})

	// Assessment defaults
	v.SetDefault("assessment.archive_indicators", []string{})
	v.SetDefault("assessment.forced_outcomes", map[string]any{})
	v.SetDefault("assessment.automated_evaluators", map[string]string{})

	// Evaluator defaults
	v.SetDefault("evaluator.key", "local-evaluator-key")

	// Lock defaults
	v.SetDefault("lock.timeout", constants.DefaultLockTimeout)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
}
