// Package config provides configuration loading for FAIR Combine.
//
// Configuration is sourced from an optional YAML file, environment
// variables with the FAIRCOMBINE_ prefix, and built-in defaults, with
// the usual viper precedence (env > file > defaults).
package config

import (
	"fmt"
	"time"

	"github.com/faircombine/faircombine/internal/constants"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// Config is the root configuration for the service.
type Config struct {
	// Server holds the HTTP listener settings.
	Server ServerConfig `mapstructure:"server"`

	// Redis holds the backing-store connection settings.
	Redis RedisConfig `mapstructure:"redis"`

	// Catalog holds the indicator catalogue source settings.
	Catalog CatalogConfig `mapstructure:"catalog"`

	// Assessment holds the default-status rule tables.
	Assessment AssessmentConfig `mapstructure:"assessment"`

	// Evaluator holds the automated-evaluator callback settings.
	Evaluator EvaluatorConfig `mapstructure:"evaluator"`

	// Lock holds the per-session locking settings.
	Lock LockConfig `mapstructure:"lock"`

	// Logging holds the zerolog sink settings.
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string `mapstructure:"addr"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	// Addr is the redis host:port.
	Addr string `mapstructure:"addr"`

	// Password is the optional redis AUTH password.
	Password string `mapstructure:"password"`

	// DB is the redis database number.
	DB int `mapstructure:"db"`
}

// CatalogConfig holds the indicator catalogue source settings.
type CatalogConfig struct {
	// Path is the CSV file holding the indicator definitions.
	Path string `mapstructure:"path"`

	// Dependencies declares indicator dependencies, keyed by the
	// dependent indicator name.
	Dependencies map[string]DependencyConfig `mapstructure:"dependencies"`
}

// DependencyConfig declares one indicator's dependency set.
type DependencyConfig struct {
	// Combinator is "or" (default when empty) or "and".
	Combinator string `mapstructure:"combinator"`

	// DependsOn lists prerequisite indicator names.
	DependsOn []string `mapstructure:"depends_on"`
}

// AssessmentConfig holds the rule tables consulted during default
// status derivation.
type AssessmentConfig struct {
	// ArchiveIndicators lists indicators that only apply when the
	// subject includes a model archive. Without one they default to
	// failed and disabled.
	ArchiveIndicators []string `mapstructure:"archive_indicators"`

	// ForcedOutcomes maps source repository → indicator → outcome for
	// repositories with pre-agreed assessment results.
	ForcedOutcomes map[string]map[string]string `mapstructure:"forced_outcomes"`

	// AutomatedEvaluators maps indicator name → registered evaluator
	// name for checks that run without user input on non-manual
	// subjects.
	AutomatedEvaluators map[string]string `mapstructure:"automated_evaluators"`
}

// EvaluatorConfig holds automated-evaluator callback settings.
type EvaluatorConfig struct {
	// Key is the privileged credential the evaluator callback presents
	// to update disabled tasks.
	Key string `mapstructure:"key"`
}

// LockConfig holds per-session locking settings.
type LockConfig struct {
	// Timeout is the bounded wait for acquiring a session lock.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds zerolog sink settings.
type LoggingConfig struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string `mapstructure:"level"`

	// File is an optional log file path; empty disables the file sink.
	File string `mapstructure:"file"`

	// MaxSizeMB is the rotation threshold for the file sink.
	MaxSizeMB int `mapstructure:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `mapstructure:"max_backups"`
}

// IsArchiveIndicator reports whether name only applies to subjects that
// include a model archive.
func (c *Config) IsArchiveIndicator(name string) bool {
	for _, n := range c.Assessment.ArchiveIndicators {
		if n == name {
			return true
		}
	}
	return false
}

// ForcedOutcome returns the pre-agreed outcome for an indicator when
// the subject originates from a known repository. The second return is
// false when no forced outcome applies.
func (c *Config) ForcedOutcome(repository, indicator string) (constants.TaskStatus, bool) {
	if repository == "" {
		return "", false
	}
	byIndicator, ok := c.Assessment.ForcedOutcomes[repository]
	if !ok {
		return "", false
	}
	raw, ok := byIndicator[indicator]
	if !ok {
		return "", false
	}
	return constants.TaskStatus(raw), true
}

// AutomatedEvaluator returns the evaluator name mapped to an indicator,
// or false when the indicator has no automation.
func (c *Config) AutomatedEvaluator(indicator string) (string, bool) {
	name, ok := c.Assessment.AutomatedEvaluators[indicator]
	return name, ok
}

// Validate checks the configuration for values that would break the
// engine at runtime. It is called after every load.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", fcerrors.ErrConfiguration)
	}
	if cfg.Lock.Timeout <= 0 {
		return fmt.Errorf("%w: lock timeout must be positive", fcerrors.ErrConfiguration)
	}
	if cfg.Evaluator.Key == "" {
		return fmt.Errorf("%w: evaluator key must not be empty", fcerrors.ErrConfiguration)
	}
	for dependent, decl := range cfg.Catalog.Dependencies {
		if len(decl.DependsOn) == 0 {
			return fmt.Errorf("%w: dependency declaration for %q lists no indicators",
				fcerrors.ErrConfiguration, dependent)
		}
		if decl.Combinator != "" && !constants.Combinator(decl.Combinator).Valid() {
			return fmt.Errorf("%w: unknown combinator %q for %q",
				fcerrors.ErrConfiguration, decl.Combinator, dependent)
		}
	}
	for repo, byIndicator := range cfg.Assessment.ForcedOutcomes {
		for indicator, outcome := range byIndicator {
			if !constants.TaskStatus(outcome).Valid() {
				return fmt.Errorf("%w: forced outcome %q for %s/%s is not a task status",
					fcerrors.ErrConfiguration, outcome, repo, indicator)
			}
		}
	}
	return nil
}
