package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COMPOSED_"

// envOverrides lists the settings that can be overridden from the
// environment. Nil pointers and empty slices mean "not set".
type envOverrides struct {
	DefaultMode *string  `env:"DEFAULT_MODE"`
	Modes       []string `env:"MODES" envSeparator:","`

	WordList      *string `env:"WORD_LIST"`
	UserDB        *string `env:"USER_DB"`
	MaxCandidates *int    `env:"MAX_CANDIDATES"`
	FuzzyDistance *int    `env:"FUZZY_DISTANCE"`
	Learn         *bool   `env:"LEARN"`

	LogLevel  *string `env:"LOG_LEVEL"`
	LogFormat *string `env:"LOG_FORMAT"`
	LogOutput *string `env:"LOG_OUTPUT"`
	LogPath   *string `env:"LOG_PATH"`

	BusName    *string `env:"IBUS_BUS_NAME"`
	EngineName *string `env:"IBUS_ENGINE_NAME"`

	MetricsEnabled *bool   `env:"METRICS_ENABLED"`
	MetricsListen  *string `env:"METRICS_LISTEN"`
}

// ApplyEnvOverrides applies COMPOSED_* environment variables.
func (c *Config) ApplyEnvOverrides() error {
	return c.applyEnv(nil)
}

// applyEnv reads overrides from environ, or from the process environment
// when environ is nil.
func (c *Config) applyEnv(environ map[string]string) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setIf(&c.Engine.DefaultMode, o.DefaultMode)
	if len(o.Modes) > 0 {
		c.Engine.Modes = o.Modes
	}

	setIf(&c.Dictionary.WordList, o.WordList)
	setIf(&c.Dictionary.UserDB, o.UserDB)
	setIf(&c.Dictionary.MaxCandidates, o.MaxCandidates)
	setIf(&c.Dictionary.FuzzyDistance, o.FuzzyDistance)
	setIf(&c.Dictionary.Learn, o.Learn)

	setIf(&c.Logging.Level, o.LogLevel)
	setIf(&c.Logging.Format, o.LogFormat)
	setIf(&c.Logging.Output, o.LogOutput)
	setIf(&c.Logging.FilePath, o.LogPath)

	setIf(&c.IBus.BusName, o.BusName)
	setIf(&c.IBus.EngineName, o.EngineName)

	setIf(&c.Metrics.Enabled, o.MetricsEnabled)
	setIf(&c.Metrics.Listen, o.MetricsListen)
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
