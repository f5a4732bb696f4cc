package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// ErrInvalidConfig is matched by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
	Warning bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for i := range e {
		msgs = append(msgs, e[i].Error())
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalidConfig) hold.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Warnings returns only warning-level entries.
func (e ValidationErrors) Warnings() ValidationErrors {
	var out ValidationErrors
	for _, v := range e {
		if v.Warning {
			out = append(out, v)
		}
	}
	return out
}

// Errors returns only error-level entries.
func (e ValidationErrors) Errors() ValidationErrors {
	var out ValidationErrors
	for _, v := range e {
		if !v.Warning {
			out = append(out, v)
		}
	}
	return out
}

// HasErrors reports whether any entry is fatal.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// KnownModes are the input modes the composer registry provides.
var KnownModes = []string{"word", "deadkey", "direct"}

// ValidateConfig returns every problem found in c, warnings included.
func ValidateConfig(c *Config) ValidationErrors {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateEngine(&c.Engine)...)
	errs = append(errs, validateDictionary(&c.Dictionary)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateIBus(&c.IBus)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)
	return errs
}

func validateEngine(e *EngineConfig) ValidationErrors {
	var errs ValidationErrors

	if len(e.Modes) == 0 {
		errs = append(errs, ValidationError{Field: "engine.modes", Message: "at least one mode is required"})
	}
	seen := make(map[string]bool, len(e.Modes))
	for _, m := range e.Modes {
		switch {
		case !slices.Contains(KnownModes, m):
			errs = append(errs, ValidationError{
				Field:   "engine.modes",
				Message: fmt.Sprintf("unknown mode %q (valid: %s)", m, strings.Join(KnownModes, ", ")),
			})
		case seen[m]:
			errs = append(errs, ValidationError{Field: "engine.modes", Message: fmt.Sprintf("duplicate mode %q", m)})
		}
		seen[m] = true
	}

	if !slices.Contains(e.Modes, e.DefaultMode) {
		errs = append(errs, ValidationError{
			Field:   "engine.default_mode",
			Message: fmt.Sprintf("mode %q is not in engine.modes", e.DefaultMode),
		})
	}

	for k, v := range e.DeadKeys {
		kr, vr := []rune(k), []rune(v)
		field := fmt.Sprintf("engine.dead_keys[%q]", k)
		if len(kr) != 1 || unicode.IsLetter(kr[0]) || unicode.IsDigit(kr[0]) || unicode.IsSpace(kr[0]) {
			errs = append(errs, ValidationError{Field: field, Message: "dead key must be a single non-letter character"})
		}
		if len(vr) != 1 || !unicode.Is(unicode.Mn, vr[0]) {
			errs = append(errs, ValidationError{Field: field, Message: "value must be a single combining mark"})
		}
	}

	return errs
}

func validateDictionary(d *DictionaryConfig) ValidationErrors {
	var errs ValidationErrors

	if d.MaxCandidates < 1 || d.MaxCandidates > 9 {
		errs = append(errs, ValidationError{
			Field:   "dictionary.max_candidates",
			Message: "must be between 1 and 9",
		})
	}
	if d.FuzzyDistance < 0 || d.FuzzyDistance > 3 {
		errs = append(errs, ValidationError{
			Field:   "dictionary.fuzzy_distance",
			Message: "must be between 0 and 3",
		})
	}
	if d.WordList != "" {
		if _, err := os.Stat(expandPath(d.WordList)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "dictionary.word_list",
				Message: fmt.Sprintf("word list unavailable, candidates disabled: %v", err),
				Warning: true,
			})
		}
	}
	if d.Learn && d.UserDB == "" {
		errs = append(errs, ValidationError{
			Field:   "dictionary.user_db",
			Message: "learning is enabled but no user database is set",
			Warning: true,
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr", "discard":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output includes a file",
			})
		}
		if l.MaxSizeMB < 1 {
			errs = append(errs, ValidationError{
				Field:   "logging.max_size_mb",
				Message: "max size must be at least 1 MB",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %q (valid: stdout, stderr, file, both, discard)", l.Output),
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	return errs
}

func validateIBus(i *IBusConfig) ValidationErrors {
	var errs ValidationErrors

	if parts := strings.Split(i.BusName, "."); len(parts) < 2 || slices.Contains(parts, "") {
		errs = append(errs, ValidationError{
			Field:   "ibus.bus_name",
			Message: fmt.Sprintf("%q is not a well-known D-Bus name", i.BusName),
		})
	}
	if i.EngineName == "" {
		errs = append(errs, ValidationError{Field: "ibus.engine_name", Message: "required field is missing"})
	}
	if i.Layout == "" {
		errs = append(errs, ValidationError{Field: "ibus.layout", Message: "required field is missing"})
	}
	if i.ComponentPath != "" && filepath.Ext(i.ComponentPath) != ".xml" {
		errs = append(errs, ValidationError{
			Field:   "ibus.component_path",
			Message: "component file must have a .xml extension",
		})
	}

	return errs
}

func validateMetrics(m *MetricsConfig) ValidationErrors {
	if !m.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.Listen); err != nil {
		return ValidationErrors{{
			Field:   "metrics.listen",
			Message: fmt.Sprintf("invalid listen address %q: %v", m.Listen, err),
		}}
	}
	return nil
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), strings.TrimPrefix(path, "~"))
	}
	return path
}
