// Package config handles configuration loading and validation for composed.
//
// Configuration is read from TOML, JSON or YAML (chosen by file
// extension), checked against an embedded JSON schema, overlaid with
// COMPOSED_* environment variables and then validated semantically.
// Loader adds fsnotify-driven hot reload.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"composed/internal/logging"
)

// Version is the current configuration format version.
const Version = 1

// Config is the complete configuration.
type Config struct {
	Version int `toml:"version" json:"version" yaml:"version"`

	Engine     EngineConfig     `toml:"engine" json:"engine" yaml:"engine"`
	Dictionary DictionaryConfig `toml:"dictionary" json:"dictionary" yaml:"dictionary"`
	Logging    LoggingConfig    `toml:"logging" json:"logging" yaml:"logging"`
	IBus       IBusConfig       `toml:"ibus" json:"ibus" yaml:"ibus"`
	Metrics    MetricsConfig    `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// EngineConfig selects the composers offered and the one active at start.
type EngineConfig struct {
	// DefaultMode is the input mode selected when an engine is created.
	DefaultMode string `toml:"default_mode" json:"default_mode" yaml:"default_mode"`

	// Modes lists the enabled input modes in cycling order.
	Modes []string `toml:"modes" json:"modes" yaml:"modes"`

	// DeadKeys maps extra dead-key characters to the combining mark they
	// apply, e.g. "," = "\u0327" for cedilla.
	DeadKeys map[string]string `toml:"dead_keys" json:"dead_keys" yaml:"dead_keys"`
}

// DictionaryConfig configures the word composer's candidate source.
type DictionaryConfig struct {
	// WordList is a newline-separated "word [frequency]" file. Empty
	// disables candidates.
	WordList string `toml:"word_list" json:"word_list" yaml:"word_list"`

	// UserDB is the sqlite database of selection counts. Empty disables
	// learning.
	UserDB string `toml:"user_db" json:"user_db" yaml:"user_db"`

	MaxCandidates int  `toml:"max_candidates" json:"max_candidates" yaml:"max_candidates"`
	FuzzyDistance int  `toml:"fuzzy_distance" json:"fuzzy_distance" yaml:"fuzzy_distance"`
	Learn         bool `toml:"learn" json:"learn" yaml:"learn"`
}

// LoggingConfig mirrors logging.Config in file form.
type LoggingConfig struct {
	Level      string `toml:"level" json:"level" yaml:"level"`
	Format     string `toml:"format" json:"format" yaml:"format"`
	Output     string `toml:"output" json:"output" yaml:"output"`
	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	Compress   bool   `toml:"compress" json:"compress" yaml:"compress"`
}

// IBusConfig configures the IBus front-end.
type IBusConfig struct {
	// BusName is the well-known name requested on the IBus bus.
	BusName string `toml:"bus_name" json:"bus_name" yaml:"bus_name"`

	// EngineName is the engine name advertised in the component XML and
	// passed to CreateEngine.
	EngineName string `toml:"engine_name" json:"engine_name" yaml:"engine_name"`

	// ComponentPath is where --install writes the component XML.
	ComponentPath string `toml:"component_path" json:"component_path" yaml:"component_path"`

	// Layout is the keyboard layout pinned in the component XML.
	Layout string `toml:"layout" json:"layout" yaml:"layout"`

	PIDFile string `toml:"pid_file" json:"pid_file" yaml:"pid_file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Listen  string `toml:"listen" json:"listen" yaml:"listen"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	data := DataDir()

	return &Config{
		Version: Version,
		Engine: EngineConfig{
			DefaultMode: "word",
			Modes:       []string{"word", "deadkey", "direct"},
			DeadKeys:    map[string]string{},
		},
		Dictionary: DictionaryConfig{
			WordList:      filepath.Join(data, "words.txt"),
			UserDB:        filepath.Join(data, "user.db"),
			MaxCandidates: 9,
			FuzzyDistance: 1,
			Learn:         true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   logging.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
		IBus: IBusConfig{
			BusName:       "org.freedesktop.IBus.Composed",
			EngineName:    "composed",
			ComponentPath: filepath.Join(ComponentDir(), "composed.xml"),
			Layout:        "us",
			PIDFile:       filepath.Join(RuntimeDir(), "composed-ibus.pid"),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},
	}
}

// Load reads configuration from path, or from ConfigPath when path is
// empty. A missing file yields the defaults. Environment overrides are
// applied; semantic validation is left to Validate.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.expandPaths()
	return cfg, nil
}

func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Dictionary.WordList,
		&c.Dictionary.UserDB,
		&c.Logging.FilePath,
		&c.IBus.ComponentPath,
		&c.IBus.PIDFile,
	} {
		*p = expandPath(*p)
	}
}

// loadConfigFromFile decodes path over the defaults after checking the
// raw document against the schema.
func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	format, err := detectFormat(path, data)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(data, format); err != nil {
		return nil, err
	}
	if err := decode(data, format, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", strings.ToUpper(format), err)
	}
	return cfg, nil
}

const (
	formatTOML = "toml"
	formatJSON = "json"
	formatYAML = "yaml"
)

// detectFormat picks a decoder by extension, trying each in turn for
// unknown extensions.
func detectFormat(path string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML, nil
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	}

	for _, f := range []string{formatTOML, formatJSON, formatYAML} {
		if _, err := decodeRaw(data, f); err == nil {
			return f, nil
		}
	}
	return "", fmt.Errorf("parse config %s: not TOML, JSON or YAML", filepath.Base(path))
}

func decode(data []byte, format string, cfg *Config) error {
	switch format {
	case formatJSON:
		return json.Unmarshal(data, cfg)
	case formatYAML:
		return yaml.Unmarshal(data, cfg)
	default:
		_, err := toml.Decode(string(data), cfg)
		return err
	}
}

// decodeRaw decodes data into a generic document.
func decodeRaw(data []byte, format string) (map[string]any, error) {
	raw := map[string]any{}
	var err error
	switch format {
	case formatJSON:
		err = json.Unmarshal(data, &raw)
	case formatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = toml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// Encode writes c to w as "toml", "json" or "yaml".
func (c *Config) Encode(w io.Writer, format string) error {
	var err error
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(c)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = enc.Encode(c)
		if err == nil {
			err = enc.Close()
		}
	case "toml":
		err = toml.NewEncoder(w).Encode(c)
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// Save writes c to path in the format implied by its extension.
func (c *Config) Save(path string) error {
	format := "toml"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = "json"
	case ".yaml", ".yml":
		format = "yaml"
	}
	var b bytes.Buffer
	if err := c.Encode(&b, format); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, b.Bytes(), 0600)
}

// Validate checks the configuration and returns a ValidationErrors of
// the fatal problems, or nil. Warnings are available from Warnings.
func (c *Config) Validate() error {
	if errs := ValidateConfig(c).Errors(); len(errs) > 0 {
		return errs
	}
	return nil
}

// Warnings returns non-fatal validation findings.
func (c *Config) Warnings() ValidationErrors {
	return ValidateConfig(c).Warnings()
}

// EnsureDirectories creates the directories the configured files live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Dictionary.UserDB),
		filepath.Dir(c.IBus.PIDFile),
	}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Engine.Modes = append([]string(nil), c.Engine.Modes...)
	clone.Engine.DeadKeys = make(map[string]string, len(c.Engine.DeadKeys))
	for k, v := range c.Engine.DeadKeys {
		clone.Engine.DeadKeys[k] = v
	}
	return &clone
}

// DeadKeyMap converts DeadKeys to runes. Entries that are not single
// characters are skipped; Validate reports them.
func (e EngineConfig) DeadKeyMap() map[rune]rune {
	out := make(map[rune]rune, len(e.DeadKeys))
	for k, v := range e.DeadKeys {
		kr, vr := []rune(k), []rune(v)
		if len(kr) == 1 && len(vr) == 1 {
			out[kr[0]] = vr[0]
		}
	}
	return out
}

// LoggerConfig converts the section to a logging.Config for component.
func (l LoggingConfig) LoggerConfig(component string) (*logging.Config, error) {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(l.Format)
	if err != nil {
		return nil, err
	}
	return &logging.Config{
		Level:      level,
		Format:     format,
		Output:     l.Output,
		FilePath:   l.FilePath,
		MaxSize:    int64(l.MaxSizeMB),
		MaxBackups: l.MaxBackups,
		Compress:   l.Compress,
		Component:  component,
	}, nil
}
