// Package logging provides structured logging with slog for composed.
//
// Features:
//   - JSON and text output formats
//   - Log levels (debug, info, warn, error)
//   - Per-component and per-input-context child loggers
//   - Redaction of attributes that may carry user text
//   - Size-based file rotation with gzip of rotated files
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Level represents a logging level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format represents the output format for logs.
type Format int

const (
	// FormatText outputs human-readable text logs.
	FormatText Format = iota
	// FormatJSON outputs JSON-structured logs.
	FormatJSON
)

// Config holds the logging configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level

	// Format is the output format (text or JSON).
	Format Format

	// Output is "stdout", "stderr", "file", "both" (stderr and file)
	// or "discard".
	Output string

	// FilePath is the log file when Output includes a file.
	FilePath string

	// MaxSize is the size in megabytes at which the file is rotated.
	MaxSize int64

	// MaxBackups is the number of rotated files kept.
	MaxBackups int

	// Compress gzips rotated files.
	Compress bool

	// AddSource adds source file and line to log entries.
	AddSource bool

	// Redact lists extra attribute keys whose values are replaced.
	Redact []string

	Component string
}

// DefaultConfig returns a default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     "stderr",
		FilePath:   DefaultLogPath(),
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   true,
		Component:  "composed",
	}
}

// DefaultLogPath returns the platform log file location.
func DefaultLogPath() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Logs", "composed", "composed.log")
	case "windows":
		dir := os.Getenv("LOCALAPPDATA")
		if dir == "" {
			dir = os.Getenv("APPDATA")
		}
		return filepath.Join(dir, "composed", "logs", "composed.log")
	default:
		state := os.Getenv("XDG_STATE_HOME")
		if state == "" {
			home, _ := os.UserHomeDir()
			state = filepath.Join(home, ".local", "state")
		}
		return filepath.Join(state, "composed", "composed.log")
	}
}

// Logger wraps slog.Logger with its output resources.
type Logger struct {
	*slog.Logger
	config  *Config
	rotator *FileRotator
	mu      *sync.Mutex
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// Default returns the process-wide logger, creating a stderr logger on
// first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger == nil {
		l, err := New(DefaultConfig())
		if err != nil {
			l = &Logger{Logger: slog.Default(), config: DefaultConfig(), mu: &sync.Mutex{}}
		}
		defaultLogger = l
	}
	return defaultLogger
}

// SetDefault installs l as the process-wide logger and as slog's default.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	slog.SetDefault(l.Logger)
}

// New creates a Logger writing to the outputs named in cfg.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var (
		writers []io.Writer
		rotator *FileRotator
	)
	out := strings.ToLower(cfg.Output)
	switch out {
	case "stdout":
		writers = append(writers, os.Stdout)
	case "discard":
		writers = append(writers, io.Discard)
	case "file", "both":
		r, err := NewFileRotator(cfg)
		if err != nil {
			return nil, fmt.Errorf("setup writers: %w", err)
		}
		rotator = r
		if out == "both" {
			writers = append(writers, os.Stderr)
		}
		writers = append(writers, r)
	default:
		writers = append(writers, os.Stderr)
	}

	w := writers[0]
	if len(writers) > 1 {
		w = io.MultiWriter(writers...)
	}

	l := NewWithWriter(w, cfg)
	l.rotator = rotator
	return l, nil
}

// NewWithWriter creates a Logger writing to w. Output and file settings
// in cfg are ignored.
func NewWithWriter(w io.Writer, cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	redact := cfg.Redact
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if shouldRedact(a.Key, redact) {
				a.Value = slog.StringValue("[REDACTED]")
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	if cfg.Component != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("component", cfg.Component)})
	}

	return &Logger{Logger: slog.New(handler), config: cfg, mu: &sync.Mutex{}}
}

var sensitiveKeys = []string{
	"password", "secret", "token", "surrounding",
}

// shouldRedact reports whether an attribute's value must not be written.
// Surrounding text is the application's document content.
func shouldRedact(key string, extra []string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	for _, s := range extra {
		if lower == strings.ToLower(s) {
			return true
		}
	}
	return false
}

func (l *Logger) derive(logger *slog.Logger) *Logger {
	return &Logger{Logger: logger, config: l.config, rotator: l.rotator, mu: l.mu}
}

// WithComponent returns a child logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(l.Logger.With(slog.String("component", name)))
}

// WithContextID returns a child logger tagged with an input context ID,
// such as an IBus engine object path.
func (l *Logger) WithContextID(id string) *Logger {
	return l.derive(l.Logger.With(slog.String("context_id", id)))
}

// WithContext returns a child logger carrying the context ID stored in
// ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if id := ContextIDFromContext(ctx); id != "" {
		return l.WithContextID(id)
	}
	return l
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// Sync flushes the log file, if any.
func (l *Logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotator != nil {
		return l.rotator.Sync()
	}
	return nil
}

type contextKey struct{}

// ContextWithID returns a context carrying an input context ID.
func ContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// ContextIDFromContext extracts the input context ID from ctx.
func ContextIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// ParseLevel parses a string into a log level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// LevelString returns the string representation of a log level.
func LevelString(level Level) string {
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseFormat parses "text" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format: %s", s)
	}
}
