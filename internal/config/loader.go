package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Loader handles configuration loading, watching, and hot-reloading.
type Loader struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	config   *Config
	onChange []func(old, new *Config)

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	errChan chan error
	done    chan struct{}
}

// NewLoader creates a loader for path, or for ConfigPath when path is
// empty.
func NewLoader(path string, logger *slog.Logger) *Loader {
	if path == "" {
		path = ConfigPath()
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		path:    path,
		logger:  logger.With("component", "config"),
		ctx:     ctx,
		cancel:  cancel,
		errChan: make(chan error, 1),
	}
}

// Path returns the watched file.
func (l *Loader) Path() string {
	return l.path
}

// Load reads, overrides and validates the configuration and makes it
// current.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.read()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) read() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	for _, w := range cfg.Warnings() {
		l.logger.Warn("config warning", "field", w.Field, "message", w.Message)
	}
	return cfg, nil
}

// Config returns the current configuration, or nil before Load.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// OnChange registers a callback invoked after a successful reload.
func (l *Loader) OnChange(cb func(old, new *Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, cb)
}

// Errors returns a channel for reload and watcher errors. Errors are
// dropped while the channel is full.
func (l *Loader) Errors() <-chan error {
	return l.errChan
}

// Reload re-reads the file. An invalid file leaves the current
// configuration in place.
func (l *Loader) Reload() error {
	cfg, err := l.read()
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	l.mu.Lock()
	old := l.config
	l.config = cfg
	callbacks := append([]func(old, new *Config){}, l.onChange...)
	l.mu.Unlock()

	l.logger.Info("config reloaded", "path", l.path)
	for _, cb := range callbacks {
		cb(old, cfg)
	}
	return nil
}

// Watch starts watching the configuration file. The directory is watched
// so editors that replace the file by rename are seen.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	l.watcher = watcher
	l.done = make(chan struct{})
	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	defer close(l.done)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-l.ctx.Done():
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(l.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := l.Reload(); err != nil {
					l.logger.Error("config reload failed", "error", err)
					l.report(err)
				}
			})

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.report(err)
		}
	}
}

func (l *Loader) report(err error) {
	select {
	case l.errChan <- err:
	default:
	}
}

// Close stops the watcher and releases resources.
func (l *Loader) Close() error {
	l.cancel()
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	<-l.done
	return err
}
