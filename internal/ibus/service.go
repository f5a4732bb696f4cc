//go:build linux

package ibus

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"composed/internal/ime"
	"composed/internal/metrics"
)

const (
	factoryInterface = "org.freedesktop.IBus.Factory"
	factoryPath      = dbus.ObjectPath("/org/freedesktop/IBus/Factory")
	enginePathPrefix = "/org/freedesktop/IBus/Engine/"
)

// ErrNameTaken is returned by Start when another process owns the bus
// name.
var ErrNameTaken = errors.New("ibus: bus name already taken")

// Config configures a Service.
type Config struct {
	// EngineName is the only name CreateEngine accepts.
	EngineName string

	// NewComposer builds the composer for each new engine object.
	NewComposer func() ime.Composer

	// Observer is shared by all engines; it must be safe for concurrent
	// use. Nil means none.
	Observer ime.Observer

	// Metrics, when set, counts engine lifecycles.
	Metrics *metrics.ServiceMetrics

	Logger *slog.Logger
}

// Service is the IBus factory: it creates an engine object per input
// context IBus asks for.
type Service struct {
	bus    bus
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	engines map[dbus.ObjectPath]*EngineObject
}

// NewService creates a factory exporting objects on b, normally a
// *dbus.Conn.
func NewService(b bus, cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = ime.NopObserver{}
	}
	return &Service{
		bus:     b,
		cfg:     cfg,
		logger:  logger.With("component", "ibus"),
		engines: make(map[dbus.ObjectPath]*EngineObject),
	}
}

// Start requests busName on conn and exports the factory.
func Start(conn *dbus.Conn, busName string, cfg Config) (*Service, error) {
	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, busName)
	}

	s := NewService(conn, cfg)
	if err := s.bus.Export(s, factoryPath, factoryInterface); err != nil {
		return nil, fmt.Errorf("export factory: %w", err)
	}
	s.logger.Info("ibus factory started", "bus_name", busName, "engine", cfg.EngineName)
	return s, nil
}

// CreateEngine exports a new engine object and returns its path.
func (s *Service) CreateEngine(name string) (dbus.ObjectPath, *dbus.Error) {
	if name != s.cfg.EngineName {
		s.logger.Warn("unknown engine requested", "name", name)
		return "", dbus.NewError("org.freedesktop.IBus.NoEngine", []any{"unknown engine: " + name})
	}

	path := newEnginePath()
	obj := newEngineObject(path, s.bus, s.cfg.NewComposer(), s.cfg.Observer, s.logger)
	obj.metrics = s.cfg.Metrics
	obj.onClose = s.destroy

	for _, iface := range []string{engineInterface, serviceInterface} {
		if err := s.bus.Export(obj, path, iface); err != nil {
			s.logger.Error("export engine failed", "path", path, "error", err)
			return "", dbus.MakeFailedError(err)
		}
	}

	s.mu.Lock()
	s.engines[path] = obj
	s.mu.Unlock()

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.EngineCreated()
	}
	s.logger.Info("engine created", "path", path, "mode", obj.engine.InputMode())
	return path, nil
}

// newEnginePath derives an object path from a random UUID. Object path
// elements only allow [A-Za-z0-9_].
func newEnginePath() dbus.ObjectPath {
	id := strings.ReplaceAll(uuid.NewString(), "-", "_")
	return dbus.ObjectPath(enginePathPrefix + "e" + id)
}

func (s *Service) destroy(path dbus.ObjectPath) {
	s.mu.Lock()
	_, ok := s.engines[path]
	delete(s.engines, path)
	s.mu.Unlock()
	if !ok {
		return
	}

	for _, iface := range []string{engineInterface, serviceInterface} {
		if err := s.bus.Export(nil, path, iface); err != nil {
			s.logger.Warn("unexport engine failed", "path", path, "error", err)
		}
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.EngineDestroyed()
	}
	s.logger.Info("engine destroyed", "path", path)
}

// Engine returns the engine object at path, or nil.
func (s *Service) Engine(path dbus.ObjectPath) *EngineObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engines[path]
}

// Engines returns the paths of live engine objects, sorted.
func (s *Service) Engines() []dbus.ObjectPath {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]dbus.ObjectPath, 0, len(s.engines))
	for p := range s.engines {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths
}

// SetMode switches every live engine to mode, for configuration reloads.
func (s *Service) SetMode(mode string) error {
	var errs []error
	for _, p := range s.Engines() {
		if obj := s.Engine(p); obj != nil {
			if err := obj.SetMode(mode); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Close destroys every engine object, committing pending text.
func (s *Service) Close() {
	for _, p := range s.Engines() {
		if obj := s.Engine(p); obj != nil {
			obj.Destroy()
		}
	}
}
