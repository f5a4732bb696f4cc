package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ServiceMetrics holds the process-level metrics of a front-end.
type ServiceMetrics struct {
	registry *Registry
	started  time.Time

	EnginesCreated *Counter
	ActiveEngines  *Gauge
	FocusChanges   *Counter
	UptimeSeconds  *Gauge
}

// NewServiceMetrics registers the front-end metrics in registry. A nil
// registry uses Default.
func NewServiceMetrics(registry *Registry) *ServiceMetrics {
	if registry == nil {
		registry = Default()
	}
	return &ServiceMetrics{
		registry: registry,
		started:  time.Now(),
		EnginesCreated: registry.RegisterCounter(
			"engines_created_total",
			"Engine objects created by the input method framework",
			nil,
		),
		ActiveEngines: registry.RegisterGauge(
			"engines_active",
			"Engine objects currently exported",
			nil,
		),
		FocusChanges: registry.RegisterCounter(
			"focus_changes_total",
			"Focus in and focus out notifications",
			nil,
		),
		UptimeSeconds: registry.RegisterGauge(
			"uptime_seconds",
			"Seconds since the process started",
			nil,
		),
	}
}

// EngineCreated records a new engine object.
func (m *ServiceMetrics) EngineCreated() {
	m.EnginesCreated.Inc()
	m.ActiveEngines.Add(1)
}

// EngineDestroyed records a removed engine object.
func (m *ServiceMetrics) EngineDestroyed() {
	m.ActiveEngines.Add(-1)
}

// FocusChanged records a focus in or focus out.
func (m *ServiceMetrics) FocusChanged() {
	m.FocusChanges.Inc()
}

// UpdateUptime refreshes the uptime gauge.
func (m *ServiceMetrics) UpdateUptime() {
	m.UptimeSeconds.Set(int64(time.Since(m.started).Seconds()))
}

// Serve exposes registry on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, registry *Registry, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.HTTPHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
