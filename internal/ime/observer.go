package ime

import (
	"log/slog"
	"time"

	"composed/internal/metrics"
)

// Observer is a side channel for logging and metrics. The engine never
// branches on anything an observer does.
type Observer interface {
	EventReceived(ev Event)
	EventHandled(ev Event, result ProcessResult, elapsed time.Duration)
	Committed(text string, replacement SelectionRange, trigger string)
	Cancelled(trigger string)
	Updated(c Composition)
	ModeChanged(from, to string)
	UnknownTag(tag Tag, value any)
	ProtocolViolation(err error)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) EventReceived(Event)                              {}
func (NopObserver) EventHandled(Event, ProcessResult, time.Duration) {}
func (NopObserver) Committed(string, SelectionRange, string)         {}
func (NopObserver) Cancelled(string)                                 {}
func (NopObserver) Updated(Composition)                              {}
func (NopObserver) ModeChanged(string, string)                       {}
func (NopObserver) UnknownTag(Tag, any)                              {}
func (NopObserver) ProtocolViolation(error)                          {}

// LogObserver writes protocol events to a structured logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver. A nil logger uses slog.Default.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger.With("component", "ime")}
}

func (o *LogObserver) EventReceived(ev Event) {
	o.logger.Debug("key", "event", ev.String())
}

func (o *LogObserver) EventHandled(ev Event, result ProcessResult, elapsed time.Duration) {
	o.logger.Debug("key handled", "event", ev.String(), "result", result.String(), "elapsed", elapsed)
}

func (o *LogObserver) Committed(text string, replacement SelectionRange, trigger string) {
	// Committed text is user content; only its size is logged.
	o.logger.Debug("commit",
		"runes", len([]rune(text)),
		"range", replacement.String(),
		"trigger", trigger,
	)
}

func (o *LogObserver) Cancelled(trigger string) {
	o.logger.Debug("cancel", "trigger", trigger)
}

func (o *LogObserver) Updated(c Composition) {
	o.logger.Debug("update",
		"composing", c.Composed != "",
		"candidates", len(c.Candidates),
		"mode", c.Mode,
	)
}

func (o *LogObserver) ModeChanged(from, to string) {
	o.logger.Info("input mode changed", "from", from, "to", to)
}

func (o *LogObserver) UnknownTag(tag Tag, value any) {
	o.logger.Warn("unknown configuration tag", "tag", tag.String(), "value", value)
}

func (o *LogObserver) ProtocolViolation(err error) {
	o.logger.Error("protocol violation", "error", err)
}

// MetricsObserver counts protocol events.
type MetricsObserver struct {
	events     map[ProcessResult]*metrics.Counter
	commits    *metrics.Counter
	cancels    *metrics.Counter
	updates    *metrics.Counter
	modes      *metrics.Counter
	unknown    *metrics.Counter
	violations *metrics.Counter
	composing  *metrics.Gauge
	latency    *metrics.Histogram
}

// NewMetricsObserver registers the protocol counters in registry.
// A nil registry uses metrics.Default.
func NewMetricsObserver(registry *metrics.Registry) *MetricsObserver {
	if registry == nil {
		registry = metrics.Default()
	}
	o := &MetricsObserver{
		events:     make(map[ProcessResult]*metrics.Counter),
		commits:    registry.RegisterCounter("commits_total", "Commits that inserted text into the client", nil),
		cancels:    registry.RegisterCounter("cancels_total", "Composition cancellations", nil),
		updates:    registry.RegisterCounter("updates_total", "Composition updates pushed to the host", nil),
		modes:      registry.RegisterCounter("mode_switches_total", "Input mode switches", nil),
		unknown:    registry.RegisterCounter("unknown_tags_total", "Configuration values with an unrecognized tag", nil),
		violations: registry.RegisterCounter("protocol_violations_total", "Composer protocol violations", nil),
		composing:  registry.RegisterGauge("composing", "1 while the host shows composed text", nil),
		latency:    registry.RegisterHistogram("handle_duration_seconds", "Time spent handling one key event", nil, nil),
	}
	for r := NotProcessed; r <= NotProcessedAndNeedsCommit; r++ {
		o.events[r] = registry.RegisterCounter(
			"events_"+metricSuffix(r)+"_total",
			"Key events with result "+r.String(),
			nil,
		)
	}
	return o
}

func metricSuffix(r ProcessResult) string {
	switch r {
	case Processed:
		return "processed"
	case NotProcessedAndNeedsCancel:
		return "needs_cancel"
	case NotProcessedAndNeedsCommit:
		return "needs_commit"
	default:
		return "not_processed"
	}
}

func (o *MetricsObserver) EventReceived(Event) {}

// EventHandled keeps no per-event state, so one MetricsObserver can be
// shared by engines running on different goroutines.
func (o *MetricsObserver) EventHandled(_ Event, result ProcessResult, elapsed time.Duration) {
	if c, ok := o.events[result]; ok {
		c.Inc()
	}
	o.latency.ObserveDuration(elapsed)
}

func (o *MetricsObserver) Committed(string, SelectionRange, string) {
	o.commits.Inc()
}

func (o *MetricsObserver) Cancelled(string) {
	o.cancels.Inc()
	o.composing.Set(0)
}

func (o *MetricsObserver) Updated(c Composition) {
	o.updates.Inc()
	if c.Composed != "" {
		o.composing.Set(1)
	} else {
		o.composing.Set(0)
	}
}

func (o *MetricsObserver) ModeChanged(string, string) {
	o.modes.Inc()
}

func (o *MetricsObserver) UnknownTag(Tag, any) {
	o.unknown.Inc()
}

func (o *MetricsObserver) ProtocolViolation(error) {
	o.violations.Inc()
}

// Observers fans out to several observers in order.
type Observers []Observer

func (obs Observers) EventReceived(ev Event) {
	for _, o := range obs {
		o.EventReceived(ev)
	}
}

func (obs Observers) EventHandled(ev Event, result ProcessResult, elapsed time.Duration) {
	for _, o := range obs {
		o.EventHandled(ev, result, elapsed)
	}
}

func (obs Observers) Committed(text string, replacement SelectionRange, trigger string) {
	for _, o := range obs {
		o.Committed(text, replacement, trigger)
	}
}

func (obs Observers) Cancelled(trigger string) {
	for _, o := range obs {
		o.Cancelled(trigger)
	}
}

func (obs Observers) Updated(c Composition) {
	for _, o := range obs {
		o.Updated(c)
	}
}

func (obs Observers) ModeChanged(from, to string) {
	for _, o := range obs {
		o.ModeChanged(from, to)
	}
}

func (obs Observers) UnknownTag(tag Tag, value any) {
	for _, o := range obs {
		o.UnknownTag(tag, value)
	}
}

func (obs Observers) ProtocolViolation(err error) {
	for _, o := range obs {
		o.ProtocolViolation(err)
	}
}

var (
	_ Observer = NopObserver{}
	_ Observer = (*LogObserver)(nil)
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = Observers(nil)
)
