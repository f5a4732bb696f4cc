package composer

import (
	"log/slog"

	"composed/internal/config"
)

// FromConfig builds the Switch described by cfg. rec may be nil; it is
// only used when learning is enabled.
func FromConfig(cfg *config.Config, lookup Lookup, rec Recorder, logger *slog.Logger) (*Switch, error) {
	wc := WordConfig{
		MaxCandidates: cfg.Dictionary.MaxCandidates,
		Logger:        logger,
	}
	if cfg.Dictionary.Learn && rec != nil {
		wc.Recorder = rec
	}
	dc := DeadKeyConfig{Extra: cfg.Engine.DeadKeyMap()}
	return Build(cfg.Engine.Modes, cfg.Engine.DefaultMode, lookup, wc, dc, logger)
}
