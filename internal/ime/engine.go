package ime

import (
	"fmt"
	"time"
)

// Engine runs the composition-event state machine between a host and a
// Composer.
//
// Calls must be serialized by the host: the engine assumes one event at a
// time and holds no lock of its own.
type Engine struct {
	composer Composer
	ctrl     *Controller
	obs      Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver attaches an observer for logging and metrics.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.obs = o
		}
	}
}

// NewEngine creates an engine that drives composer and reports display
// changes to host.
func NewEngine(composer Composer, host Host, opts ...Option) *Engine {
	e := &Engine{
		composer: composer,
		obs:      NopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ctrl = NewController(composer, host, e.obs)
	return e
}

// HandleEvent processes one key event for client and returns the
// composer's classification. Only Processed means the host must drop the
// event.
//
// An undefined result from the composer aborts processing and returns an
// error wrapping ErrProtocolViolation.
func (e *Engine) HandleEvent(ev Event, client InputClient) (ProcessResult, error) {
	if client == nil {
		return NotProcessed, ErrNilClient
	}
	e.obs.EventReceived(ev)
	start := time.Now()

	hadComposed := e.composer.ComposedString() != ""
	result := e.composer.Handle(ev, client)

	// From here on every commit belongs to this event.
	switch result {
	case NotProcessed, Processed:
	case NotProcessedAndNeedsCancel:
		e.ctrl.cancel(internal)
	case NotProcessedAndNeedsCommit:
		e.ctrl.cancel(internal)
		e.ctrl.commit(internal, client)
		e.obs.EventHandled(ev, result, time.Since(start))
		// The host handles the key itself; its display is already clear.
		return result, nil
	default:
		err := fmt.Errorf("%w: composer returned %s for %s", ErrProtocolViolation, result, ev)
		e.obs.ProtocolViolation(err)
		return result, err
	}

	committed := e.ctrl.commit(internal, client)
	hasComposed := e.composer.ComposedString() != ""
	sel := client.SelectionRange()
	if committed || sel.HasSelection() || hadComposed || hasComposed {
		e.ctrl.update()
	}

	e.obs.EventHandled(ev, result, time.Since(start))
	return result, nil
}

// CommitComposition flushes the composition on behalf of the host, for
// example on focus loss. The in-progress composition is cancelled first.
func (e *Engine) CommitComposition(client InputClient) (bool, error) {
	if client == nil {
		return false, ErrNilClient
	}
	return e.ctrl.commit(external, client), nil
}

// UpdateComposition pushes the current display state to the host.
func (e *Engine) UpdateComposition() {
	e.ctrl.update()
}

// CancelComposition discards the in-progress composition.
func (e *Engine) CancelComposition() {
	e.ctrl.cancel(external)
}

// CandidateSelected accepts candidate and commits it to client. It
// reports whether text was inserted.
func (e *Engine) CandidateSelected(candidate string, client InputClient) (bool, error) {
	if client == nil {
		return false, ErrNilClient
	}
	e.composer.CandidateSelected(candidate)
	return e.ctrl.commit(internal, client), nil
}

// CandidateSelectionChanged previews candidate without committing.
func (e *Engine) CandidateSelectionChanged(candidate string) {
	e.composer.CandidateSelectionChanged(candidate)
	e.ctrl.update()
}

// SetValue applies a host configuration value. Only TagInputMode is
// recognized; other tags are reported to the observer and ignored.
//
// Switching to a different mode commits the pending composition before
// the composer changes mode.
func (e *Engine) SetValue(tag Tag, value any, client InputClient) error {
	if client == nil {
		return ErrNilClient
	}
	if tag != TagInputMode {
		e.obs.UnknownTag(tag, value)
		return nil
	}

	mode, ok := value.(string)
	if !ok || mode == "" {
		err := fmt.Errorf("%w: %v (%T)", ErrInvalidMode, value, value)
		e.obs.ProtocolViolation(err)
		return err
	}
	if v, ok := e.composer.(ModeValidator); ok && !v.ValidMode(mode) {
		err := fmt.Errorf("%w: %q", ErrInvalidMode, mode)
		e.obs.ProtocolViolation(err)
		return err
	}

	current := e.composer.InputMode()
	if mode == current {
		return nil
	}
	e.ctrl.commit(external, client)
	e.composer.SetInputMode(mode)
	e.obs.ModeChanged(current, mode)
	return nil
}

// RecognizedEvents returns the event categories the host should deliver.
func (e *Engine) RecognizedEvents() EventMask {
	return RecognizedEvents
}

// ComposedString returns the text being composed.
func (e *Engine) ComposedString() string {
	return e.composer.ComposedString()
}

// OriginalString returns the keystrokes of the current composition.
func (e *Engine) OriginalString() string {
	return e.composer.OriginalString()
}

// Candidates returns the composer's current candidates.
func (e *Engine) Candidates() []string {
	return e.composer.Candidates()
}

// InputMode returns the composer's active mode.
func (e *Engine) InputMode() string {
	return e.composer.InputMode()
}

// Composition returns a snapshot of the display state.
func (e *Engine) Composition() Composition {
	return e.ctrl.snapshot()
}
