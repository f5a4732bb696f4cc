//go:build linux

package ibus

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"composed/internal/ime"
	"composed/internal/metrics"
)

const (
	engineInterface  = "org.freedesktop.IBus.Engine"
	serviceInterface = "org.freedesktop.IBus.Service"

	modePropPrefix = "InputMode."
)

// bus is the part of *dbus.Conn the front-end uses.
type bus interface {
	Export(v any, path dbus.ObjectPath, iface string) error
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// modeLister is implemented by composers that offer several modes.
type modeLister interface {
	Modes() []string
}

// EngineObject is one IBus engine instance, exported at its own object
// path. IBus calls its methods from D-Bus goroutines; every method holds
// mu while it drives the engine.
type EngineObject struct {
	path    dbus.ObjectPath
	logger  *slog.Logger
	metrics *metrics.ServiceMetrics
	onClose func(dbus.ObjectPath)

	mu       sync.Mutex
	engine   *ime.Engine
	composer ime.Composer
	ctx      *inputContext
	enabled  bool
	focused  bool
}

func newEngineObject(path dbus.ObjectPath, b bus, composer ime.Composer, obs ime.Observer, logger *slog.Logger) *EngineObject {
	logger = logger.With("engine_path", string(path))
	ctx := &inputContext{path: path, bus: b, logger: logger, cursor: -1}
	return &EngineObject{
		path:     path,
		logger:   logger,
		engine:   ime.NewEngine(composer, ctx, ime.WithObserver(obs)),
		composer: composer,
		ctx:      ctx,
		enabled:  true,
	}
}

// Path returns the exported object path.
func (o *EngineObject) Path() dbus.ObjectPath {
	return o.path
}

// ProcessKeyEvent hands a key press to the engine. The key is consumed
// only when the composer fully processed it. A disabled engine passes
// every key through.
func (o *EngineObject) ProcessKeyEvent(keyval, keycode, state uint32) (bool, *dbus.Error) {
	ev, ok := TranslateKey(keyval, keycode, state)
	if !ok {
		return false, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.enabled {
		return false, nil
	}
	res, err := o.engine.HandleEvent(ev, o.ctx)
	if err != nil {
		o.logger.Error("key event failed", "event", ev.String(), "error", err)
		return false, nil
	}
	return res == ime.Processed, nil
}

// FocusIn publishes the input mode menu.
func (o *EngineObject) FocusIn() *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.focused = true
	o.focusChanged()
	o.registerProperties()
	o.logger.Debug("focus in", "mode", o.engine.InputMode())
	return nil
}

// FocusOut commits whatever is being composed.
func (o *EngineObject) FocusOut() *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.focused = false
	o.focusChanged()
	o.commit("focus out")
	o.ctx.forgetSurrounding()
	return nil
}

// Reset ends the composition. Text the composer keeps on cancel is
// committed.
func (o *EngineObject) Reset() *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.engine.CancelComposition()
	o.commit("reset")
	return nil
}

// Enable marks the engine active.
func (o *EngineObject) Enable() *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.enabled = true
	o.logger.Debug("enable")
	return nil
}

// Disable commits the composition and marks the engine inactive.
func (o *EngineObject) Disable() *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.enabled = false
	o.commit("disable")
	return nil
}

func (o *EngineObject) focusChanged() {
	if o.metrics != nil {
		o.metrics.FocusChanged()
	}
}

// commit flushes on behalf of the host. Callers hold mu.
func (o *EngineObject) commit(reason string) {
	if _, err := o.engine.CommitComposition(o.ctx); err != nil {
		o.logger.Error("commit failed", "reason", reason, "error", err)
	}
}

// SetCapabilities records the client's capabilities.
func (o *EngineObject) SetCapabilities(caps uint32) *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.ctx.caps = caps
	return nil
}

// SetContentType is accepted and ignored.
func (o *EngineObject) SetContentType(purpose, hints uint32) *dbus.Error {
	o.logger.Debug("content type", "purpose", purpose, "hints", hints)
	return nil
}

// SetCursorLocation is accepted and ignored; IBus positions the panel.
func (o *EngineObject) SetCursorLocation(x, y, w, h int32) *dbus.Error {
	return nil
}

// SetSurroundingText records the text around the caret so the selection
// can be reported to the engine. Positions are in characters.
func (o *EngineObject) SetSurroundingText(text dbus.Variant, cursorPos, anchorPos uint32) *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.ctx.setSurrounding(textFromVariant(text), int(cursorPos), int(anchorPos))
	return nil
}

// PropertyActivate switches input mode from the panel menu.
func (o *EngineObject) PropertyActivate(name string, state uint32) *dbus.Error {
	mode, ok := strings.CutPrefix(name, modePropPrefix)
	if !ok || state != propStateChecked {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.engine.SetValue(ime.TagInputMode, mode, o.ctx); err != nil {
		o.logger.Warn("mode switch rejected", "mode", mode, "error", err)
		return nil
	}
	o.registerProperties()
	return nil
}

// SetMode switches input mode as PropertyActivate does.
func (o *EngineObject) SetMode(mode string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.engine.SetValue(ime.TagInputMode, mode, o.ctx); err != nil {
		return err
	}
	o.registerProperties()
	return nil
}

// registerProperties publishes the mode menu. Callers hold mu.
func (o *EngineObject) registerProperties() {
	lister, ok := o.composer.(modeLister)
	if !ok {
		return
	}
	o.ctx.emit("RegisterProperties", modeProperties(lister.Modes(), o.engine.InputMode()))
}

// CandidateClicked commits the clicked candidate.
func (o *EngineObject) CandidateClicked(index, button, state uint32) *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cands := o.engine.Candidates()
	if int(index) >= len(cands) {
		return nil
	}
	if _, err := o.engine.CandidateSelected(cands[index], o.ctx); err != nil {
		o.logger.Error("candidate commit failed", "error", err)
	}
	return nil
}

// CursorDown previews the next candidate.
func (o *EngineObject) CursorDown() *dbus.Error {
	o.moveHighlight(1)
	return nil
}

// CursorUp previews the previous candidate.
func (o *EngineObject) CursorUp() *dbus.Error {
	o.moveHighlight(-1)
	return nil
}

func (o *EngineObject) moveHighlight(delta int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cands := o.engine.Candidates()
	if len(cands) == 0 {
		return
	}
	next := (o.ctx.cursor + delta + len(cands)) % len(cands)
	if o.ctx.cursor < 0 && delta < 0 {
		next = len(cands) - 1
	}
	o.engine.CandidateSelectionChanged(cands[next])
}

// PageUp is accepted; all candidates fit on one page.
func (o *EngineObject) PageUp() *dbus.Error {
	return nil
}

// PageDown is accepted; all candidates fit on one page.
func (o *EngineObject) PageDown() *dbus.Error {
	return nil
}

// Destroy commits pending text and unexports the object.
func (o *EngineObject) Destroy() *dbus.Error {
	o.mu.Lock()
	o.commit("destroy")
	o.mu.Unlock()

	if o.onClose != nil {
		o.onClose(o.path)
	}
	return nil
}

// Composition returns the current display state.
func (o *EngineObject) Composition() ime.Composition {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.engine.Composition()
}
