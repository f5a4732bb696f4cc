// Package composer provides the composers shipped with composed and the
// Switch that selects among them by input mode.
package composer

import (
	"errors"
	"fmt"
	"log/slog"

	"composed/internal/ime"
)

// Built-in mode identifiers.
const (
	ModeWord    = "word"
	ModeDeadKey = "deadkey"
	ModeDirect  = "direct"
)

var (
	// ErrUnknownMode is returned for a mode no composer is registered for.
	ErrUnknownMode = errors.New("unknown input mode")

	// ErrDuplicateMode is returned when registering a mode twice.
	ErrDuplicateMode = errors.New("input mode already registered")
)

// Switch implements ime.Composer by delegating to the composer
// registered for the current input mode.
type Switch struct {
	composers map[string]ime.Composer
	order     []string
	current   string
	logger    *slog.Logger
}

// NewSwitch creates an empty Switch. A nil logger uses slog.Default.
func NewSwitch(logger *slog.Logger) *Switch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Switch{
		composers: make(map[string]ime.Composer),
		logger:    logger.With("component", "composer"),
	}
}

// Standard returns a Switch with the word, dead-key and direct composers
// registered, starting in word mode.
func Standard(lookup Lookup, wc WordConfig, dc DeadKeyConfig, logger *slog.Logger) *Switch {
	if wc.Logger == nil {
		wc.Logger = logger
	}
	s := NewSwitch(logger)
	// Registration of distinct built-in modes cannot fail.
	_ = s.Register(ModeWord, NewWord(ModeWord, lookup, wc))
	_ = s.Register(ModeDeadKey, NewDeadKey(ModeDeadKey, dc))
	_ = s.Register(ModeDirect, NewDirect(ModeDirect))
	return s
}

// Build returns a Switch offering only modes, in that order, with
// initial selected. An empty initial selects the first mode.
func Build(modes []string, initial string, lookup Lookup, wc WordConfig, dc DeadKeyConfig, logger *slog.Logger) (*Switch, error) {
	if len(modes) == 0 {
		return nil, errors.New("no input modes")
	}
	if wc.Logger == nil {
		wc.Logger = logger
	}
	s := NewSwitch(logger)
	for _, mode := range modes {
		var c ime.Composer
		switch mode {
		case ModeWord:
			c = NewWord(mode, lookup, wc)
		case ModeDeadKey:
			c = NewDeadKey(mode, dc)
		case ModeDirect:
			c = NewDirect(mode)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
		}
		if err := s.Register(mode, c); err != nil {
			return nil, err
		}
	}
	if initial != "" {
		if err := s.Select(initial); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register adds c under mode. The first registered mode becomes current.
func (s *Switch) Register(mode string, c ime.Composer) error {
	if mode == "" || c == nil {
		return fmt.Errorf("register %q: mode and composer are required", mode)
	}
	if _, ok := s.composers[mode]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMode, mode)
	}
	s.composers[mode] = c
	s.order = append(s.order, mode)
	if s.current == "" {
		s.current = mode
	}
	return nil
}

// Modes lists registered modes in registration order.
func (s *Switch) Modes() []string {
	return append([]string(nil), s.order...)
}

// ValidMode implements ime.ModeValidator.
func (s *Switch) ValidMode(mode string) bool {
	_, ok := s.composers[mode]
	return ok
}

// Next returns the mode after the current one, wrapping around.
func (s *Switch) Next() string {
	for i, m := range s.order {
		if m == s.current {
			return s.order[(i+1)%len(s.order)]
		}
	}
	return s.current
}

// Select makes mode current. Unlike SetInputMode it reports unknown
// modes; use it for configuration, not while composing.
func (s *Switch) Select(mode string) error {
	if !s.ValidMode(mode) {
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	s.SetInputMode(mode)
	return nil
}

func (s *Switch) active() ime.Composer {
	return s.composers[s.current]
}

func (s *Switch) Handle(ev ime.Event, client ime.InputClient) ime.ProcessResult {
	if c := s.active(); c != nil {
		return c.Handle(ev, client)
	}
	return ime.NotProcessed
}

func (s *Switch) DequeueCommitString() string {
	if c := s.active(); c != nil {
		return c.DequeueCommitString()
	}
	return ""
}

func (s *Switch) ComposedString() string {
	if c := s.active(); c != nil {
		return c.ComposedString()
	}
	return ""
}

func (s *Switch) OriginalString() string {
	if c := s.active(); c != nil {
		return c.OriginalString()
	}
	return ""
}

func (s *Switch) Candidates() []string {
	if c := s.active(); c != nil {
		return c.Candidates()
	}
	return nil
}

func (s *Switch) CandidateSelected(candidate string) {
	if c := s.active(); c != nil {
		c.CandidateSelected(candidate)
	}
}

func (s *Switch) CandidateSelectionChanged(candidate string) {
	if c := s.active(); c != nil {
		c.CandidateSelectionChanged(candidate)
	}
}

func (s *Switch) CancelComposition() {
	if c := s.active(); c != nil {
		c.CancelComposition()
	}
}

func (s *Switch) ControllerDidCommit() {
	if c := s.active(); c != nil {
		c.ControllerDidCommit()
	}
}

// InputMode returns the current mode identifier.
func (s *Switch) InputMode() string {
	return s.current
}

// SetInputMode switches to mode. The engine commits before calling it,
// so the outgoing composer holds no pending text. Unknown modes are
// logged and ignored.
func (s *Switch) SetInputMode(mode string) {
	if mode == s.current {
		return
	}
	next, ok := s.composers[mode]
	if !ok {
		s.logger.Warn("ignoring unknown input mode", "mode", mode)
		return
	}
	if out := s.active(); out != nil {
		out.CancelComposition()
		if left := out.DequeueCommitString(); left != "" {
			s.logger.Warn("discarding uncommitted text on mode switch", "from", s.current, "runes", len([]rune(left)))
		}
	}
	s.current = mode
	next.SetInputMode(mode)
}

var (
	_ ime.Composer      = (*Switch)(nil)
	_ ime.ModeValidator = (*Switch)(nil)
)
