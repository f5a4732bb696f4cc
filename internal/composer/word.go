package composer

import (
	"log/slog"
	"unicode"
	"unicode/utf8"

	"composed/internal/ime"
)

// Lookup returns completions for a typed prefix.
type Lookup interface {
	Lookup(prefix string, limit int) []string
}

// Recorder remembers words the user picked.
type Recorder interface {
	Record(word string) error
}

// WordConfig configures a Word composer.
type WordConfig struct {
	// MaxCandidates caps the candidate list. Zero means 9.
	MaxCandidates int

	// Recorder, when set, is told about every selected candidate.
	Recorder Recorder

	Logger *slog.Logger
}

// Word buffers the letters of a word and offers dictionary completions
// for it. Separators commit the word; selecting a candidate commits the
// candidate instead.
//
// Cancelling keeps what was typed and drops any previewed candidate: the
// typed text moves to the commit buffer.
type Word struct {
	mode   string
	lookup Lookup
	cfg    WordConfig
	logger *slog.Logger

	typed      []rune
	preview    string
	highlight  int
	candidates []string
	commit     string
}

// NewWord creates a word composer. lookup may be nil, in which case no
// candidates are offered.
func NewWord(mode string, lookup Lookup, cfg WordConfig) *Word {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 9
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Word{
		mode:      mode,
		lookup:    lookup,
		cfg:       cfg,
		logger:    logger.With("component", "composer", "mode", mode),
		highlight: -1,
	}
}

func (w *Word) composing() bool {
	return len(w.typed) > 0
}

// Handle classifies ev. See the package tests for the full key table.
func (w *Word) Handle(ev ime.Event, _ ime.InputClient) ime.ProcessResult {
	if ev.Modifiers.Shortcut() {
		return w.commitForHost()
	}

	switch ev.Key {
	case ime.KeyReturn, ime.KeyDelete:
		return w.commitForHost()
	case ime.KeyEscape:
		if w.composing() {
			return ime.NotProcessedAndNeedsCancel
		}
		return ime.NotProcessed
	case ime.KeyBackspace:
		if !w.composing() {
			return ime.NotProcessed
		}
		w.typed = w.typed[:len(w.typed)-1]
		w.refresh()
		return ime.Processed
	case ime.KeyTab:
		if w.composing() && len(w.candidates) > 0 {
			w.highlight = (w.highlight + 1) % len(w.candidates)
			w.preview = w.candidates[w.highlight]
			return ime.Processed
		}
		return w.commitForHost()
	case ime.KeySpace:
		if !w.composing() {
			return ime.NotProcessed
		}
		w.commitComposed(" ")
		return ime.Processed
	}
	if ev.Key.Navigation() {
		return w.commitForHost()
	}

	r, size := utf8.DecodeRuneInString(ev.Text)
	if r == utf8.RuneError || size != len(ev.Text) {
		// No text, or several runes at once.
		if w.composing() && ev.Text != "" {
			w.commitComposed(ev.Text)
			return ime.Processed
		}
		return ime.NotProcessed
	}

	if w.wordRune(r) {
		w.typed = append(w.typed, r)
		w.refresh()
		return ime.Processed
	}
	if w.composing() {
		w.commitComposed(string(r))
		return ime.Processed
	}
	return ime.NotProcessed
}

// wordRune reports whether r continues the current word. Digits and
// apostrophes only continue a word, they never start one.
func (w *Word) wordRune(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsMark(r):
		return true
	case unicode.IsDigit(r), r == '\'', r == '’':
		return w.composing()
	}
	return false
}

// commitForHost commits the word before the host handles the key.
func (w *Word) commitForHost() ime.ProcessResult {
	if !w.composing() {
		return ime.NotProcessed
	}
	w.commitComposed("")
	return ime.NotProcessedAndNeedsCommit
}

func (w *Word) commitComposed(suffix string) {
	w.commit += w.ComposedString() + suffix
	w.reset()
}

func (w *Word) reset() {
	w.typed = w.typed[:0]
	w.preview = ""
	w.highlight = -1
	w.candidates = nil
}

func (w *Word) refresh() {
	w.preview = ""
	w.highlight = -1
	w.candidates = nil
	if w.lookup != nil && w.composing() {
		w.candidates = w.lookup.Lookup(string(w.typed), w.cfg.MaxCandidates)
	}
}

func (w *Word) DequeueCommitString() string {
	s := w.commit
	w.commit = ""
	return s
}

// ComposedString is the previewed candidate, or the typed text.
func (w *Word) ComposedString() string {
	if w.preview != "" {
		return w.preview
	}
	return string(w.typed)
}

func (w *Word) OriginalString() string {
	return string(w.typed)
}

func (w *Word) Candidates() []string {
	return w.candidates
}

// CandidateSelected commits candidate in place of the typed text.
func (w *Word) CandidateSelected(candidate string) {
	if candidate == "" {
		return
	}
	w.commit += candidate
	w.reset()
	if w.cfg.Recorder != nil {
		if err := w.cfg.Recorder.Record(candidate); err != nil {
			w.logger.Warn("failed to record selection", "error", err)
		}
	}
}

// CandidateSelectionChanged previews candidate as the composed text.
func (w *Word) CandidateSelectionChanged(candidate string) {
	w.preview = candidate
	w.highlight = -1
	for i, c := range w.candidates {
		if c == candidate {
			w.highlight = i
			break
		}
	}
}

func (w *Word) CancelComposition() {
	if w.composing() {
		w.commit += string(w.typed)
	}
	w.reset()
}

func (w *Word) ControllerDidCommit() {}

func (w *Word) InputMode() string {
	return w.mode
}

func (w *Word) SetInputMode(mode string) {
	w.mode = mode
}

var _ ime.Composer = (*Word)(nil)
