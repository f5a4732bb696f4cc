package composer

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"composed/internal/ime"
)

// DefaultDeadKeys maps the US-International dead keys to the combining
// mark they apply.
var DefaultDeadKeys = map[rune]rune{
	'`':  '\u0300', // grave
	'\'': '\u0301', // acute
	'^':  '\u0302', // circumflex
	'~':  '\u0303', // tilde
	'"':  '\u0308', // diaeresis
}

// DeadKeyConfig configures a DeadKey composer.
type DeadKeyConfig struct {
	// Extra adds or overrides dead keys, mapping the typed rune to a
	// combining mark.
	Extra map[rune]rune
}

// DeadKey composes accented letters from a dead key followed by a base
// letter. The pending dead key is shown as composed text. When the pair
// has no precomposed form both runes are committed as typed.
type DeadKey struct {
	mode    string
	marks   map[rune]rune
	pending rune
	commit  string
}

// NewDeadKey creates a dead-key composer.
func NewDeadKey(mode string, cfg DeadKeyConfig) *DeadKey {
	marks := make(map[rune]rune, len(DefaultDeadKeys)+len(cfg.Extra))
	for k, v := range DefaultDeadKeys {
		marks[k] = v
	}
	for k, v := range cfg.Extra {
		marks[k] = v
	}
	return &DeadKey{mode: mode, marks: marks}
}

func (d *DeadKey) Handle(ev ime.Event, _ ime.InputClient) ime.ProcessResult {
	r, size := utf8.DecodeRuneInString(ev.Text)
	single := r != utf8.RuneError && size == len(ev.Text)

	if d.pending == 0 {
		if ev.Modifiers.Shortcut() || ev.Key != ime.KeyNone || !single {
			return ime.NotProcessed
		}
		if _, ok := d.marks[r]; ok {
			d.pending = r
			return ime.Processed
		}
		return ime.NotProcessed
	}

	if ev.Text == "" && ev.Key == ime.KeyNone {
		// Modifier-only change, such as Shift before a capital.
		return ime.NotProcessed
	}
	if ev.Modifiers.Shortcut() {
		return d.flushForHost()
	}
	switch ev.Key {
	case ime.KeyNone:
	case ime.KeyEscape:
		return ime.NotProcessedAndNeedsCancel
	case ime.KeyBackspace:
		d.pending = 0
		return ime.Processed
	case ime.KeySpace:
		d.emit(string(d.pending))
		return ime.Processed
	default:
		return d.flushForHost()
	}

	if !single {
		d.emit(string(d.pending) + ev.Text)
		return ime.Processed
	}

	dead := d.pending
	switch _, isDead := d.marks[r]; {
	case r == dead:
		d.emit(string(dead))
	case isDead:
		// A second dead key commits the first and starts over.
		d.commit += string(dead)
		d.pending = r
	case unicode.IsLetter(r):
		d.emit(d.combine(dead, r))
	default:
		d.emit(string(dead) + string(r))
	}
	return ime.Processed
}

// combine applies dead to base, falling back to both runes when Unicode
// has no single precomposed character for the pair.
func (d *DeadKey) combine(dead, base rune) string {
	composed := norm.NFC.String(string(base) + string(d.marks[dead]))
	if utf8.RuneCountInString(composed) == 1 {
		return composed
	}
	return string(dead) + string(base)
}

func (d *DeadKey) emit(s string) {
	d.commit += s
	d.pending = 0
}

func (d *DeadKey) flushForHost() ime.ProcessResult {
	d.emit(string(d.pending))
	return ime.NotProcessedAndNeedsCommit
}

func (d *DeadKey) DequeueCommitString() string {
	s := d.commit
	d.commit = ""
	return s
}

func (d *DeadKey) ComposedString() string {
	if d.pending == 0 {
		return ""
	}
	return string(d.pending)
}

func (d *DeadKey) OriginalString() string {
	return d.ComposedString()
}

func (d *DeadKey) Candidates() []string             { return nil }
func (d *DeadKey) CandidateSelected(string)         {}
func (d *DeadKey) CandidateSelectionChanged(string) {}
func (d *DeadKey) ControllerDidCommit()             {}

// CancelComposition commits a pending dead key as a plain character.
func (d *DeadKey) CancelComposition() {
	if d.pending != 0 {
		d.emit(string(d.pending))
	}
}

func (d *DeadKey) InputMode() string {
	return d.mode
}

func (d *DeadKey) SetInputMode(mode string) {
	d.mode = mode
}

var _ ime.Composer = (*DeadKey)(nil)
