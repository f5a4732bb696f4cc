package ime

import (
	"fmt"
	"strings"
)

// ProcessResult classifies how the composer dealt with one event.
type ProcessResult int

const (
	// NotProcessed leaves the event to the host.
	NotProcessed ProcessResult = iota
	// Processed means the composer consumed the event.
	Processed
	// NotProcessedAndNeedsCancel leaves the event to the host after the
	// current composition is cancelled.
	NotProcessedAndNeedsCancel
	// NotProcessedAndNeedsCommit leaves the event to the host after the
	// current composition is cancelled and the commit buffer flushed.
	// Typical for Return: the host inserts the newline itself.
	NotProcessedAndNeedsCommit
)

// Valid reports whether r is one of the four defined results.
func (r ProcessResult) Valid() bool {
	return r >= NotProcessed && r <= NotProcessedAndNeedsCommit
}

// Consumed reports whether the host should treat the event as handled.
func (r ProcessResult) Consumed() bool {
	return r == Processed
}

// String returns the string representation of the result.
func (r ProcessResult) String() string {
	switch r {
	case NotProcessed:
		return "not-processed"
	case Processed:
		return "processed"
	case NotProcessedAndNeedsCancel:
		return "not-processed-needs-cancel"
	case NotProcessedAndNeedsCommit:
		return "not-processed-needs-commit"
	default:
		return fmt.Sprintf("invalid(%d)", int(r))
	}
}

// NoLocation marks a SelectionRange that has no start offset.
const NoLocation = -1

// SelectionRange is a span in the client's text, measured in runes.
type SelectionRange struct {
	Location int
	Length   int
}

// NoRange asks the client to insert at its caret.
var NoRange = SelectionRange{Location: NoLocation}

// IsNone reports whether the range carries no location.
func (r SelectionRange) IsNone() bool {
	return r.Location == NoLocation
}

// HasSelection reports whether the range covers at least one character.
func (r SelectionRange) HasSelection() bool {
	return r.Length > 0
}

// String returns "(location,length)" or "(none)".
func (r SelectionRange) String() string {
	if r.IsNone() {
		return "(none)"
	}
	return fmt.Sprintf("(%d,%d)", r.Location, r.Length)
}

// Modifiers represents modifier key state.
type Modifiers uint32

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModMeta // Command on macOS, Super elsewhere
	ModCapsLock
)

// Contain reports whether all modifiers in m2 are held in m.
func (m Modifiers) Contain(m2 Modifiers) bool {
	return m&m2 == m2
}

// Shortcut reports whether a modifier that turns keys into commands is held.
func (m Modifiers) Shortcut() bool {
	return m&(ModControl|ModMeta) != 0
}

func (m Modifiers) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	names := []struct {
		mod  Modifiers
		name string
	}{
		{ModShift, "shift"},
		{ModControl, "ctrl"},
		{ModAlt, "alt"},
		{ModMeta, "meta"},
		{ModCapsLock, "caps"},
	}
	for _, n := range names {
		if m&n.mod != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}

// KeyName identifies keys whose meaning does not depend on the layout.
type KeyName int

const (
	// KeyNone is a key that only produces text (or nothing).
	KeyNone KeyName = iota
	KeyReturn
	KeyEscape
	KeyBackspace
	KeyDelete
	KeyTab
	KeySpace
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
)

var keyNames = map[KeyName]string{
	KeyNone:      "none",
	KeyReturn:    "Return",
	KeyEscape:    "Escape",
	KeyBackspace: "BackSpace",
	KeyDelete:    "Delete",
	KeyTab:       "Tab",
	KeySpace:     "space",
	KeyLeft:      "Left",
	KeyRight:     "Right",
	KeyUp:        "Up",
	KeyDown:      "Down",
	KeyHome:      "Home",
	KeyEnd:       "End",
	KeyPageUp:    "Page_Up",
	KeyPageDown:  "Page_Down",
}

func (k KeyName) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return fmt.Sprintf("key(%d)", int(k))
}

// Navigation reports whether the key moves the caret.
func (k KeyName) Navigation() bool {
	switch k {
	case KeyLeft, KeyRight, KeyUp, KeyDown, KeyHome, KeyEnd, KeyPageUp, KeyPageDown:
		return true
	}
	return false
}

// Event is a key event delivered by the host.
type Event struct {
	// Text is the raw text the key would produce. Empty for keys that
	// produce none.
	Text string

	// KeyCode is the platform-specific virtual key code.
	KeyCode uint16

	// Key is the layout-independent name for special keys.
	Key KeyName

	// Modifiers indicates which modifier keys are held.
	Modifiers Modifiers
}

// TextEvent creates an Event for a key that produces text.
func TextEvent(text string) Event {
	if text == " " {
		return Event{Text: text, Key: KeySpace}
	}
	return Event{Text: text}
}

// KeyEvent creates an Event for a named key.
func KeyEvent(key KeyName, mods Modifiers) Event {
	ev := Event{Key: key, Modifiers: mods}
	switch key {
	case KeyReturn:
		ev.Text = "\r"
	case KeyTab:
		ev.Text = "\t"
	case KeySpace:
		ev.Text = " "
	}
	return ev
}

// String renders the event for logs; newlines are escaped.
func (e Event) String() string {
	text := strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`).Replace(e.Text)
	return fmt.Sprintf("text=%q key=%s code=%d mods=%s", text, e.Key, e.KeyCode, e.Modifiers)
}

// Composition is the display state pushed to the host on update.
type Composition struct {
	Composed   string
	Original   string
	Candidates []string
	Mode       string
}

// Empty reports whether there is nothing to display.
func (c Composition) Empty() bool {
	return c.Composed == "" && len(c.Candidates) == 0
}

// Tag identifies a host configuration value passed to SetValue.
type Tag int

const (
	// TagInputMode carries the identifier of the composition mode to use.
	TagInputMode Tag = iota + 1
)

func (t Tag) String() string {
	if t == TagInputMode {
		return "input-mode"
	}
	return fmt.Sprintf("tag(%d)", int(t))
}

// EventMask is a set of event categories the engine wants delivered.
type EventMask uint32

const (
	MaskKeyDown EventMask = 1 << iota
	MaskFlagsChanged
	MaskLeftPointerDown
	MaskRightPointerDown
	MaskLeftPointerDragged
	MaskRightPointerDragged
)

// RecognizedEvents is the fixed set of categories the engine handles.
// Pointer events are requested so the host commits before caret moves.
const RecognizedEvents = MaskKeyDown | MaskFlagsChanged |
	MaskLeftPointerDown | MaskRightPointerDown |
	MaskLeftPointerDragged | MaskRightPointerDragged

// Has reports whether every category in o is part of m.
func (m EventMask) Has(o EventMask) bool {
	return m&o == o
}
