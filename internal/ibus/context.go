//go:build linux

package ibus

import (
	"log/slog"
	"slices"

	"github.com/godbus/dbus/v5"

	"composed/internal/ime"
)

// inputContext is the engine's view of the focused application: it is
// both the ime.InputClient and the ime.Host, and turns their calls into
// engine signals. Its methods run with the owning EngineObject's mu held.
type inputContext struct {
	path   dbus.ObjectPath
	bus    bus
	logger *slog.Logger
	caps   uint32

	// Surrounding text as last reported by the client, in runes.
	surrounding    []rune
	caret, anchor  int
	hasSurrounding bool

	// cursor is the highlighted lookup table row, or -1.
	cursor int
}

func (c *inputContext) emit(member string, values ...any) {
	if err := c.bus.Emit(c.path, engineInterface+"."+member, values...); err != nil {
		c.logger.Warn("emit failed", "signal", member, "error", err)
	}
}

func (c *inputContext) setSurrounding(text string, caret, anchor int) {
	c.surrounding = []rune(text)
	c.caret = clamp(caret, 0, len(c.surrounding))
	c.anchor = clamp(anchor, 0, len(c.surrounding))
	c.hasSurrounding = true
}

func (c *inputContext) forgetSurrounding() {
	c.surrounding = nil
	c.caret, c.anchor = 0, 0
	c.hasSurrounding = false
}

// SelectionRange reports the selection from the surrounding text, or
// NoRange when the client does not provide it.
func (c *inputContext) SelectionRange() ime.SelectionRange {
	if !c.hasSurrounding {
		return ime.NoRange
	}
	start, end := min(c.caret, c.anchor), max(c.caret, c.anchor)
	return ime.SelectionRange{Location: start, Length: end - start}
}

// InsertText commits text. A replacement range is deleted first with
// DeleteSurroundingText, relative to the caret.
func (c *inputContext) InsertText(text string, replacement ime.SelectionRange) {
	c.emit("HidePreeditText")
	c.emit("HideLookupTable")
	c.cursor = -1

	at := c.caret
	if replacement.HasSelection() {
		c.emit("DeleteSurroundingText", int32(replacement.Location-c.caret), uint32(replacement.Length))
		at = replacement.Location
		if c.hasSurrounding {
			end := clamp(at+replacement.Length, 0, len(c.surrounding))
			at = clamp(at, 0, end)
			c.surrounding = slices.Delete(c.surrounding, at, end)
		}
	}
	c.emit("CommitText", newText(text, false))

	if c.hasSurrounding {
		ins := []rune(text)
		at = clamp(at, 0, len(c.surrounding))
		c.surrounding = slices.Insert(c.surrounding, at, ins...)
		c.caret = at + len(ins)
		c.anchor = c.caret
	}
}

// UpdateComposition shows the preedit, underlined, with the candidate
// table when there are candidates.
func (c *inputContext) UpdateComposition(comp ime.Composition) {
	if comp.Composed == "" {
		c.CancelComposition()
		return
	}

	c.emit("UpdatePreeditText", newText(comp.Composed, true), uint32(len([]rune(comp.Composed))), true, uint32(preeditModeClear))

	if len(comp.Candidates) == 0 {
		c.cursor = -1
		c.emit("HideLookupTable")
		return
	}
	c.cursor = slices.Index(comp.Candidates, comp.Composed)
	if comp.Composed == comp.Original {
		// Typed text that happens to be a candidate is not a preview.
		c.cursor = -1
	}
	c.emit("UpdateLookupTable", newLookupTable(comp.Candidates, c.cursor), true)
}

// CancelComposition hides the preedit and the candidate table.
func (c *inputContext) CancelComposition() {
	c.cursor = -1
	c.emit("HidePreeditText")
	c.emit("HideLookupTable")
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
