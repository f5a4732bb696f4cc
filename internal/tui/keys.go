package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"composed/internal/ime"
)

var namedKeys = map[tea.KeyType]ime.KeyName{
	tea.KeyEnter:     ime.KeyReturn,
	tea.KeyEsc:       ime.KeyEscape,
	tea.KeyBackspace: ime.KeyBackspace,
	tea.KeyCtrlH:     ime.KeyBackspace,
	tea.KeyDelete:    ime.KeyDelete,
	tea.KeyTab:       ime.KeyTab,
	tea.KeySpace:     ime.KeySpace,
	tea.KeyLeft:      ime.KeyLeft,
	tea.KeyRight:     ime.KeyRight,
	tea.KeyUp:        ime.KeyUp,
	tea.KeyDown:      ime.KeyDown,
	tea.KeyHome:      ime.KeyHome,
	tea.KeyEnd:       ime.KeyEnd,
	tea.KeyPgUp:      ime.KeyPageUp,
	tea.KeyPgDown:    ime.KeyPageDown,
}

// keyEvent converts a terminal key to an engine event. It returns false
// for keys that have no event form.
func keyEvent(msg tea.KeyMsg) (ime.Event, bool) {
	var mods ime.Modifiers
	if msg.Alt {
		mods |= ime.ModAlt
	}

	if msg.Type == tea.KeyShiftTab {
		return ime.KeyEvent(ime.KeyTab, mods|ime.ModShift), true
	}
	if name, ok := namedKeys[msg.Type]; ok {
		return ime.KeyEvent(name, mods), true
	}
	if msg.Type == tea.KeyRunes {
		if len(msg.Runes) == 0 {
			return ime.Event{}, false
		}
		ev := ime.TextEvent(string(msg.Runes))
		ev.Modifiers = mods
		return ev, true
	}

	// Remaining control keys arrive as "ctrl+x".
	if letter, ok := strings.CutPrefix(msg.String(), "ctrl+"); ok && len(letter) == 1 {
		return ime.Event{Text: letter, Modifiers: mods | ime.ModControl}, true
	}
	return ime.Event{}, false
}
