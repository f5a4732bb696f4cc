package ibus

import "composed/internal/ime"

// IBus key event state masks.
const (
	ShiftMask   uint32 = 1 << 0
	LockMask    uint32 = 1 << 1
	ControlMask uint32 = 1 << 2
	Mod1Mask    uint32 = 1 << 3 // Alt
	Mod4Mask    uint32 = 1 << 6 // Super
	SuperMask   uint32 = 1 << 26
	MetaMask    uint32 = 1 << 28
	ReleaseMask uint32 = 1 << 30
)

// X11 keysyms for the keys the engine names.
const (
	keyBackSpace   = 0xff08
	keyTab         = 0xff09
	keyReturn      = 0xff0d
	keyEscape      = 0xff1b
	keyHome        = 0xff50
	keyLeft        = 0xff51
	keyUp          = 0xff52
	keyRight       = 0xff53
	keyDown        = 0xff54
	keyPageUp      = 0xff55
	keyPageDown    = 0xff56
	keyEnd         = 0xff57
	keyKPEnter     = 0xff8d
	keyISOLeftTab  = 0xfe20
	keyDelete      = 0xffff
	keySpace       = 0x0020
	keyShiftL      = 0xffe1
	keyHyperR      = 0xffee
	keyISOLevel3   = 0xfe03
	keyISOLevel5   = 0xfe11
	unicodeKeysym  = 0x01000000
	maxUnicodeRune = 0x10ffff
)

var namedKeys = map[uint32]ime.KeyName{
	keyBackSpace:  ime.KeyBackspace,
	keyTab:        ime.KeyTab,
	keyISOLeftTab: ime.KeyTab,
	keyReturn:     ime.KeyReturn,
	keyKPEnter:    ime.KeyReturn,
	keyEscape:     ime.KeyEscape,
	keyDelete:     ime.KeyDelete,
	keyHome:       ime.KeyHome,
	keyLeft:       ime.KeyLeft,
	keyUp:         ime.KeyUp,
	keyRight:      ime.KeyRight,
	keyDown:       ime.KeyDown,
	keyPageUp:     ime.KeyPageUp,
	keyPageDown:   ime.KeyPageDown,
	keyEnd:        ime.KeyEnd,
	keySpace:      ime.KeySpace,
}

// keyvalToRune converts an X11 keysym to the character it types, or 0.
func keyvalToRune(keyval uint32) rune {
	switch {
	case keyval >= 0x20 && keyval <= 0x7e:
		return rune(keyval)
	case keyval >= 0xa0 && keyval <= 0xff:
		// Latin-1 keysyms equal their code points.
		return rune(keyval)
	case keyval >= unicodeKeysym && keyval-unicodeKeysym <= maxUnicodeRune:
		return rune(keyval - unicodeKeysym)
	}
	return 0
}

// isModifierKey reports whether keyval is a modifier on its own.
func isModifierKey(keyval uint32) bool {
	return (keyval >= keyShiftL && keyval <= keyHyperR) ||
		(keyval >= keyISOLevel3 && keyval <= keyISOLevel5)
}

// modifiers maps an IBus state mask to engine modifiers.
func modifiers(state uint32) ime.Modifiers {
	var m ime.Modifiers
	if state&ShiftMask != 0 {
		m |= ime.ModShift
	}
	if state&LockMask != 0 {
		m |= ime.ModCapsLock
	}
	if state&ControlMask != 0 {
		m |= ime.ModControl
	}
	if state&Mod1Mask != 0 {
		m |= ime.ModAlt
	}
	if state&(Mod4Mask|SuperMask|MetaMask) != 0 {
		m |= ime.ModMeta
	}
	return m
}

// TranslateKey converts a ProcessKeyEvent triple to an engine event. It
// returns false for key releases and bare modifier keys, which the
// engine never sees.
func TranslateKey(keyval, keycode, state uint32) (ime.Event, bool) {
	if state&ReleaseMask != 0 || isModifierKey(keyval) {
		return ime.Event{}, false
	}

	mods := modifiers(state)
	var ev ime.Event
	if name, ok := namedKeys[keyval]; ok {
		ev = ime.KeyEvent(name, mods)
	} else {
		ev = ime.Event{Modifiers: mods}
		if r := keyvalToRune(keyval); r != 0 {
			ev.Text = string(r)
		}
	}
	ev.KeyCode = uint16(keycode)
	return ev, true
}
