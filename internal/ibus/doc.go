// Package ibus exposes the composition engine to Linux desktops as an
// IBus engine over D-Bus.
//
// The Service plays the IBus factory role. Each CreateEngine call exports
// an EngineObject that owns one ime.Engine; the object's input context
// turns engine callbacks into preedit, lookup table and commit signals.
// Key translation and the component file are platform independent.
package ibus
