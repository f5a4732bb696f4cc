//go:build linux

package ibus

import "github.com/godbus/dbus/v5"

// Serialized IBus objects are D-Bus structs that start with the type name
// and an attachment dictionary.

const (
	attrTypeUnderline   = 1
	attrUnderlineSingle = 1

	propTypeRadio      = 2
	propTypeMenu       = 3
	propStateChecked   = 1
	propStateUnchecked = 0

	orientationSystem = 2
	preeditModeClear  = 0
)

type ibusAttribute struct {
	Name        string
	Attachments map[string]dbus.Variant
	Type        uint32
	Value       uint32
	Start       uint32
	End         uint32
}

type ibusAttrList struct {
	Name        string
	Attachments map[string]dbus.Variant
	Attributes  []dbus.Variant
}

type ibusText struct {
	Name        string
	Attachments map[string]dbus.Variant
	Text        string
	Attrs       dbus.Variant
}

type ibusLookupTable struct {
	Name          string
	Attachments   map[string]dbus.Variant
	PageSize      uint32
	CursorPos     uint32
	CursorVisible bool
	Round         bool
	Orientation   int32
	Candidates    []dbus.Variant
	Labels        []dbus.Variant
}

type ibusProperty struct {
	Name        string
	Attachments map[string]dbus.Variant
	Key         string
	Type        uint32
	Label       dbus.Variant
	Icon        string
	Tooltip     dbus.Variant
	Sensitive   bool
	Visible     bool
	State       uint32
	SubProps    dbus.Variant
	Symbol      dbus.Variant
}

type ibusPropList struct {
	Name        string
	Attachments map[string]dbus.Variant
	Props       []dbus.Variant
}

func attachments() map[string]dbus.Variant {
	return map[string]dbus.Variant{}
}

// newText builds an IBusText, underlined end to end when underline is set.
func newText(s string, underline bool) dbus.Variant {
	attrs := []dbus.Variant{}
	if n := uint32(len([]rune(s))); underline && n > 0 {
		attrs = append(attrs, dbus.MakeVariant(ibusAttribute{
			Name:        "IBusAttribute",
			Attachments: attachments(),
			Type:        attrTypeUnderline,
			Value:       attrUnderlineSingle,
			Start:       0,
			End:         n,
		}))
	}
	return dbus.MakeVariant(ibusText{
		Name:        "IBusText",
		Attachments: attachments(),
		Text:        s,
		Attrs: dbus.MakeVariant(ibusAttrList{
			Name:        "IBusAttrList",
			Attachments: attachments(),
			Attributes:  attrs,
		}),
	})
}

// newLookupTable builds an IBusLookupTable with numeric labels. cursor is
// the highlighted candidate, or -1 for none.
func newLookupTable(candidates []string, cursor int) dbus.Variant {
	cands := make([]dbus.Variant, 0, len(candidates))
	labels := make([]dbus.Variant, 0, len(candidates))
	for i, c := range candidates {
		cands = append(cands, newText(c, false))
		labels = append(labels, newText(string(rune('1'+i%9)), false))
	}

	pos := uint32(0)
	if cursor >= 0 {
		pos = uint32(cursor)
	}
	return dbus.MakeVariant(ibusLookupTable{
		Name:          "IBusLookupTable",
		Attachments:   attachments(),
		PageSize:      uint32(max(len(candidates), 1)),
		CursorPos:     pos,
		CursorVisible: cursor >= 0,
		Round:         true,
		Orientation:   orientationSystem,
		Candidates:    cands,
		Labels:        labels,
	})
}

func newPropList(props ...dbus.Variant) dbus.Variant {
	if props == nil {
		props = []dbus.Variant{}
	}
	return dbus.MakeVariant(ibusPropList{
		Name:        "IBusPropList",
		Attachments: attachments(),
		Props:       props,
	})
}

func newProperty(key string, typ uint32, label string, state uint32, sub dbus.Variant) dbus.Variant {
	return dbus.MakeVariant(ibusProperty{
		Name:        "IBusProperty",
		Attachments: attachments(),
		Key:         key,
		Type:        typ,
		Label:       newText(label, false),
		Tooltip:     newText(label, false),
		Sensitive:   true,
		Visible:     true,
		State:       state,
		SubProps:    sub,
		Symbol:      newText("", false),
	})
}

// modeProperties builds the input mode menu with current checked.
func modeProperties(modes []string, current string) dbus.Variant {
	items := make([]dbus.Variant, 0, len(modes))
	for _, m := range modes {
		state := uint32(propStateUnchecked)
		if m == current {
			state = propStateChecked
		}
		items = append(items, newProperty(modePropPrefix+m, propTypeRadio, m, state, newPropList()))
	}
	menu := newProperty("InputMode", propTypeMenu, "Input mode: "+current, propStateUnchecked, newPropList(items...))
	return newPropList(menu)
}

// textFromVariant extracts the string of a serialized IBusText. A plain
// string variant is accepted too.
func textFromVariant(v dbus.Variant) string {
	switch val := v.Value().(type) {
	case string:
		return val
	case []any:
		if len(val) >= 3 {
			if s, ok := val[2].(string); ok {
				return s
			}
		}
	}
	return ""
}
