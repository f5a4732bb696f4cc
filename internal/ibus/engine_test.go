//go:build linux

package ibus

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"composed/internal/composer"
	"composed/internal/ime"
	"composed/internal/metrics"
)

type signal struct {
	path   dbus.ObjectPath
	member string
	values []any
}

type export struct {
	obj   any
	path  dbus.ObjectPath
	iface string
}

type fakeBus struct {
	mu      sync.Mutex
	signals []signal
	exports []export
}

func (b *fakeBus) Export(v any, path dbus.ObjectPath, iface string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exports = append(b.exports, export{v, path, iface})
	return nil
}

func (b *fakeBus) Emit(path dbus.ObjectPath, name string, values ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = append(b.signals, signal{path, strings.TrimPrefix(name, engineInterface+"."), values})
	return nil
}

// take returns and clears the recorded signals.
func (b *fakeBus) take() []signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.signals
	b.signals = nil
	return s
}

func members(sigs []signal) []string {
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = s.member
	}
	return out
}

func find(t *testing.T, sigs []signal, member string) signal {
	t.Helper()
	for _, s := range sigs {
		if s.member == member {
			return s
		}
	}
	t.Fatalf("no %s signal in %v", member, members(sigs))
	return signal{}
}

func commits(sigs []signal) []string {
	var out []string
	for _, s := range sigs {
		if s.member == "CommitText" {
			out = append(out, textOf(s.values[0]))
		}
	}
	return out
}

func textOf(v any) string {
	return v.(dbus.Variant).Value().(ibusText).Text
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type words []string

func (w words) Lookup(prefix string, limit int) []string {
	var out []string
	for _, s := range w {
		if strings.HasPrefix(s, prefix) && len(out) < limit {
			out = append(out, s)
		}
	}
	return out
}

func newTestEngine(t *testing.T) (*EngineObject, *fakeBus) {
	t.Helper()
	b := &fakeBus{}
	sw := composer.Standard(words{"hello", "help", "helm"}, composer.WordConfig{}, composer.DeadKeyConfig{}, nil)
	return newEngineObject("/test/engine", b, sw, nil, discardLogger()), b
}

func typeString(t *testing.T, o *EngineObject, s string) []bool {
	t.Helper()
	var consumed []bool
	for _, r := range s {
		ok, err := o.ProcessKeyEvent(uint32(r), 0, 0)
		require.Nil(t, err)
		consumed = append(consumed, ok)
	}
	return consumed
}

func TestEngineObjectPreedit(t *testing.T) {
	o, b := newTestEngine(t)

	assert.Equal(t, []bool{true, true, true}, typeString(t, o, "hel"))

	sigs := b.take()
	pre := find(t, sigs, "UpdatePreeditText")
	assert.Equal(t, "h", textOf(pre.values[0]))
	assert.Equal(t, dbus.ObjectPath("/test/engine"), pre.path)

	last := sigs[len(sigs)-2]
	require.Equal(t, "UpdatePreeditText", last.member)
	assert.Equal(t, "hel", textOf(last.values[0]))
	assert.Equal(t, uint32(3), last.values[1])
	assert.Equal(t, true, last.values[2])

	attrs := last.values[0].(dbus.Variant).Value().(ibusText).Attrs.Value().(ibusAttrList)
	require.Len(t, attrs.Attributes, 1)
	underline := attrs.Attributes[0].Value().(ibusAttribute)
	assert.Equal(t, uint32(attrTypeUnderline), underline.Type)
	assert.Equal(t, uint32(3), underline.End)

	table := sigs[len(sigs)-1]
	require.Equal(t, "UpdateLookupTable", table.member)
	lt := table.values[0].(dbus.Variant).Value().(ibusLookupTable)
	require.Len(t, lt.Candidates, 3)
	assert.Equal(t, "hello", textOf(lt.Candidates[0]))
	assert.Equal(t, "1", textOf(lt.Labels[0]))
	assert.False(t, lt.CursorVisible)
}

func TestEngineObjectCommit(t *testing.T) {
	tests := []struct {
		name        string
		run         func(o *EngineObject)
		wantCommits []string
	}{
		{
			name: "space commits word with separator",
			run: func(o *EngineObject) {
				ok, _ := o.ProcessKeyEvent(keySpace, 0, 0)
				assert.True(t, ok)
			},
			wantCommits: []string{"hel "},
		},
		{
			name: "return commits and passes through",
			run: func(o *EngineObject) {
				ok, _ := o.ProcessKeyEvent(keyReturn, 0, 0)
				assert.False(t, ok)
			},
			wantCommits: []string{"hel"},
		},
		{
			name: "candidate click",
			run: func(o *EngineObject) {
				assert.Nil(t, o.CandidateClicked(1, 1, 0))
			},
			wantCommits: []string{"help"},
		},
		{
			name: "click past the table is ignored",
			run: func(o *EngineObject) {
				assert.Nil(t, o.CandidateClicked(7, 1, 0))
			},
		},
		{
			name: "focus out keeps typed text",
			run: func(o *EngineObject) {
				assert.Nil(t, o.FocusOut())
			},
			wantCommits: []string{"hel"},
		},
		{
			name: "reset keeps typed text",
			run: func(o *EngineObject) {
				assert.Nil(t, o.Reset())
			},
			wantCommits: []string{"hel"},
		},
		{
			name: "escape cancels into a commit",
			run: func(o *EngineObject) {
				ok, _ := o.ProcessKeyEvent(keyEscape, 0, 0)
				assert.False(t, ok)
			},
			wantCommits: []string{"hel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, b := newTestEngine(t)
			typeString(t, o, "hel")
			b.take()

			tt.run(o)

			sigs := b.take()
			assert.Equal(t, tt.wantCommits, commits(sigs))
			if len(tt.wantCommits) > 0 {
				assert.Contains(t, members(sigs), "HidePreeditText")
				assert.Equal(t, "", o.Composition().Composed)
			}
		})
	}
}

func TestEngineObjectCursorPreview(t *testing.T) {
	o, b := newTestEngine(t)
	typeString(t, o, "hel")
	b.take()

	require.Nil(t, o.CursorDown())
	sigs := b.take()
	assert.Equal(t, "hello", textOf(find(t, sigs, "UpdatePreeditText").values[0]))
	lt := find(t, sigs, "UpdateLookupTable").values[0].(dbus.Variant).Value().(ibusLookupTable)
	assert.True(t, lt.CursorVisible)
	assert.Equal(t, uint32(0), lt.CursorPos)

	require.Nil(t, o.CursorDown())
	assert.Equal(t, "help", o.Composition().Composed)

	require.Nil(t, o.CursorUp())
	require.Nil(t, o.CursorUp())
	assert.Equal(t, "helm", o.Composition().Composed, "wraps around")

	ok, _ := o.ProcessKeyEvent(keySpace, 0, 0)
	assert.True(t, ok)
	assert.Equal(t, []string{"helm "}, commits(b.take()))
}

func TestEngineObjectIgnoresReleaseAndModifiers(t *testing.T) {
	o, b := newTestEngine(t)

	ok, err := o.ProcessKeyEvent('a', 0, ReleaseMask)
	require.Nil(t, err)
	assert.False(t, ok)

	ok, _ = o.ProcessKeyEvent(keyShiftL, 0, 0)
	assert.False(t, ok)
	assert.Empty(t, b.take())
}

func TestEngineObjectDisabledPassesKeysThrough(t *testing.T) {
	o, b := newTestEngine(t)

	typeString(t, o, "he")
	require.Nil(t, o.Disable())
	assert.Equal(t, []string{"he"}, commits(b.take()))

	assert.Equal(t, []bool{false, false}, typeString(t, o, "xy"))
	assert.Empty(t, b.take())
	assert.Empty(t, o.Composition().Composed)

	require.Nil(t, o.Enable())
	assert.Equal(t, []bool{true}, typeString(t, o, "h"))
}

func TestEngineObjectReplacesSelection(t *testing.T) {
	o, b := newTestEngine(t)
	require.Nil(t, o.SetSurroundingText(dbus.MakeVariant("abcd"), 3, 1))

	typeString(t, o, "x")
	ok, _ := o.ProcessKeyEvent(keySpace, 0, 0)
	require.True(t, ok)

	sigs := b.take()
	del := find(t, sigs, "DeleteSurroundingText")
	assert.Equal(t, int32(-2), del.values[0])
	assert.Equal(t, uint32(2), del.values[1])
	assert.Equal(t, []string{"x "}, commits(sigs))

	assert.Equal(t, "ax d", string(o.ctx.surrounding))
	assert.Equal(t, 3, o.ctx.caret)
	assert.Equal(t, ime.SelectionRange{Location: 3, Length: 0}, o.ctx.SelectionRange())
}

func TestEngineObjectInputMode(t *testing.T) {
	o, b := newTestEngine(t)

	require.Nil(t, o.FocusIn())
	props := find(t, b.take(), "RegisterProperties")
	list := props.values[0].(dbus.Variant).Value().(ibusPropList)
	require.Len(t, list.Props, 1)
	menu := list.Props[0].Value().(ibusProperty)
	assert.Equal(t, "InputMode", menu.Key)
	items := menu.SubProps.Value().(ibusPropList).Props
	require.Len(t, items, 3)
	first := items[0].Value().(ibusProperty)
	assert.Equal(t, "InputMode.word", first.Key)
	assert.Equal(t, uint32(propStateChecked), first.State)

	typeString(t, o, "he")
	b.take()

	require.Nil(t, o.PropertyActivate("InputMode.direct", propStateChecked))
	sigs := b.take()
	assert.Equal(t, []string{"he"}, commits(sigs), "switching modes commits")
	assert.Contains(t, members(sigs), "RegisterProperties")
	assert.Equal(t, "direct", o.Composition().Mode)

	ok, _ := o.ProcessKeyEvent('q', 0, 0)
	assert.False(t, ok, "direct mode passes keys through")

	require.Nil(t, o.PropertyActivate("InputMode.bogus", propStateChecked))
	assert.Equal(t, "direct", o.Composition().Mode)

	require.Nil(t, o.PropertyActivate("InputMode.word", propStateUnchecked))
	assert.Equal(t, "direct", o.Composition().Mode)

	assert.Error(t, o.SetMode("bogus"))
	require.NoError(t, o.SetMode("deadkey"))
	assert.Equal(t, "deadkey", o.Composition().Mode)
}

func TestServiceCreateEngine(t *testing.T) {
	b := &fakeBus{}
	m := metrics.NewServiceMetrics(metrics.NewRegistry("test", ""))
	s := NewService(b, Config{
		EngineName: "composed",
		NewComposer: func() ime.Composer {
			return composer.Standard(nil, composer.WordConfig{}, composer.DeadKeyConfig{}, nil)
		},
		Metrics: m,
		Logger:  discardLogger(),
	})

	_, dErr := s.CreateEngine("other")
	require.NotNil(t, dErr)
	assert.Equal(t, "org.freedesktop.IBus.NoEngine", dErr.Name)

	path, dErr := s.CreateEngine("composed")
	require.Nil(t, dErr)
	assert.True(t, strings.HasPrefix(string(path), enginePathPrefix))
	assert.True(t, path.IsValid())
	assert.Len(t, b.exports, 2)
	assert.Equal(t, engineInterface, b.exports[0].iface)
	assert.Equal(t, serviceInterface, b.exports[1].iface)
	assert.Equal(t, uint64(1), m.EnginesCreated.Value())
	assert.Equal(t, int64(1), m.ActiveEngines.Value())

	other, dErr := s.CreateEngine("composed")
	require.Nil(t, dErr)
	assert.NotEqual(t, path, other)
	assert.Len(t, s.Engines(), 2)

	obj := s.Engine(path)
	require.NotNil(t, obj)
	require.Nil(t, obj.FocusIn())
	assert.Equal(t, uint64(1), m.FocusChanges.Value())

	require.NoError(t, s.SetMode("direct"))
	assert.Equal(t, "direct", obj.Composition().Mode)

	require.Nil(t, obj.Destroy())
	assert.Nil(t, s.Engine(path))
	assert.Equal(t, int64(1), m.ActiveEngines.Value())
	last := b.exports[len(b.exports)-1]
	assert.Nil(t, last.obj)
	assert.Equal(t, path, last.path)

	s.Close()
	assert.Empty(t, s.Engines())
	assert.Equal(t, int64(0), m.ActiveEngines.Value())
}
