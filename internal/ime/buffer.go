package ime

// BufferClient is an in-memory text surface. It implements both
// InputClient and Host: composition updates become its marked text, and
// inserting text replaces whatever was marked.
//
// Offsets are in runes. A BufferClient is not safe for concurrent use.
type BufferClient struct {
	text     []rune
	caret    int
	selStart int
	selLen   int
	marked   Composition
}

// NewBufferClient returns a buffer holding initial with the caret at
// the end.
func NewBufferClient(initial string) *BufferClient {
	r := []rune(initial)
	return &BufferClient{text: r, caret: len(r)}
}

// Text returns the committed document.
func (b *BufferClient) Text() string {
	return string(b.text)
}

// Caret returns the insertion offset.
func (b *BufferClient) Caret() int {
	return b.caret
}

// Marked returns the last composition pushed by the engine.
func (b *BufferClient) Marked() Composition {
	return b.marked
}

// Select sets the selection. A zero length collapses it to a caret at
// start. Out-of-range values are clamped.
func (b *BufferClient) Select(start, length int) {
	start = b.clamp(start)
	end := b.clamp(start + length)
	b.selStart = start
	b.selLen = end - start
	b.caret = end
	if b.selLen == 0 {
		b.caret = start
	}
}

// MoveCaret collapses the selection and moves the caret by delta.
func (b *BufferClient) MoveCaret(delta int) {
	b.caret = b.clamp(b.caret + delta)
	b.selLen = 0
}

// SelectionRange implements InputClient.
func (b *BufferClient) SelectionRange() SelectionRange {
	if b.selLen > 0 {
		return SelectionRange{Location: b.selStart, Length: b.selLen}
	}
	return SelectionRange{Location: b.caret}
}

// InsertText implements InputClient. NoRange replaces the current
// selection, or inserts at the caret when nothing is selected.
func (b *BufferClient) InsertText(text string, replacement SelectionRange) {
	start, end := b.caret, b.caret
	switch {
	case !replacement.IsNone():
		start = b.clamp(replacement.Location)
		end = b.clamp(replacement.Location + replacement.Length)
	case b.selLen > 0:
		start, end = b.selStart, b.selStart+b.selLen
	}
	b.replace(start, end, []rune(text))
	b.marked = Composition{}
}

// UpdateComposition implements Host.
func (b *BufferClient) UpdateComposition(c Composition) {
	b.marked = c
}

// CancelComposition implements Host.
func (b *BufferClient) CancelComposition() {
	b.marked = Composition{}
}

// ApplyDefault performs what a plain text field does with an event the
// engine left to the host.
func (b *BufferClient) ApplyDefault(ev Event) {
	if ev.Modifiers.Shortcut() {
		return
	}
	switch ev.Key {
	case KeyReturn:
		b.InsertText("\n", NoRange)
	case KeyTab:
		b.InsertText("\t", NoRange)
	case KeyBackspace:
		if b.selLen > 0 {
			b.replace(b.selStart, b.selStart+b.selLen, nil)
		} else if b.caret > 0 {
			b.replace(b.caret-1, b.caret, nil)
		}
	case KeyDelete:
		if b.selLen > 0 {
			b.replace(b.selStart, b.selStart+b.selLen, nil)
		} else if b.caret < len(b.text) {
			b.replace(b.caret, b.caret+1, nil)
		}
	case KeyLeft:
		b.MoveCaret(-1)
	case KeyRight:
		b.MoveCaret(1)
	case KeyHome:
		b.MoveCaret(-b.caret)
	case KeyEnd:
		b.MoveCaret(len(b.text) - b.caret)
	case KeyEscape, KeyUp, KeyDown, KeyPageUp, KeyPageDown:
	default:
		if ev.Text != "" {
			b.InsertText(ev.Text, NoRange)
		}
	}
}

func (b *BufferClient) replace(start, end int, with []rune) {
	out := make([]rune, 0, len(b.text)-(end-start)+len(with))
	out = append(out, b.text[:start]...)
	out = append(out, with...)
	out = append(out, b.text[end:]...)
	b.text = out
	b.caret = start + len(with)
	b.selLen = 0
}

func (b *BufferClient) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i > len(b.text) {
		return len(b.text)
	}
	return i
}

var (
	_ InputClient = (*BufferClient)(nil)
	_ Host        = (*BufferClient)(nil)
)
