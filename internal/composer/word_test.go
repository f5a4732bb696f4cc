package composer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"composed/internal/ime"
)

type stubLookup map[string][]string

func (s stubLookup) Lookup(prefix string, limit int) []string {
	c := s[prefix]
	if len(c) > limit {
		c = c[:limit]
	}
	return c
}

type recorder struct {
	words []string
	err   error
}

func (r *recorder) Record(w string) error {
	r.words = append(r.words, w)
	return r.err
}

func typeText(t *testing.T, c ime.Composer, text string) {
	t.Helper()
	for _, r := range text {
		require.Equal(t, ime.Processed, c.Handle(ime.TextEvent(string(r)), nil), "rune %q", r)
	}
}

func TestWordKeyTable(t *testing.T) {
	tests := []struct {
		name       string
		typed      string
		ev         ime.Event
		want       ime.ProcessResult
		wantCommit string
		wantComp   string
	}{
		{"letter starts word", "", ime.TextEvent("h"), ime.Processed, "", "h"},
		{"digit alone passes", "", ime.TextEvent("4"), ime.NotProcessed, "", ""},
		{"digit continues word", "mp", ime.TextEvent("3"), ime.Processed, "", "mp3"},
		{"apostrophe continues word", "don", ime.TextEvent("'"), ime.Processed, "", "don'"},
		{"space commits word", "hi", ime.TextEvent(" "), ime.Processed, "hi ", ""},
		{"space alone passes", "", ime.TextEvent(" "), ime.NotProcessed, "", ""},
		{"punctuation commits word", "hi", ime.TextEvent("!"), ime.Processed, "hi!", ""},
		{"punctuation alone passes", "", ime.TextEvent("."), ime.NotProcessed, "", ""},
		{"return commits for host", "hi", ime.KeyEvent(ime.KeyReturn, 0), ime.NotProcessedAndNeedsCommit, "hi", ""},
		{"return alone passes", "", ime.KeyEvent(ime.KeyReturn, 0), ime.NotProcessed, "", ""},
		{"escape cancels", "hi", ime.KeyEvent(ime.KeyEscape, 0), ime.NotProcessedAndNeedsCancel, "", "hi"},
		{"escape alone passes", "", ime.KeyEvent(ime.KeyEscape, 0), ime.NotProcessed, "", ""},
		{"backspace edits", "hit", ime.KeyEvent(ime.KeyBackspace, 0), ime.Processed, "", "hi"},
		{"backspace alone passes", "", ime.KeyEvent(ime.KeyBackspace, 0), ime.NotProcessed, "", ""},
		{"arrow commits for host", "hi", ime.KeyEvent(ime.KeyLeft, 0), ime.NotProcessedAndNeedsCommit, "hi", ""},
		{"shortcut commits for host", "hi", ime.Event{Text: "c", Modifiers: ime.ModControl}, ime.NotProcessedAndNeedsCommit, "hi", ""},
		{"shortcut alone passes", "", ime.Event{Text: "c", Modifiers: ime.ModMeta}, ime.NotProcessed, "", ""},
		{"shift letter composes", "h", ime.Event{Text: "I", Modifiers: ime.ModShift}, ime.Processed, "", "hI"},
		{"tab without candidates commits", "zz", ime.KeyEvent(ime.KeyTab, 0), ime.NotProcessedAndNeedsCommit, "zz", ""},
		{"multi-rune text commits with word", "hi", ime.TextEvent("…?"), ime.Processed, "hi…?", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWord(ModeWord, nil, WordConfig{})
			typeText(t, w, tt.typed)

			got := w.Handle(tt.ev, nil)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantComp, w.ComposedString())
			assert.Equal(t, tt.wantCommit, w.DequeueCommitString())
			assert.Empty(t, w.DequeueCommitString(), "drained once")
		})
	}
}

func TestWordCandidates(t *testing.T) {
	lookup := stubLookup{
		"he":  {"hello", "help", "held"},
		"hel": {"help", "hello"},
	}
	w := NewWord(ModeWord, lookup, WordConfig{MaxCandidates: 2})

	typeText(t, w, "he")
	assert.Equal(t, []string{"hello", "help"}, w.Candidates())
	assert.Equal(t, "he", w.OriginalString())

	// Tab cycles through the candidates as a preview.
	assert.Equal(t, ime.Processed, w.Handle(ime.KeyEvent(ime.KeyTab, 0), nil))
	assert.Equal(t, "hello", w.ComposedString())
	assert.Equal(t, ime.Processed, w.Handle(ime.KeyEvent(ime.KeyTab, 0), nil))
	assert.Equal(t, "help", w.ComposedString())
	assert.Equal(t, ime.Processed, w.Handle(ime.KeyEvent(ime.KeyTab, 0), nil))
	assert.Equal(t, "hello", w.ComposedString())
	assert.Equal(t, "he", w.OriginalString())

	// Typing drops the preview and refreshes candidates.
	typeText(t, w, "l")
	assert.Equal(t, "hel", w.ComposedString())
	assert.Equal(t, []string{"help", "hello"}, w.Candidates())

	// Space commits the previewed candidate.
	w.CandidateSelectionChanged("hello")
	assert.Equal(t, "hello", w.ComposedString())
	assert.Equal(t, ime.Processed, w.Handle(ime.TextEvent(" "), nil))
	assert.Equal(t, "hello ", w.DequeueCommitString())
	assert.Empty(t, w.Candidates())
}

func TestWordCandidateSelected(t *testing.T) {
	rec := &recorder{}
	w := NewWord(ModeWord, stubLookup{"fo": {"foo", "food"}}, WordConfig{Recorder: rec})
	typeText(t, w, "fo")

	w.CandidateSelected("food")
	assert.Equal(t, "food", w.DequeueCommitString())
	assert.Empty(t, w.ComposedString())
	assert.Empty(t, w.OriginalString())
	assert.Equal(t, []string{"food"}, rec.words)

	// Recorder failures do not affect the commit.
	rec.err = errors.New("disk full")
	w.CandidateSelected("foo")
	assert.Equal(t, "foo", w.DequeueCommitString())
}

func TestWordCancelKeepsTypedText(t *testing.T) {
	w := NewWord(ModeWord, stubLookup{"ca": {"cat"}}, WordConfig{})
	typeText(t, w, "ca")
	w.CandidateSelectionChanged("cat")

	w.CancelComposition()
	assert.Empty(t, w.ComposedString())
	assert.Empty(t, w.OriginalString())
	assert.Empty(t, w.Candidates())
	assert.Equal(t, "ca", w.DequeueCommitString())

	w.CancelComposition()
	assert.Empty(t, w.DequeueCommitString())
}

func TestWordThroughEngine(t *testing.T) {
	w := NewWord(ModeWord, stubLookup{"wor": {"world", "word"}}, WordConfig{})
	buf := ime.NewBufferClient("")
	e := ime.NewEngine(w, buf)

	feed := func(ev ime.Event) {
		t.Helper()
		res, err := e.HandleEvent(ev, buf)
		require.NoError(t, err)
		if !res.Consumed() {
			buf.ApplyDefault(ev)
		}
	}

	for _, r := range "hello wor" {
		feed(ime.TextEvent(string(r)))
	}
	assert.Equal(t, "hello ", buf.Text())
	assert.Equal(t, "wor", buf.Marked().Composed)
	assert.Equal(t, []string{"world", "word"}, buf.Marked().Candidates)

	ok, err := e.CandidateSelected("world", buf)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello world", buf.Text())
	assert.True(t, buf.Marked().Empty())

	for _, r := range "ok" {
		feed(ime.TextEvent(string(r)))
	}
	feed(ime.KeyEvent(ime.KeyReturn, 0))
	assert.Equal(t, "hello worldok\n", buf.Text())

	feed(ime.TextEvent("x"))
	feed(ime.KeyEvent(ime.KeyEscape, 0))
	assert.Equal(t, "hello worldok\nx", buf.Text())
	assert.Empty(t, buf.Marked().Composed)
}
