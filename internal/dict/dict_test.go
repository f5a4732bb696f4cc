package dict

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wordList = `# sample
hello 50
help 80
helmet 10
held
world 30
word 40
`

func loaded(t *testing.T, opts ...Option) *Dictionary {
	t.Helper()
	d := New(opts...)
	n, err := d.Load(strings.NewReader(wordList))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	return d
}

func TestLoad(t *testing.T) {
	d := loaded(t)
	assert.Equal(t, 6, d.Len())
	assert.True(t, d.Contains("HELP"))
	assert.False(t, d.Contains("hel"))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad frequency", "ok 1\nbad x\n", "line 2"},
		{"negative frequency", "bad -3\n", "line 1"},
		{"too many fields", "a b c\n", "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Load(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAddKeepsHigherFrequency(t *testing.T) {
	d := New()
	d.Add("go", 5)
	d.Add("go", 2)
	d.Add("gopher", 1)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"go", "gopher"}, d.Lookup("go", 5))

	d.Add("gopher", 9)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"gopher", "go"}, d.Lookup("go", 5))
}

func TestLookupRanking(t *testing.T) {
	d := loaded(t, WithFuzzyDistance(0))

	assert.Equal(t, []string{"help", "hello", "helmet", "held"}, d.Lookup("hel", 10))
	assert.Equal(t, []string{"help", "hello"}, d.Lookup("hel", 2))
	assert.Equal(t, []string{"Help", "Hello"}, d.Lookup("Hel", 2))
	assert.Empty(t, d.Lookup("xyz", 3))
	assert.Empty(t, d.Lookup("", 3))
	assert.Empty(t, d.Lookup("hel", 0))
}

func TestLookupFuzzy(t *testing.T) {
	d := loaded(t, WithFuzzyDistance(1))

	// "wrd" has no prefix match; "word" is one insertion away.
	assert.Equal(t, []string{"word"}, d.Lookup("wrd", 5))

	// Every "hel" word is one edit from "helo"; base frequency decides.
	assert.Equal(t, []string{"help", "hello", "helmet", "held"}, d.Lookup("helo", 5))

	// Short prefixes never match fuzzily.
	assert.Empty(t, d.Lookup("wx", 5))
}

type stubFrequencies map[string]int

func (s stubFrequencies) Frequencies(words []string) (map[string]int, error) {
	out := make(map[string]int)
	for _, w := range words {
		if n, ok := s[w]; ok {
			out[w] = n
		}
	}
	return out, nil
}

type failingFrequencies struct{}

func (failingFrequencies) Frequencies([]string) (map[string]int, error) {
	return nil, errors.New("database is locked")
}

func TestLookupUserFrequencyFirst(t *testing.T) {
	d := loaded(t, WithFuzzyDistance(0), WithUserFrequencies(stubFrequencies{"held": 3}))
	assert.Equal(t, []string{"held", "help", "hello"}, d.Lookup("hel", 3))

	d = loaded(t, WithFuzzyDistance(0), WithUserFrequencies(failingFrequencies{}))
	assert.Equal(t, []string{"help", "hello"}, d.Lookup("hel", 2))
}

func TestLookupNormalizesCombiningMarks(t *testing.T) {
	d := New()
	d.Add("caf\u00e9", 1)

	assert.Equal(t, []string{"caf\u00e9"}, d.Lookup("cafe\u0301", 1))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte(wordList), 0600))

	d := New()
	n, err := d.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, err = d.LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestDictionaryWithUserStore(t *testing.T) {
	store, err := OpenUserStore(filepath.Join(t.TempDir(), "user.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	d := loaded(t, WithFuzzyDistance(0), WithUserFrequencies(store))
	require.NoError(t, store.Record("helmet"))

	assert.Equal(t, []string{"helmet", "help"}, d.Lookup("hel", 2))
}
