// Package dict provides the candidate dictionary used by the word
// composer: a prefix trie of known words, fuzzy matching for typos, and a
// SQLite store of the user's own choices.
package dict

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/derekparker/trie"
	"golang.org/x/text/unicode/norm"
)

// minFuzzyLen is the shortest prefix that gets fuzzy matches. Shorter
// prefixes are within edit distance of almost everything.
const minFuzzyLen = 3

// FrequencySource reports how often the user picked words.
type FrequencySource interface {
	Frequencies(words []string) (map[string]int, error)
}

// Dictionary ranks completions for a typed prefix. It is safe for
// concurrent use.
type Dictionary struct {
	mu    sync.RWMutex
	words *trie.Trie
	size  int

	user   FrequencySource
	fuzzy  int
	logger *slog.Logger
}

// Option configures a Dictionary.
type Option func(*Dictionary)

// WithUserFrequencies ranks candidates by the user's history first.
func WithUserFrequencies(src FrequencySource) Option {
	return func(d *Dictionary) { d.user = src }
}

// WithFuzzyDistance sets the maximum edit distance for fuzzy matches.
// Zero disables fuzzy matching.
func WithFuzzyDistance(n int) Option {
	return func(d *Dictionary) { d.fuzzy = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dictionary) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates an empty dictionary.
func New(opts ...Option) *Dictionary {
	d := &Dictionary{
		words:  trie.New(),
		fuzzy:  1,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dict")
	return d
}

// Add inserts word with a base frequency. Adding a known word keeps the
// higher frequency.
func (d *Dictionary) Add(word string, freq int) {
	word = normalize(word)
	if word == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	node, ok := d.words.Find(word)
	if ok {
		if old, _ := node.Meta().(int); old >= freq {
			return
		}
	} else {
		d.size++
	}
	// Re-adding replaces the terminal node and its meta.
	d.words.Add(word, freq)
}

// Contains reports whether word is in the dictionary.
func (d *Dictionary) Contains(word string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.words.Find(normalize(word))
	return ok
}

// Len returns the number of words.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.size
}

// Load reads a word list: one word per line, optionally followed by
// whitespace and a base frequency. Blank lines and lines starting with
// '#' are skipped. It returns the number of words read.
func (d *Dictionary) Load(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	n, line := 0, 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		freq := 0
		switch len(fields) {
		case 1:
		case 2:
			f, err := strconv.Atoi(fields[1])
			if err != nil || f < 0 {
				return n, fmt.Errorf("line %d: invalid frequency %q", line, fields[1])
			}
			freq = f
		default:
			return n, fmt.Errorf("line %d: expected \"word [frequency]\"", line)
		}

		d.Add(fields[0], freq)
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read word list: %w", err)
	}
	return n, nil
}

// LoadFile loads a word list from path.
func (d *Dictionary) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	n, err := d.Load(f)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	d.logger.Info("word list loaded", "path", path, "words", n)
	return n, nil
}

type candidate struct {
	word     string
	base     int
	user     int
	distance int
}

// Lookup returns up to limit completions for prefix. Prefix matches come
// first, ordered by user frequency, base frequency and length. When they
// are fewer than limit, words within the fuzzy distance follow. A prefix
// starting with an upper-case letter yields capitalized candidates.
func (d *Dictionary) Lookup(prefix string, limit int) []string {
	p := normalize(prefix)
	if p == "" || limit <= 0 {
		return nil
	}

	d.mu.RLock()
	cands := d.prefixMatches(p)
	if len(cands) < limit && d.fuzzy > 0 && utf8.RuneCountInString(p) >= minFuzzyLen {
		cands = append(cands, d.fuzzyMatches(p, cands)...)
	}
	d.mu.RUnlock()

	d.applyUserFrequencies(cands)

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.user != b.user {
			return a.user > b.user
		}
		if a.base != b.base {
			return a.base > b.base
		}
		if la, lb := utf8.RuneCountInString(a.word), utf8.RuneCountInString(b.word); la != lb {
			return la < lb
		}
		return a.word < b.word
	})

	if len(cands) > limit {
		cands = cands[:limit]
	}
	capitalize := startsUpper(prefix)
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.word
		if capitalize {
			out[i] = upperFirst(c.word)
		}
	}
	return out
}

func (d *Dictionary) prefixMatches(p string) []candidate {
	keys := d.words.PrefixSearch(p)
	cands := make([]candidate, 0, len(keys))
	for _, k := range keys {
		cands = append(cands, candidate{word: k, base: d.baseFrequency(k)})
	}
	return cands
}

func (d *Dictionary) fuzzyMatches(p string, seen []candidate) []candidate {
	skip := make(map[string]bool, len(seen))
	for _, c := range seen {
		skip[c.word] = true
	}

	var out []candidate
	for _, k := range d.words.Keys() {
		if skip[k] {
			continue
		}
		if dist := editDistance(p, k); dist <= d.fuzzy {
			out = append(out, candidate{word: k, base: d.baseFrequency(k), distance: dist})
		}
	}
	return out
}

func (d *Dictionary) applyUserFrequencies(cands []candidate) {
	if d.user == nil || len(cands) == 0 {
		return
	}
	words := make([]string, len(cands))
	for i, c := range cands {
		words[i] = c.word
	}
	freqs, err := d.user.Frequencies(words)
	if err != nil {
		d.logger.Warn("user frequencies unavailable", "error", err)
		return
	}
	for i := range cands {
		cands[i].user = freqs[cands[i].word]
	}
}

func (d *Dictionary) baseFrequency(word string) int {
	node, ok := d.words.Find(word)
	if !ok {
		return 0
	}
	f, _ := node.Meta().(int)
	return f
}

// editDistance compares p with the start of word as well as the whole
// word, so that a misspelled prefix still finds longer words.
func editDistance(p, word string) int {
	head := word
	if pr, wr := []rune(p), []rune(word); len(wr) > len(pr) {
		head = string(wr[:len(pr)])
	}
	return min(levenshtein.ComputeDistance(p, head), levenshtein.ComputeDistance(p, word))
}

// normalize folds case and composes combining marks so that keys typed
// with dead keys match the word list.
func normalize(word string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(word)))
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
