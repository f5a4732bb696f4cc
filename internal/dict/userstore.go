package dict

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrEmptyWord is returned when recording an empty word.
var ErrEmptyWord = errors.New("empty word")

// Entry is a word with its usage count.
type Entry struct {
	Word     string
	Count    int
	LastUsed time.Time
}

// UserStore persists how often the user picked each word.
type UserStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenUserStore opens or creates the SQLite database at path and runs
// migrations.
func OpenUserStore(path string) (*UserStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &UserStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *UserStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SchemaVersion returns the latest applied migration.
func (s *UserStore) SchemaVersion() (int, error) {
	return schemaVersion(s.db)
}

// Record counts one use of word.
func (s *UserStore) Record(word string) error {
	word = normalize(word)
	if word == "" {
		return ErrEmptyWord
	}
	_, err := s.db.Exec(`
		INSERT INTO user_words (word, count, last_used) VALUES (?, 1, ?)
		ON CONFLICT(word) DO UPDATE SET count = count + 1, last_used = excluded.last_used`,
		word, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record word: %w", err)
	}
	return nil
}

// Frequency returns how often word was recorded. Unknown words count 0.
func (s *UserStore) Frequency(word string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT count FROM user_words WHERE word = ?", normalize(word)).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query frequency: %w", err)
	}
	return n, nil
}

// Frequencies returns the counts of the recorded words among words.
func (s *UserStore) Frequencies(words []string) (map[string]int, error) {
	out := make(map[string]int, len(words))
	if len(words) == 0 {
		return out, nil
	}

	args := make([]any, len(words))
	for i, w := range words {
		args[i] = normalize(w)
	}
	query := "SELECT word, count FROM user_words WHERE word IN (?" +
		strings.Repeat(",?", len(words)-1) + ")"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frequencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w string
		var n int
		if err := rows.Scan(&w, &n); err != nil {
			return nil, fmt.Errorf("scan frequency: %w", err)
		}
		out[w] = n
	}
	return out, rows.Err()
}

// Top returns the most used words, most recent first among equals.
func (s *UserStore) Top(limit int) ([]Entry, error) {
	rows, err := s.db.Query(
		"SELECT word, count, last_used FROM user_words ORDER BY count DESC, last_used DESC, word LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top words: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ns int64
		if err := rows.Scan(&e.Word, &e.Count, &ns); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		e.LastUsed = time.Unix(0, ns)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes words used fewer than minCount times and reports how
// many were removed.
func (s *UserStore) Prune(minCount int) (int64, error) {
	res, err := s.db.Exec("DELETE FROM user_words WHERE count < ?", minCount)
	if err != nil {
		return 0, fmt.Errorf("prune words: %w", err)
	}
	return res.RowsAffected()
}
