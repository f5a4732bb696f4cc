package dict

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
)

// Setup describes a dictionary and its user store on disk.
type Setup struct {
	WordList      string
	UserDB        string
	FuzzyDistance int
	Logger        *slog.Logger
}

// Open loads the word list and opens the user store. A missing word list
// yields an empty dictionary. The returned store is nil when UserDB is
// empty; the caller closes it.
func Open(s Setup) (*Dictionary, *UserStore, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var store *UserStore
	opts := []Option{WithFuzzyDistance(s.FuzzyDistance), WithLogger(logger)}
	if s.UserDB != "" {
		var err error
		store, err = OpenUserStore(s.UserDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open user store: %w", err)
		}
		opts = append(opts, WithUserFrequencies(store))
	}

	d := New(opts...)
	if s.WordList != "" {
		if _, err := d.LoadFile(s.WordList); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				if store != nil {
					store.Close()
				}
				return nil, nil, err
			}
			logger.Warn("word list not found", "path", s.WordList)
		}
	}
	return d, store, nil
}
