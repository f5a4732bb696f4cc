//go:build !unix

package config

import (
	"os"
	"path/filepath"
)

// RuntimeDir returns the per-user directory for pid files.
func RuntimeDir() string {
	return filepath.Join(os.TempDir(), appName)
}
