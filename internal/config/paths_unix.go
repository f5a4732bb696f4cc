//go:build unix

package config

import (
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// RuntimeDir returns the per-user directory for pid files.
//
//   - $XDG_RUNTIME_DIR/composed/ when set (usually /run/user/$UID)
//   - /tmp/composed-$UID/ otherwise
func RuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(os.TempDir(), appName+"-"+strconv.Itoa(unix.Getuid()))
}
