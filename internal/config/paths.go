package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "composed"

// DataDir returns the directory holding the word list and user database.
// COMPOSED_DATA_DIR overrides the platform default.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/composed/
//   - Linux:   $XDG_DATA_HOME/composed/ (~/.local/share/composed/)
//   - Windows: %LOCALAPPDATA%\composed\
func DataDir() string {
	if dir := os.Getenv("COMPOSED_DATA_DIR"); dir != "" {
		return dir
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", appName)
	case "windows":
		return filepath.Join(localAppData(), appName)
	default:
		return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), appName)
	}
}

// ConfigDir returns the directory holding config.toml.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", appName)
	case "windows":
		return filepath.Join(localAppData(), appName)
	default:
		return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName)
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ComponentDir returns the per-user IBus component directory.
func ComponentDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "ibus", "component")
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	home, _ := os.UserHomeDir()
	return home
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	return filepath.Join(append([]string{homeDir()}, fallback...)...)
}

func localAppData() string {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), "AppData", "Local")
}
