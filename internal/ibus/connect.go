//go:build linux

package ibus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/godbus/dbus/v5"
)

// ErrNoAddress is returned when the IBus bus address cannot be found.
var ErrNoAddress = errors.New("ibus: bus address not found")

// Connect opens a connection to the IBus daemon's private bus. The
// address comes from IBUS_ADDRESS or the daemon's address file.
func Connect() (*dbus.Conn, error) {
	addr, err := Address()
	if err != nil {
		return nil, err
	}
	conn, err := dbus.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("connect to ibus at %s: %w", addr, err)
	}
	return conn, nil
}

// Address locates the IBus bus address.
func Address() (string, error) {
	if addr := os.Getenv("IBUS_ADDRESS"); addr != "" {
		return addr, nil
	}
	path, err := addressFile()
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoAddress, err)
	}
	defer f.Close()
	return parseAddressFile(f, path)
}

func parseAddressFile(r io.Reader, path string) (string, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if addr, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "IBUS_ADDRESS="); ok && addr != "" {
			return addr, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return "", fmt.Errorf("%w: no IBUS_ADDRESS in %s", ErrNoAddress, path)
}

// addressFile returns ~/.config/ibus/bus/<machine-id>-<host>-<display>,
// the file ibus-daemon writes its address to.
func addressFile() (string, error) {
	machineID, err := readMachineID()
	if err != nil {
		return "", err
	}

	host, display := "unix", "0"
	if d := os.Getenv("WAYLAND_DISPLAY"); d != "" {
		display = d
	} else if d := os.Getenv("DISPLAY"); d != "" {
		h, rest, _ := strings.Cut(d, ":")
		if h != "" {
			host = h
		}
		display, _, _ = strings.Cut(rest, ".")
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoAddress, err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "ibus", "bus", machineID+"-"+host+"-"+display), nil
}

func readMachineID() (string, error) {
	for _, p := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if data, err := os.ReadFile(p); err == nil {
			if id := strings.TrimSpace(string(data)); id != "" {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no machine id", ErrNoAddress)
}
