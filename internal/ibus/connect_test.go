//go:build linux

package ibus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressFile(t *testing.T) {
	file := "# This file is created by ibus-daemon, please do not modify it.\n" +
		"IBUS_ADDRESS=unix:abstract=/home/u/.cache/ibus/dbus-x,guid=abc\n" +
		"IBUS_DAEMON_PID=1234\n"

	addr, err := parseAddressFile(strings.NewReader(file), "bus")
	require.NoError(t, err)
	assert.Equal(t, "unix:abstract=/home/u/.cache/ibus/dbus-x,guid=abc", addr)

	_, err = parseAddressFile(strings.NewReader("IBUS_DAEMON_PID=1\n"), "bus")
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestAddressFromEnv(t *testing.T) {
	t.Setenv("IBUS_ADDRESS", "unix:path=/tmp/ibus")
	addr, err := Address()
	require.NoError(t, err)
	assert.Equal(t, "unix:path=/tmp/ibus", addr)
}
