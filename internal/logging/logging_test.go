package logging

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"ERROR", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.TrimSuffix(strings.ToLower(tt.input), "ing"), LevelString(got))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, LevelInfo, cfg.Level)
	assert.Equal(t, FormatText, cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.Equal(t, "composed", cfg.Component)
	assert.Positive(t, cfg.MaxSize)
	assert.True(t, strings.HasSuffix(cfg.FilePath, "composed.log"), cfg.FilePath)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestJSONOutputWithComponentAndContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: LevelDebug, Format: FormatJSON, Component: "composed"})

	ctx := ContextWithID(context.Background(), "/org/freedesktop/IBus/Engine/1")
	l.WithComponent("ibus").WithContext(ctx).Debug("focus in", "mode", "word")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "focus in", lines[0]["msg"])
	assert.Equal(t, "ibus", lines[0]["component"])
	assert.Equal(t, "/org/freedesktop/IBus/Engine/1", lines[0]["context_id"])
	assert.Equal(t, "word", lines[0]["mode"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: LevelWarn, Format: FormatJSON})
	l.Info("dropped")
	l.Warn("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestRedaction(t *testing.T) {
	tests := []struct {
		key    string
		extra  []string
		redact bool
	}{
		{"password", nil, true},
		{"surrounding_text", nil, true},
		{"api_token", nil, true},
		{"mode", nil, false},
		{"text", nil, false},
		{"text", []string{"TEXT"}, true},
		{"texts", []string{"text"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.redact, shouldRedact(tt.key, tt.extra))
		})
	}

	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Format: FormatJSON, Redact: []string{"composed"}})
	l.Info("update", "composed", "hunter2", "surrounding_text", "dear diary")
	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "dear diary")
	assert.Contains(t, out, "[REDACTED]")
}

func TestContextIDFromContext(t *testing.T) {
	assert.Empty(t, ContextIDFromContext(context.Background()))
	assert.Equal(t, "x", ContextIDFromContext(ContextWithID(context.Background(), "x")))
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "composed.log")
	l, err := New(&Config{Level: LevelInfo, Output: "file", FilePath: path, MaxSize: 1})
	require.NoError(t, err)

	l.Info("hello", "n", 1)
	require.NoError(t, l.Sync())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
}

func TestNewDiscard(t *testing.T) {
	l, err := New(&Config{Output: "discard"})
	require.NoError(t, err)
	l.Error("nowhere")
	assert.NoError(t, l.Close())
}

func TestFileRotatorRotatesAndCompresses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "composed.log")
	r, err := NewFileRotator(&Config{FilePath: path, MaxSize: 1, MaxBackups: 1, Compress: true})
	require.NoError(t, err)
	defer r.Close()

	chunk := bytes.Repeat([]byte("x"), 700*1024)
	for i := 0; i < 3; i++ {
		n, err := r.Write(chunk)
		require.NoError(t, err)
		require.Equal(t, len(chunk), n)
	}

	files, err := r.Files()
	require.NoError(t, err)
	require.Len(t, files, 2, "current file plus one kept backup")
	assert.Equal(t, path, files[0])
	require.True(t, strings.HasSuffix(files[1], ".log.gz"), files[1])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunk)), info.Size())

	f, err := os.Open(files[1])
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Len(t, data, len(chunk))
}

func TestFileRotatorRequiresPath(t *testing.T) {
	_, err := NewFileRotator(&Config{})
	assert.Error(t, err)
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: LevelInfo, Component: "composectl"})
	SetDefault(l)

	assert.Same(t, l, Default())
	slog.Info("through slog")
	assert.Contains(t, buf.String(), "through slog")
	assert.Contains(t, buf.String(), "component=composectl")
}
