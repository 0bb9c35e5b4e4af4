package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture reinitializes the global logger to write JSON into a buffer and restores the
// defaults when the test ends.
func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(Config{Level: level, Output: &buf})
	t.Cleanup(func() {
		Close()
		Init(DefaultConfig())
	})
	return &buf
}

// lines decodes every JSON log line written to buf.
func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]Level{
		"debug":   DebugLevel,
		" INFO ":  InfoLevel,
		"warning": WarnLevel,
		"Error":   ErrorLevel,
		"fatal":   FatalLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	} {
		assert.Equal(t, want, ParseLevel(input), "ParseLevel(%q)", input)
	}
}

func TestComponent_TagsEntries(t *testing.T) {
	buf := capture(t, InfoLevel)

	loop := Component("eventloop")
	loop.Info().Int("cycle", 2).Msg("cycle started")
	server := Component("server")
	server.Warn().Str("path", "/invoke").Msg("client went away")

	entries := lines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "eventloop", entries[0]["component"])
	assert.Equal(t, float64(2), entries[0]["cycle"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.Contains(t, entries[0], "time")
	assert.Equal(t, "server", entries[1]["component"])
	assert.Equal(t, "warn", entries[1]["level"])
}

func TestSetLevel_AppliesToExistingComponents(t *testing.T) {
	buf := capture(t, InfoLevel)

	log := Component("config")
	log.Debug().Msg("hidden")
	SetLevel(DebugLevel)
	log.Debug().Msg("visible")
	SetLevel(ErrorLevel)
	log.Warn().Msg("suppressed")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "visible", entries[0]["message"])
}

func TestInit_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf, Pretty: true})
	t.Cleanup(func() { Init(DefaultConfig()) })

	log := Component("cli")
	log.Info().Msg("ready")

	out := buf.String()
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "cli")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}

func TestLogToFile_Lifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	var console bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &console, LogToFile: true, LogDir: dir})
	t.Cleanup(func() {
		Close()
		Init(DefaultConfig())
	})

	path := GetLogFilePath()
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "strands-"))

	log := Component("agent")
	log.Info().Msg("to both")

	Close()
	assert.Empty(t, GetLogFilePath())
	Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"agent"`)
	assert.Contains(t, console.String(), "to both")
}

func TestLogToFile_ReinitClosesPrevious(t *testing.T) {
	dir := t.TempDir()
	Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}, LogToFile: true, LogDir: dir})
	t.Cleanup(func() {
		Close()
		Init(DefaultConfig())
	})
	first := GetLogFilePath()
	require.NotEmpty(t, first)

	Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}})
	assert.Empty(t, GetLogFilePath())

	_, err := os.Stat(first)
	assert.NoError(t, err, "closing keeps the file on disk")
}

func TestLogToFile_UnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	var console bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &console, LogToFile: true, LogDir: filepath.Join(blocker, "log")})
	t.Cleanup(func() { Init(DefaultConfig()) })

	assert.Empty(t, GetLogFilePath())
	assert.Contains(t, console.String(), "failed to open log file")

	Info().Msg("still logging")
	assert.Contains(t, console.String(), "still logging")
}
