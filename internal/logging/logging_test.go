package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, log.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, log.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, log.InfoLevel, ParseLevel("chatty"))
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "warn", Prefix: "todo"})

	logger.Info("hidden")
	logger.Warn("store write failed", "op", "add")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "store write failed")
	assert.Contains(t, out, "op=add")
	assert.Contains(t, out, "todo")
}

func TestNewFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "todo.log")
	logger, f, err := NewFile(path, DefaultOptions())
	require.NoError(t, err)
	logger.Error("boom")
	require.NoError(t, f.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "boom")
}
