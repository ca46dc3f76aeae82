package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := filepath.Join(t.TempDir(), "logs")
	path := filepath.Join(dir, "animlimit.log")
	var console bytes.Buffer

	require.NoError(Init(Options{Dir: dir, Name: "animlimit", Level: slog.LevelDebug, Console: &console}))
	t.Cleanup(func() { Close() })
	assert.Equal(path, Path())

	Debug("resolved", "site", "limit")
	Info("loaded")
	require.NoError(Close())
	assert.Empty(Path())

	data, err := os.ReadFile(path)
	require.NoError(err)
	assert.Equal("level=DEBUG msg=resolved site=limit\nlevel=INFO msg=loaded\n", string(data))
	assert.Equal(string(data), console.String())

	// A second Init truncates the file.
	require.NoError(Init(Options{Dir: dir, Name: "animlimit"}))
	Debug("hidden")
	Warn("again")
	require.NoError(Close())

	data, err = os.ReadFile(path)
	require.NoError(err)
	assert.Equal("level=WARN msg=again\n", string(data))
}

func TestInit_Discard(t *testing.T) {
	require.NoError(t, Init(Options{}))
	assert.Empty(t, Path())
	assert.False(t, L.Enabled(t.Context(), slog.LevelError))

	assert.Error(t, Init(Options{Dir: t.TempDir()}))
}
