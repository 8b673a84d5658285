package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitOptionsNormalizedDefaults(t *testing.T) {
	out := InitOptions{}.normalized()
	require.Equal(t, "info", out.Level)
	require.Equal(t, "json", out.Format)
	require.Equal(t, "oncepay", out.ServiceName)
	require.Equal(t, "production", out.Environment)
	require.Equal(t, "error", out.StacktraceLevel)
	require.True(t, out.Output.ToStdout)
	require.Equal(t, 100, out.Rotation.MaxSizeMB)
}

func TestInitOptionsNormalizedPreservesExplicit(t *testing.T) {
	out := InitOptions{
		Level:  " WARN ",
		Format: "Console",
		Output: OutputOptions{ToFile: true, FilePath: "/tmp/app.log"},
	}.normalized()
	require.Equal(t, "warn", out.Level)
	require.Equal(t, "console", out.Format)
	require.False(t, out.Output.ToStdout)
	require.Equal(t, "/tmp/app.log", out.Output.FilePath)
}

func TestResolveLogFilePath(t *testing.T) {
	require.Equal(t, "/var/log/x.log", resolveLogFilePath(" /var/log/x.log "))

	t.Setenv("DATA_DIR", "/data")
	require.Equal(t, filepath.Join("/data", "logs", defaultLogFilename), resolveLogFilePath(""))

	t.Setenv("DATA_DIR", "")
	require.Equal(t, filepath.Join("logs", defaultLogFilename), resolveLogFilePath(""))
}

func TestParseLevel(t *testing.T) {
	lv, ok := parseLevel("debug")
	require.True(t, ok)
	require.Equal(t, "debug", lv.String())

	_, ok = parseLevel("verbose")
	require.False(t, ok)
}

func TestInitAndSetLevel(t *testing.T) {
	require.NoError(t, Init(InitOptions{Level: "info", Format: "console"}))
	require.NoError(t, SetLevel("debug"))
	require.Equal(t, "debug", CurrentLevel())
	require.Error(t, SetLevel("bogus"))
}
