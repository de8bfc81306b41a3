package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, fn func()) string {
	origOut := os.Stdout
	defer func() { os.Stdout = origOut }()

	rOut, wOut, err := os.Pipe()
	require.NoError(t, err, "failed to create stdout pipe")

	os.Stdout = wOut

	fn()

	err = wOut.Close()
	require.NoError(t, err, "failed to close stdout pipe")

	outBytes, err := io.ReadAll(rOut)
	require.NoError(t, err, "failed to read stdout pipe")

	return string(outBytes)
}

func TestLogger_parseLevel(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		tests := []struct {
			level    string
			expected slog.Level
		}{
			{LevelDebug, slog.LevelDebug},
			{LevelInfo, slog.LevelInfo},
			{LevelWarn, slog.LevelWarn},
			{LevelError, slog.LevelError},
			{"WARN", slog.LevelWarn},
		}

		for _, tt := range tests {
			t.Run(tt.level, func(t *testing.T) {
				require.Equal(t, tt.expected, parseLevel(tt.level))
			})
		}
	})

	t.Run("unknown value defaults to info", func(t *testing.T) {
		require.Equal(t, slog.LevelInfo, parseLevel("whatever"))
	})
}

func TestLogger_New(t *testing.T) {
	t.Run("unknown environment", func(t *testing.T) {
		_, err := New("staging", LevelInfo)
		require.Error(t, err, "unknown environment should not be accepted")
	})

	t.Run("production logs json", func(t *testing.T) {
		out := capture(t, func() {
			l, err := New(EnvProduction, LevelInfo)
			require.NoError(t, err)
			l.Info("session refreshed", "user", "alice")
		})

		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &record), "production output should be json")
		require.Equal(t, "session refreshed", record["msg"])
		require.Equal(t, "alice", record["user"])
	})

	t.Run("level filters messages", func(t *testing.T) {
		out := capture(t, func() {
			l, err := New(EnvDevelopment, LevelWarn)
			require.NoError(t, err)
			l.Info("should be dropped")
			l.Warn("should be kept")
		})

		require.NotContains(t, out, "should be dropped")
		require.Contains(t, out, "should be kept")
	})

	t.Run("source points at caller", func(t *testing.T) {
		out := capture(t, func() {
			l, err := New(EnvDevelopment, LevelInfo)
			require.NoError(t, err)
			l.Info("where am I")
		})

		require.Contains(t, out, "logger_test.go", "source should skip the wrapper frames")
	})
}
