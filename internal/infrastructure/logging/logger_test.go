package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Backends(t *testing.T) {
	for _, backend := range []string{"zap", "zerolog"} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			logger, err := NewLogger(&LoggerConfig{
				FilePath: dir,
				Encoding: "json",
				Level:    "info",
				Logger:   backend,
			})
			require.NoError(t, err)

			logger.Info(Realtime, Join, "joined", map[ExtraKey]any{RoomID: "room-1"})
			logger.Debug(Realtime, Join, "filtered by level", nil)
			_ = logger.Sync()

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Len(t, entries, 1)

			data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
			require.NoError(t, err)
			assert.Contains(t, string(data), `"RoomId":"room-1"`)
			assert.Contains(t, string(data), `"SubCategory":"Join"`)
			assert.NotContains(t, string(data), "filtered by level")
		})
	}
}

func TestNewLogger_Unsupported(t *testing.T) {
	_, err := NewLogger(&LoggerConfig{Logger: "logrus"})
	assert.Error(t, err)
}

func TestLogParamsToZapParams(t *testing.T) {
	params := logParamsToZapParams(map[ExtraKey]any{Path: "/api"})
	assert.Equal(t, []any{"Path", "/api"}, params)
}
