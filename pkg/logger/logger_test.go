package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ddd-users/config"
	"ddd-users/infrastructure/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNilLoggerSafety(t *testing.T) {
	original := log
	t.Cleanup(func() { log = original })
	log = nil

	Debug("test debug")
	Info("test info")
	Warn("test warn")
	Error("test error")
	assert.NotNil(t, With(zap.String("key", "value")))
	assert.NotNil(t, WithRequestID("test-id"))
	assert.NotNil(t, Named("events"))
	assert.NoError(t, Sync())
}

func TestDynamicLogLevel(t *testing.T) {
	require.NoError(t, Init(&config.LogConfig{Level: "debug", Output: "stdout"}, "development"))
	t.Cleanup(func() { _ = Sync() })

	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))
	UpdateLevel("info")
	assert.False(t, Get().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, Get().Core().Enabled(zapcore.InfoLevel))
	UpdateLevel("debug")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	require.NoError(t, Init(&config.LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: path,
	}, "production"))

	for i := 0; i < 10; i++ {
		Info("Log entry for test", zap.Int("entry", i))
	}
	require.NoError(t, Sync())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestFromContext(t *testing.T) {
	logs := observe(t)
	ctx := persistence.ContextWithRequestID(context.Background(), "req-1")

	FromContext(ctx).Info("with id")
	FromContext(context.Background()).Info("without id")

	withID := logs.FilterMessage("with id").All()
	require.Len(t, withID, 1)
	assert.Equal(t, "req-1", withID[0].ContextMap()["request_id"])
	assert.NotContains(t, logs.FilterMessage("without id").All()[0].ContextMap(), "request_id")
}
