package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init("loud", false)
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	prev := current()
	t.Cleanup(func() { Set(prev) })

	require.NoError(t, Init("warn", true))
	assert.False(t, current().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, current().Core().Enabled(zapcore.WarnLevel))
}

func TestHelpersUseGlobalLogger(t *testing.T) {
	prev := current()
	t.Cleanup(func() { Set(prev) })

	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))

	Debug("stamp verified", zap.Int("txs", 2))
	Info("batch opened", zap.Int("messages", 3))
	Warn("message failed to open", zap.Int("index", 1))
	Error("command failed", zap.String("command", "open"))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "stamp verified", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["txs"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, int64(1), entries[2].ContextMap()["index"])
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}
