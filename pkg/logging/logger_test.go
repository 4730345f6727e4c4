package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linkly/internal/config"
)

func TestNewWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "linkly.log")

	l, level, err := New(config.LogConfig{Level: "warn", Path: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level.Level())

	l.Info("dropped")
	l.Warn("kept", zap.String("short_key", "abc123"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"short_key":"abc123"`)
	assert.NotContains(t, string(data), "dropped")
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	_, level, err := New(config.LogConfig{Level: "loud"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}

func TestToGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, ToGormLogLevel(zapcore.DebugLevel))
	assert.Equal(t, logger.Warn, ToGormLogLevel(zapcore.InfoLevel))
	assert.Equal(t, logger.Error, ToGormLogLevel(zapcore.ErrorLevel))
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), logger.Warn, 10*time.Millisecond)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len(), "record not found is not an error")

	gl.Trace(context.Background(), time.Now(), sql, errors.New("connection refused"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "GORM SQL failed", logs.All()[0].Message)

	gl.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "GORM slow SQL", logs.All()[1].Message)

	gl.Trace(context.Background(), time.Now(), sql, nil)
	assert.Equal(t, 2, logs.Len(), "fast queries are only logged at info level")
}
