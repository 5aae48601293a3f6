package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/saiset-co/sai-filecache/types"
)

func TestNewUnknownType(t *testing.T) {
	t.Parallel()

	_, err := New(&types.LoggerConfig{Type: "syslog"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrLoggerTypeUnknown)
}

func TestNewNilConfig(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	assert.ErrorIs(t, err, types.ErrConfigIsNil)
}

func TestRegisterLogger(t *testing.T) {
	t.Parallel()

	RegisterLogger("test-custom", func(config interface{}) (types.Logger, error) {
		return NewNop(), nil
	})

	l, err := New(&types.LoggerConfig{Type: "test-custom"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestFileOutput(t *testing.T) {
	t.Parallel()

	logFile := filepath.Join(t.TempDir(), "logs", "filecache.log")
	l, err := New(&types.LoggerConfig{
		Level: "debug",
		Config: map[string]interface{}{
			"format": "json",
			"output": "file",
			"file":   logFile,
		},
	})
	require.NoError(t, err)

	l.Info("store ready", zap.String("type", "sqlite"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "store ready")
	assert.Contains(t, string(data), `"type":"sqlite"`)
}

func TestFileOutputWithoutPath(t *testing.T) {
	t.Parallel()

	_, err := New(&types.LoggerConfig{
		Config: map[string]interface{}{"output": "file"},
	})
	assert.ErrorIs(t, err, types.ErrLogFileIsEmpty)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), "level %q", in)
	}
}

func TestErrorWithErrStack(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	var stack bytes.Buffer
	l := &ZapWrapper{Logger: zap.New(core), stackOut: &stack}

	err := types.NewStorageError("get", pkgerrors.New("disk I/O error"))
	l.ErrorWithErrStack("lookup failed", err, zap.String("digest", "abc"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "lookup failed", entries[0].Message)
	assert.Equal(t, err.Error(), entries[0].ContextMap()["error"])
	assert.Contains(t, stack.String(), "ERROR STACK TRACE")
	assert.Contains(t, stack.String(), "TestErrorWithErrStack")
}
