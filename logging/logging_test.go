package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/caseledger/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_WritesJSONToFile(t *testing.T) {
	// GIVEN: a warn-level JSON logger with a file output
	path := filepath.Join(t.TempDir(), "ledger.log")
	logger, err := New(config.LoggerConfig{Level: "warn", Encoding: "json", File: path, DisableStacktrace: true})
	require.NoError(t, err)

	// WHEN: logging below and at the level
	logger.Info("dropped")
	logger.Warn("kept", zap.String("op", "sell"))
	_ = logger.Sync()

	// THEN: only the warn line reaches the file
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"op":"sell"`)
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	_, err := New(config.LoggerConfig{Level: "info", Encoding: "xml"})
	assert.Error(t, err)

	_, err = New(config.LoggerConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestNew_Console(t *testing.T) {
	logger, err := New(config.LoggerConfig{Level: "debug", Encoding: "console", DisableCaller: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
