package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestNew_Levels verifies the configured level gates output.
func TestNew_Levels(t *testing.T) {
	log, err := New("warn", false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = New("debug", true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

// TestNew_BadLevel verifies an unknown level is refused.
func TestNew_BadLevel(t *testing.T) {
	_, err := New("chatty", false)
	assert.Error(t, err)
}

// TestOrNop verifies nil loggers are replaced.
func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	log, err := New("info", false)
	require.NoError(t, err)
	assert.Same(t, log, OrNop(log))
}
