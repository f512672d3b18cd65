package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWithLevel(t *testing.T) {
	log, err := NewWithLevel("debug")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = NewWithLevel("warn")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	_, err = NewWithLevel("loud")
	assert.Error(t, err)
}

func TestNamed(t *testing.T) {
	assert.NotNil(t, Named(nil, "pipeline"))
	assert.NotNil(t, Named(zap.NewNop(), "pipeline"))
}

func TestMustPanics(t *testing.T) {
	assert.Panics(t, func() { Must(NewWithLevel("loud")) })
}
