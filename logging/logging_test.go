package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development", "local", ""} {
		logger, err := New(env)
		require.NoError(t, err, env)
		require.NotNil(t, logger, env)
	}

	prod, _ := New("production")
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))
	dev, _ := New("development")
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
}
