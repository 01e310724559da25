package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAdapter_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"taskType": "mentor-assign-primary"})

	log.Debug("hidden", nil)
	log.Info("run finished", map[string]interface{}{"unmatched": 1, "mode": "global-optimal"})
	log.WithError(errors.New("boom")).Error("run failed", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "mentor-assign-primary", ctx["taskType"])
	assert.Equal(t, "global-optimal", ctx["mode"])
	assert.EqualValues(t, 1, ctx["unmatched"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestMapToZapFields_SortedKeys(t *testing.T) {
	fields := mapToZapFields(map[string]interface{}{"b": 1, "a": 2, "err": errors.New("x")})

	require.Len(t, fields, 3)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "b", fields[1].Key)
	assert.Equal(t, "err", fields[2].Key)
	assert.Nil(t, mapToZapFields(nil))
}

func TestBuild_Levels(t *testing.T) {
	l, err := Build("warn", "json", "stderr")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	assert.NotNil(t, New("debug", "console"))
	assert.NotNil(t, NewNoOpLogger())
	assert.NotNil(t, NewTestLogger(t))
}
