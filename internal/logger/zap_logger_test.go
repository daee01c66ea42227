package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_WritesModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("session", "answer submitted", map[string]interface{}{"interview_id": "abc"})
	l.Debug("speech", "restart", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "answer submitted", entries[0].Message)
	assert.Equal(t, "session", ctx["module"])
	assert.Equal(t, map[string]interface{}{"interview_id": "abc"}, ctx["details"])

	assert.Equal(t, map[string]interface{}{}, entries[1].ContextMap()["details"])
}

func TestZapLogger_ErrorAttachesError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Error("api", "request failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Warn("x", "y", nil)
	assert.NoError(t, l.Sync())
}
