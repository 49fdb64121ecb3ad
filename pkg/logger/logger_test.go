package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mailfilter/pkg/trace"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestWithTraceAddsField(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	ctx := trace.WithContext(context.Background(), "t-1")
	WithTrace(ctx, l).Info("hello")
	WithTrace(context.Background(), l).Info("no trace")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "t-1", entries[0].ContextMap()["trace_id"])
	_, ok := entries[1].ContextMap()["trace_id"]
	assert.False(t, ok)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
