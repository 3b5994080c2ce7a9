package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySink fails while failing is set and counts the records it saw.
type flakySink struct {
	slog.Handler
	failing bool
	seen    int
}

func (h *flakySink) Enabled(context.Context, slog.Level) bool { return true }

func (h *flakySink) Handle(context.Context, slog.Record) error {
	h.seen++
	if h.failing {
		return errors.New("sink down")
	}
	return nil
}

func (h *flakySink) WithAttrs([]slog.Attr) slog.Handler { return h }

func textSink(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestMultiHandler_FansOutAndSkipsNil(t *testing.T) {
	var a, b bytes.Buffer
	m := NewMultiHandler(nil, textSink(&a, slog.LevelInfo), nil, textSink(&b, slog.LevelInfo))
	require.Len(t, m.sinks, 2)

	slog.New(m).Info("overlay shown", "marker", "gauge-2")

	assert.Contains(t, a.String(), "marker=gauge-2")
	assert.Contains(t, b.String(), "marker=gauge-2")
}

func TestMultiHandler_Enabled(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelError))
	assert.False(t, NewMultiHandler(textSink(&buf, slog.LevelInfo)).Enabled(ctx, slog.LevelDebug))
	assert.True(t, NewMultiHandler(textSink(&buf, slog.LevelInfo), textSink(&buf, slog.LevelDebug)).Enabled(ctx, slog.LevelDebug))
}

func TestMultiHandler_FailingSinkDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	bad := &flakySink{failing: true}
	m := NewMultiHandler(bad, textSink(&buf, slog.LevelInfo))

	r := slog.NewRecord(testTime, slog.LevelInfo, "step failed", 0)
	err := m.Handle(context.Background(), r)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "log sink 0")
	assert.Contains(t, buf.String(), "step failed")
}

func TestMultiHandler_DisablesSinkAfterRepeatedFailures(t *testing.T) {
	var buf bytes.Buffer
	bad := &flakySink{failing: true}
	var disabled []int
	m := NewMultiHandler(bad, textSink(&buf, slog.LevelInfo)).OnDisable(func(i int, err error) {
		disabled = append(disabled, i)
		assert.EqualError(t, err, "sink down")
	})
	// derived handlers share the failure count
	logger := slog.New(m).With("viewport", "main")

	for range maxSinkFailures + 2 {
		logger.Info("marker clicked")
	}

	assert.Equal(t, maxSinkFailures, bad.seen)
	assert.Equal(t, []int{0}, disabled)
	assert.Equal(t, maxSinkFailures+2, bytes.Count(buf.Bytes(), []byte("viewport=main")))
}

func TestMultiHandler_SuccessResetsFailures(t *testing.T) {
	sink := &flakySink{failing: true}
	m := NewMultiHandler(sink)
	logger := slog.New(m)

	for range maxSinkFailures - 1 {
		logger.Info("retry")
	}
	sink.failing = false
	logger.Info("recovered")
	sink.failing = true
	for range maxSinkFailures - 1 {
		logger.Info("retry")
	}

	assert.True(t, m.Enabled(context.Background(), slog.LevelInfo))
	assert.Equal(t, 2*maxSinkFailures-1, sink.seen)
}

func TestMultiHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	m := NewMultiHandler(textSink(&buf, slog.LevelInfo))

	assert.Same(t, m, m.WithGroup(""))
	slog.New(m.WithGroup("setup")).Info("step done", "step", "camera")

	assert.Contains(t, buf.String(), "setup.step=camera")
}
