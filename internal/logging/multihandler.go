package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// maxSinkFailures is how many consecutive Handle errors disable a sink.
const maxSinkFailures = 3

// sink is one destination of a MultiHandler. Copies made by WithAttrs and
// WithGroup share the failure state of the sink they derive from.
type sink struct {
	h        slog.Handler
	failures *atomic.Int32
	disabled *atomic.Bool
}

func (s sink) with(h slog.Handler) sink {
	return sink{h: h, failures: s.failures, disabled: s.disabled}
}

// MultiHandler sends every record to all of its sinks. A sink that keeps
// failing, such as a GELF writer whose collector went away, is switched off
// while the others carry on.
type MultiHandler struct {
	sinks []sink
	// onDisable is told once per sink that gets switched off.
	onDisable func(index int, err error)
}

// NewMultiHandler creates a handler writing to every non-nil handler.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	m := &MultiHandler{}
	for _, h := range handlers {
		if h == nil {
			continue
		}
		m.sinks = append(m.sinks, sink{h: h, failures: new(atomic.Int32), disabled: new(atomic.Bool)})
	}
	return m
}

// OnDisable registers fn to hear about sinks switched off after repeated
// failures. index is the sink's position among the non-nil handlers.
func (m *MultiHandler) OnDisable(fn func(index int, err error)) *MultiHandler {
	m.onDisable = fn
	return m
}

// Enabled reports whether any live sink takes records at level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range m.sinks {
		if !s.disabled.Load() && s.h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a clone of r to every live sink and joins their errors.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for i, s := range m.sinks {
		if s.disabled.Load() || !s.h.Enabled(ctx, r.Level) {
			continue
		}
		err := s.h.Handle(ctx, r.Clone())
		if err == nil {
			s.failures.Store(0)
			continue
		}
		errs = append(errs, fmt.Errorf("log sink %d: %w", i, err))
		if s.failures.Add(1) >= maxSinkFailures && s.disabled.CompareAndSwap(false, true) && m.onDisable != nil {
			m.onDisable(i, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := &MultiHandler{sinks: make([]sink, len(m.sinks)), onDisable: m.onDisable}
	for i, s := range m.sinks {
		out.sinks[i] = s.with(s.h.WithAttrs(attrs))
	}
	return out
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	out := &MultiHandler{sinks: make([]sink, len(m.sinks)), onDisable: m.onDisable}
	for i, s := range m.sinks {
		out.sinks[i] = s.with(s.h.WithGroup(name))
	}
	return out
}
