package logging

import (
	"context"
	"log/slog"
	"slices"
)

type scopeKey struct{}

// WithScope returns a copy of ctx carrying key/value pairs, in the form
// slog.Logger.With takes them. Records logged with the returned context
// through a ScopeHandler get the pairs, after any scope ctx already had.
func WithScope(ctx context.Context, args ...any) context.Context {
	var r slog.Record
	r.Add(args...)
	attrs := slices.Clone(ScopeAttrs(ctx))
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return context.WithValue(ctx, scopeKey{}, attrs)
}

// ScopeAttrs returns the attributes WithScope stored in ctx.
func ScopeAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(scopeKey{}).([]slog.Attr)
	return attrs
}

// ScopeHandler adds the scope carried by a record's context before passing
// it on. Scope attributes land inside any group opened with WithGroup.
type ScopeHandler struct {
	inner slog.Handler
}

func NewScopeHandler(inner slog.Handler) *ScopeHandler {
	return &ScopeHandler{inner: inner}
}

func (h *ScopeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ScopeHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := ScopeAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ScopeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ScopeHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ScopeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ScopeHandler{inner: h.inner.WithGroup(name)}
}
