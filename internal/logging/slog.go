package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName identifies the site viewer in the OTel log bridge.
const InstrumentationName = "site-viewer"

// swapped by tests
var (
	osStdout io.Writer = os.Stdout
	osStderr io.Writer = os.Stderr
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	// extra sinks receiving JSON records, e.g. a GELF writer
	sinks []io.Writer
	attrs []slog.Attr
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// AddSink adds a writer that receives every record as one JSON document.
// Call before Setup.
func (m *SlogManager) AddSink(w io.Writer) {
	if w != nil {
		m.sinks = append(m.sinks, w)
	}
}

// SetAttrs sets attributes added to every record, such as the project
// identifiers. Call before Setup.
func (m *SlogManager) SetAttrs(attrs ...slog.Attr) {
	m.attrs = attrs
}

// parseLevel reads a level name such as "debug" or "WARN+2", falling back to info.
func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Setup initializes the logging system. Records go to file when given and to
// stdout otherwise, plus every added sink and the OTel bridge when provider
// is non-nil. Scope set with WithScope on the logging context is added to
// each record.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := parseLevel(level)
	m.logProvider = provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	for _, w := range m.sinks {
		handlers = append(handlers, slog.NewJSONHandler(w, handlerOpts))
	}

	if provider != nil {
		otelHandler := otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	multi := NewMultiHandler(handlers...).OnDisable(func(i int, err error) {
		fmt.Fprintf(osStderr, "logging: sink %d disabled after repeated failures: %v\n", i, err)
	})
	var handler slog.Handler = multi
	if len(m.attrs) > 0 {
		handler = handler.WithAttrs(m.attrs)
	}

	m.logger = slog.New(NewScopeHandler(handler))
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry with the specified component, message, and level.
func (m *SlogManager) WriteLog(component, data, level string) {
	if m.logger == nil {
		return
	}

	lvl := parseLevel(level)
	m.logger.Log(context.Background(), lvl, data, "component", component)
}
