// Package dispatcher bridges marker clicks to the application's UI state.
// One Dispatcher serves every marker of every kind, across setup passes.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/internal/marker"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrQueueFull is returned when a non-blocking buffered dispatcher drops a click.
var ErrQueueFull = errors.New("click queue full")

// ErrDebounced is returned when a click repeats the previous one for the same marker too soon.
var ErrDebounced = errors.New("click debounced")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("dispatcher closed")

// Event is a request to show the content associated with a marker.
type Event struct {
	MarkerID   string
	Kind       core.MarkerKind
	Title      string
	ContentURL string
	Timestamp  time.Time
}

// Sink is the UI state layer that receives show-overlay requests.
type Sink interface {
	ShowOverlay(e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event) error

// ShowOverlay calls f.
func (f SinkFunc) ShowOverlay(e Event) error {
	return f(e)
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a Dispatcher.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
	debounce   time.Duration
}

// Buffered makes delivery async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered dispatcher block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging around delivery.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Debounce drops a click on a marker that arrives within d of the previous one
// for the same marker ID.
func Debounce(d time.Duration) Option {
	return func(c *config) {
		c.debounce = d
	}
}

// Dispatcher routes marker clicks to a Sink.
type Dispatcher struct {
	handler HandlerFunc
	logger  Logger
	action  marker.Action

	debounce time.Duration
	now      func() time.Time
	lastMu   sync.Mutex
	last     map[string]time.Time

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu        sync.RWMutex
	buffer    chan Event
	closed    bool
	closeOnce sync.Once
	drained   chan struct{}
}

// New creates a Dispatcher delivering to sink.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(sink Sink, logger Logger, opts ...Option) (*Dispatcher, error) {
	if sink == nil {
		return nil, errors.New("dispatcher: nil sink")
	}
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	d := &Dispatcher{
		logger:   logger,
		debounce: cfg.debounce,
		now:      time.Now,
		last:     make(map[string]time.Time),
	}
	if err := d.initMetrics(); err != nil {
		return nil, err
	}

	handler := d.deliver(sink)
	if cfg.logged {
		handler = d.withLogging(handler)
	}
	if cfg.bufferSize > 0 {
		handler = d.withBuffer(cfg.bufferSize, cfg.blocking, handler)
	}
	d.handler = handler

	// One callback for every marker in every setup pass.
	d.action = func(m *marker.Marker) {
		if err := d.Dispatch(EventFor(m)); err != nil && d.logger != nil {
			d.logger.Debug("click not delivered", "marker", m.ID(), "error", err)
		}
	}

	return d, nil
}

func (d *Dispatcher) initMetrics() error {
	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of clicks waiting for the UI sink"),
	)
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			if d.buffer != nil {
				o.ObserveInt64(d.queueSize, int64(len(d.buffer)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.clicks.processed",
		metric.WithDescription("Total clicks delivered to the UI sink"),
	)
	if err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.clicks.dropped",
		metric.WithDescription("Total clicks dropped (queue full or debounced)"),
	)
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}

	return nil
}

// EventFor builds the show-overlay event for a clicked marker.
func EventFor(m *marker.Marker) Event {
	return Event{
		MarkerID:   m.ID(),
		Kind:       m.Kind(),
		Title:      m.Title(),
		ContentURL: m.ContentURL(),
		Timestamp:  time.Now(),
	}
}

// Action returns the click callback to bind into markers. The same value is
// returned on every call.
func (d *Dispatcher) Action() marker.Action {
	return d.action
}

// Dispatch delivers e to the sink, subject to debounce and buffering.
func (d *Dispatcher) Dispatch(e Event) error {
	// held across delivery so Close cannot close the buffer mid-send
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	if d.debounced(e.MarkerID) {
		d.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "debounce")))
		return ErrDebounced
	}
	return d.handler(e)
}

// Close stops accepting clicks and waits for queued ones to drain.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		buf := d.buffer
		d.mu.Unlock()
		if buf != nil {
			close(buf)
			<-d.drained
		}
	})
}

func (d *Dispatcher) debounced(id string) bool {
	if d.debounce <= 0 {
		return false
	}
	now := d.now()

	d.lastMu.Lock()
	defer d.lastMu.Unlock()
	if prev, ok := d.last[id]; ok && now.Sub(prev) < d.debounce {
		return true
	}
	d.last[id] = now
	return false
}

func (d *Dispatcher) deliver(sink Sink) HandlerFunc {
	return func(e Event) error {
		err := sink.ShowOverlay(e)
		if err == nil {
			d.processed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(e.Kind))))
		}
		return err
	}
}

func (d *Dispatcher) withBuffer(size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)
	d.drained = make(chan struct{})

	d.mu.Lock()
	d.buffer = buffer
	d.mu.Unlock()

	go func() {
		defer close(d.drained)
		for e := range buffer {
			if err := h(e); err != nil && d.logger != nil {
				d.logger.Error("ui sink failed", "marker", e.MarkerID, "error", err)
			}
		}
	}()

	if blocking {
		return func(e Event) error {
			buffer <- e
			return nil
		}
	}

	return func(e Event) error {
		select {
		case buffer <- e:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "queue_full")))
			return fmt.Errorf("%w: %s", ErrQueueFull, e.MarkerID)
		}
	}
}

func (d *Dispatcher) withLogging(h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("showing overlay", "marker", e.MarkerID, "kind", e.Kind)

		err := h(e)

		if err != nil {
			d.logger.Error("show overlay failed", "marker", e.MarkerID, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("overlay shown", "marker", e.MarkerID, "duration", time.Since(start))
		}

		return err
	}
}
