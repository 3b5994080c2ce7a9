package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/internal/marker"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T, sink Sink, opts ...Option) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(sink, logger, opts...)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(d.Close)

	return d, logger
}

func newTestMarker(t *testing.T, id string, kind core.MarkerKind, action marker.Action) *marker.Marker {
	m, err := marker.New(core.MarkerDef{
		ID:         id,
		Kind:       kind,
		Label:      id,
		ContentURL: "https://example.com/" + id,
		Placement:  core.PlacementLocal(0, 0, 0),
	}, core.Vector3{}, action)
	if err != nil {
		t.Fatalf("failed to create marker: %v", err)
	}
	return m
}

func TestNew_NilSink(t *testing.T) {
	if _, err := New(nil, &testLogger{}); err == nil {
		t.Error("expected error for nil sink")
	}
}

func TestDispatcher_SyncDelivery(t *testing.T) {
	state := NewStateSink()
	d, _ := newTestDispatcher(t, state)

	err := d.Dispatch(Event{MarkerID: "cam-1", Kind: core.KindCamera})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	e, visible := state.Current()
	if !visible {
		t.Fatal("overlay not visible")
	}
	if e.MarkerID != "cam-1" {
		t.Errorf("expected cam-1, got %s", e.MarkerID)
	}
}

func TestDispatcher_ActionSharedAcrossKinds(t *testing.T) {
	state := NewStateSink()
	d, _ := newTestDispatcher(t, state)

	kinds := []core.MarkerKind{core.KindCamera, core.KindSensor, core.KindInstrument}
	for i, kind := range kinds {
		m := newTestMarker(t, fmt.Sprintf("m%d", i), kind, d.Action())
		if !m.OnMouseButton(marker.ButtonEvent{Button: marker.ButtonPrimary, Down: true}) {
			t.Errorf("click on %s not handled", kind)
		}
		e, _ := state.Current()
		if e.Kind != kind {
			t.Errorf("expected kind %s, got %s", kind, e.Kind)
		}
		if e.ContentURL != "https://example.com/"+m.ID() {
			t.Errorf("unexpected content url %s", e.ContentURL)
		}
	}

	if state.ShowCount() != 3 {
		t.Errorf("expected 3 shows, got %d", state.ShowCount())
	}
}

func TestDispatcher_SecondaryClickNeverDispatches(t *testing.T) {
	state := NewStateSink()
	d, _ := newTestDispatcher(t, state)

	m := newTestMarker(t, "cam", core.KindCamera, d.Action())
	m.OnMouseButton(marker.ButtonEvent{Button: marker.ButtonSecondary, Down: true})

	if state.ShowCount() != 0 {
		t.Errorf("expected no shows, got %d", state.ShowCount())
	}
}

func TestDispatcher_DebounceAcrossReRegistration(t *testing.T) {
	state := NewStateSink()
	d, _ := newTestDispatcher(t, state, Debounce(time.Minute))

	// Same logical marker rebuilt by a second setup pass.
	first := newTestMarker(t, "cam", core.KindCamera, d.Action())
	second := newTestMarker(t, "cam", core.KindCamera, d.Action())

	first.OnMouseButton(marker.ButtonEvent{Button: marker.ButtonPrimary, Down: true})
	second.OnMouseButton(marker.ButtonEvent{Button: marker.ButtonPrimary, Down: true})

	if state.ShowCount() != 1 {
		t.Errorf("expected 1 show, got %d", state.ShowCount())
	}

	if err := d.Dispatch(Event{MarkerID: "cam"}); !errors.Is(err, ErrDebounced) {
		t.Errorf("expected ErrDebounced, got %v", err)
	}
	// other markers are unaffected
	if err := d.Dispatch(Event{MarkerID: "other"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDispatcher_DebounceExpires(t *testing.T) {
	state := NewStateSink()
	d, _ := newTestDispatcher(t, state, Debounce(time.Second))

	now := time.Unix(1000, 0)
	d.now = func() time.Time { return now }

	_ = d.Dispatch(Event{MarkerID: "cam"})
	now = now.Add(2 * time.Second)
	if err := d.Dispatch(Event{MarkerID: "cam"}); err != nil {
		t.Errorf("unexpected error after debounce window: %v", err)
	}
	if state.ShowCount() != 2 {
		t.Errorf("expected 2 shows, got %d", state.ShowCount())
	}
}

func TestDispatcher_BufferedDelivery(t *testing.T) {
	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d, _ := newTestDispatcher(t, SinkFunc(func(e Event) error {
		processed.Add(1)
		wg.Done()
		return nil
	}), Buffered(100))

	for i := 0; i < 3; i++ {
		if err := d.Dispatch(Event{MarkerID: fmt.Sprintf("m%d", i)}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d, _ := newTestDispatcher(t, SinkFunc(func(e Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}), Buffered(2))
	defer close(block)

	d.Dispatch(Event{MarkerID: "a"}) // being processed
	<-started
	d.Dispatch(Event{MarkerID: "b"}) // queued
	d.Dispatch(Event{MarkerID: "c"}) // queued

	err := d.Dispatch(Event{MarkerID: "d"})

	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d, _ := newTestDispatcher(t, SinkFunc(func(e Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}), Buffered(1), Blocking())

	d.Dispatch(Event{MarkerID: "a"})
	<-started
	d.Dispatch(Event{MarkerID: "b"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{MarkerID: "c"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - dispatch is blocking
	}

	close(block)
	<-done
}

func TestDispatcher_LoggedDelivery(t *testing.T) {
	d, logger := newTestDispatcher(t, NewStateSink(), Logged())

	d.Dispatch(Event{MarkerID: "cam"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedDeliveryError(t *testing.T) {
	d, logger := newTestDispatcher(t, SinkFunc(func(e Event) error {
		return fmt.Errorf("test error")
	}), Logged())

	d.Dispatch(Event{MarkerID: "cam"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if len(msg) >= 5 && msg[:5] == "ERROR" {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_CloseDrainsAndRejects(t *testing.T) {
	var processed atomic.Int32
	d, err := New(SinkFunc(func(e Event) error {
		processed.Add(1)
		return nil
	}), &testLogger{}, Buffered(10))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		d.Dispatch(Event{MarkerID: fmt.Sprintf("m%d", i)})
	}
	d.Close()
	d.Close()

	if processed.Load() != 5 {
		t.Errorf("expected 5 processed after close, got %d", processed.Load())
	}
	if err := d.Dispatch(Event{MarkerID: "late"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
