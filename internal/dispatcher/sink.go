package dispatcher

import (
	"errors"
	"sync"
)

// StateSink is the in-process UI state driven by marker clicks: whether the
// content overlay is visible and which marker opened it.
type StateSink struct {
	mu      sync.RWMutex
	visible bool
	current Event
	shown   int
}

// NewStateSink creates a hidden overlay state.
func NewStateSink() *StateSink {
	return &StateSink{}
}

// ShowOverlay makes the overlay visible for e.
func (s *StateSink) ShowOverlay(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = true
	s.current = e
	s.shown++
	return nil
}

// Hide closes the overlay.
func (s *StateSink) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
}

// Visible reports whether the overlay is showing.
func (s *StateSink) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

// Current returns the event that opened the overlay, if it is visible.
func (s *StateSink) Current() (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.visible
}

// ShowCount returns how many times the overlay has been shown.
func (s *StateSink) ShowCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shown
}

// MultiSink fans an event out to several sinks.
// Every sink receives the event even if an earlier one fails.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink that forwards to all non-nil sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			valid = append(valid, s)
		}
	}
	return &MultiSink{sinks: valid}
}

// ShowOverlay forwards e to every sink and joins their errors.
func (m *MultiSink) ShowOverlay(e Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.ShowOverlay(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
