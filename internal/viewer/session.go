package viewer

import (
	"context"
	"sync"

	"github.com/roeblinglabs/itwin-poc-2024/internal/marker"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// Session tracks the setup pass of one viewport slot. Attach replaces the
// previous pass; Detach cancels whatever is in flight and tears it down.
type Session struct {
	orch *Orchestrator

	mu     sync.Mutex
	vp     Viewport
	cancel context.CancelFunc
	done   chan struct{}
	handle *marker.OverlayHandle
	report Report
}

// NewSession creates a session running passes on o.
func NewSession(o *Orchestrator) *Session {
	return &Session{orch: o}
}

// Attach tears down the previous pass, then runs a new one on vp. A call to
// Detach or Attach from another goroutine cancels it.
func (s *Session) Attach(ctx context.Context, vp Viewport, cfg core.ViewportConfig) (*marker.OverlayHandle, Report) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	prevVP, prevCancel, prevDone := s.vp, s.cancel, s.done
	s.vp, s.cancel, s.done = vp, cancel, done
	s.handle, s.report = nil, Report{}
	s.mu.Unlock()

	s.retire(prevVP, prevCancel, prevDone)

	handle, report := s.orch.Setup(ctx, vp, cfg)

	s.mu.Lock()
	if s.done == done {
		s.handle, s.report = handle, report
	}
	s.mu.Unlock()
	close(done)

	return handle, report
}

// Detach cancels any in-flight pass, waits for it to return and removes its
// overlay from the viewport. Safe to call when nothing is attached.
func (s *Session) Detach() {
	s.mu.Lock()
	prevVP, prevCancel, prevDone := s.vp, s.cancel, s.done
	s.vp, s.cancel, s.done = nil, nil, nil
	s.handle, s.report = nil, Report{}
	s.mu.Unlock()

	s.retire(prevVP, prevCancel, prevDone)
}

func (s *Session) retire(vp Viewport, cancel context.CancelFunc, done chan struct{}) {
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if vp != nil {
		s.orch.Teardown(vp.ID())
	}
}

// Handle returns the overlay of the last completed pass, or nil.
func (s *Session) Handle() *marker.OverlayHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Report returns the report of the last completed pass.
func (s *Session) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}
