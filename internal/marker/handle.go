package marker

import "sync"

// DecoratorHost is the viewport-side registration surface for decorations.
type DecoratorHost interface {
	AddDecorator(d Decoration)
	DropDecorator(d Decoration)
}

// OverlayHandle owns the decorator registered for one viewport. The caller
// must pass it to Teardown when the viewport goes away or is re-attached.
type OverlayHandle struct {
	mu        sync.Mutex
	host      DecoratorHost
	decorator *Decorator
	active    bool
}

// Register creates a decorator over markers and adds it to host.
func Register(host DecoratorHost, markers []*Marker) *OverlayHandle {
	d := NewDecorator(markers)
	host.AddDecorator(d)
	return &OverlayHandle{
		host:      host,
		decorator: d,
		active:    true,
	}
}

// Decorator returns the registered decorator.
func (h *OverlayHandle) Decorator() *Decorator {
	return h.decorator
}

// Markers returns the current markers in draw order.
func (h *OverlayHandle) Markers() []*Marker {
	return h.decorator.Markers()
}

// Active reports whether the decorator is still registered.
func (h *OverlayHandle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Replace swaps the whole marker list. Markers are never appended.
// It is a no-op after Teardown.
func (h *OverlayHandle) Replace(markers []*Marker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return
	}
	h.decorator.replace(markers)
}

// Teardown unregisters the decorator and drops its markers. Safe to call more than once.
func (h *OverlayHandle) Teardown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return
	}
	h.active = false
	h.host.DropDecorator(h.decorator)
	h.decorator.replace(nil)
}
