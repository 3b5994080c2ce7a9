package marker

import "sync"

// RenderContext is the host surface a decoration draws into during a frame.
type RenderContext interface {
	DrawMarker(g Graphic)
}

// Decoration is anything the host calls once per frame to overlay graphics.
type Decoration interface {
	Decorate(rc RenderContext)
}

// Decorator draws a set of markers of any kind in insertion order.
type Decorator struct {
	mu      sync.RWMutex
	markers []*Marker
	index   map[string]int
}

// NewDecorator creates a decorator over markers.
func NewDecorator(markers []*Marker) *Decorator {
	d := &Decorator{}
	d.replace(markers)
	return d
}

// Decorate draws every marker. It does not modify any state and may be called
// from the render loop at any time, including while markers are being replaced.
func (d *Decorator) Decorate(rc RenderContext) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.markers {
		rc.DrawMarker(m.Graphic())
	}
}

// Markers returns a copy of the markers in draw order.
func (d *Decorator) Markers() []*Marker {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Marker, len(d.markers))
	copy(out, d.markers)
	return out
}

// Len returns the number of markers.
func (d *Decorator) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.markers)
}

// Get retrieves a marker by ID
func (d *Decorator) Get(id string) (*Marker, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return d.markers[i], true
}

// HandleButton routes a button event to the marker with the given ID.
func (d *Decorator) HandleButton(id string, ev ButtonEvent) bool {
	m, ok := d.Get(id)
	if !ok {
		return false
	}
	return m.OnMouseButton(ev)
}

func (d *Decorator) replace(markers []*Marker) {
	list := make([]*Marker, len(markers))
	copy(list, markers)
	index := make(map[string]int, len(list))
	for i, m := range list {
		index[m.id] = i
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.markers = list
	d.index = index
}
