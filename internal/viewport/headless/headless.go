// Package headless provides an in-memory viewport. It records every
// configuration call and renders decorations into a recorded frame, which
// makes it usable both in tests and in the demo binary.
package headless

import (
	"sync"
	"sync/atomic"

	"github.com/roeblinglabs/itwin-poc-2024/internal/marker"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// Op names a viewport call.
type Op string

const (
	OpSetBackgroundMap   Op = "set_background_map"
	OpAttachMapLayer     Op = "attach_map_layer"
	OpAttachRealityModel Op = "attach_reality_model"
	OpLookAt             Op = "look_at"
	OpFitView            Op = "fit_view"
	OpAddDecorator       Op = "add_decorator"
	OpDropDecorator      Op = "drop_decorator"
)

// Option configures a Viewport.
type Option func(*Viewport)

// WithContentStreamed replaces the streaming-complete predicate.
func WithContentStreamed(pred func() bool) Option {
	return func(v *Viewport) {
		v.pred = pred
	}
}

// FailOn makes every call of op return err.
func FailOn(op Op, err error) Option {
	return func(v *Viewport) {
		v.failures[op] = err
	}
}

// Viewport is a host viewport without a renderer.
type Viewport struct {
	id       string
	pred     func() bool
	streamed atomic.Bool
	polls    atomic.Int64
	failures map[Op]error

	mu          sync.Mutex
	calls       []Op
	background  core.BackgroundMap
	layers      []core.MapLayer
	models      []core.RealityModel
	poses       []core.CameraPose
	fits        []core.BoundingVolume
	decorations []marker.Decoration
}

// New creates a viewport. Content is reported as streamed unless an option
// or SetStreamed says otherwise.
func New(id string, opts ...Option) *Viewport {
	v := &Viewport{
		id:       id,
		failures: make(map[Op]error),
	}
	v.streamed.Store(true)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Viewport) ID() string { return v.id }

// record appends op to the call log and returns the configured failure, if any.
func (v *Viewport) record(op Op) error {
	v.calls = append(v.calls, op)
	return v.failures[op]
}

func (v *Viewport) SetBackgroundMap(bg core.BackgroundMap) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record(OpSetBackgroundMap); err != nil {
		return err
	}
	v.background = bg
	return nil
}

func (v *Viewport) AttachMapLayer(layer core.MapLayer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record(OpAttachMapLayer); err != nil {
		return err
	}
	v.layers = append(v.layers, layer)
	return nil
}

func (v *Viewport) AttachRealityModel(model core.RealityModel) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record(OpAttachRealityModel); err != nil {
		return err
	}
	v.models = append(v.models, model)
	return nil
}

func (v *Viewport) LookAt(pose core.CameraPose) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record(OpLookAt); err != nil {
		return err
	}
	v.poses = append(v.poses, pose)
	return nil
}

// FitView frames vol. A null volume means "fit to all content".
func (v *Viewport) FitView(vol core.BoundingVolume) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.record(OpFitView); err != nil {
		return err
	}
	v.fits = append(v.fits, vol)
	return nil
}

// ContentStreamed reports whether the tile trees have finished loading.
func (v *Viewport) ContentStreamed() bool {
	v.polls.Add(1)
	if v.pred != nil {
		return v.pred()
	}
	return v.streamed.Load()
}

// SetStreamed sets the value ContentStreamed reports when no predicate was given.
func (v *Viewport) SetStreamed(b bool) {
	v.streamed.Store(b)
}

// Polls returns how many times ContentStreamed has been called.
func (v *Viewport) Polls() int64 {
	return v.polls.Load()
}

func (v *Viewport) AddDecorator(d marker.Decoration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, OpAddDecorator)
	v.decorations = append(v.decorations, d)
}

func (v *Viewport) DropDecorator(d marker.Decoration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, OpDropDecorator)
	for i, existing := range v.decorations {
		if existing == d {
			v.decorations = append(v.decorations[:i], v.decorations[i+1:]...)
			return
		}
	}
}

// frame collects the graphics drawn during one Render.
type frame struct {
	graphics []marker.Graphic
}

func (f *frame) DrawMarker(g marker.Graphic) {
	f.graphics = append(f.graphics, g)
}

// Render runs one frame over every registered decoration and returns what was drawn.
func (v *Viewport) Render() []marker.Graphic {
	f := &frame{}
	for _, d := range v.Decorations() {
		d.Decorate(f)
	}
	return f.graphics
}

// Click delivers a primary-button press to the marker with the given ID, as
// the host's hit-testing would. It reports whether any decoration handled it.
func (v *Viewport) Click(markerID string, button marker.Button) bool {
	ev := marker.ButtonEvent{Button: button, Down: true}
	for _, d := range v.Decorations() {
		if dec, ok := d.(*marker.Decorator); ok && dec.HandleButton(markerID, ev) {
			return true
		}
	}
	return false
}

// Calls returns the recorded call log.
func (v *Viewport) Calls() []Op {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Op, len(v.calls))
	copy(out, v.calls)
	return out
}

// Background returns the last applied background map.
func (v *Viewport) Background() core.BackgroundMap {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.background
}

// MapLayers returns the attached imagery layers.
func (v *Viewport) MapLayers() []core.MapLayer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]core.MapLayer(nil), v.layers...)
}

// RealityModels returns the attached reality models.
func (v *Viewport) RealityModels() []core.RealityModel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]core.RealityModel(nil), v.models...)
}

// Poses returns every pose passed to LookAt.
func (v *Viewport) Poses() []core.CameraPose {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]core.CameraPose(nil), v.poses...)
}

// Fits returns every volume passed to FitView.
func (v *Viewport) Fits() []core.BoundingVolume {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]core.BoundingVolume(nil), v.fits...)
}

// Decorations returns the currently registered decorations.
func (v *Viewport) Decorations() []marker.Decoration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]marker.Decoration(nil), v.decorations...)
}
