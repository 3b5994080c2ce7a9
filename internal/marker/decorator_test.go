package marker

import (
	"sync"
	"testing"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingContext struct {
	drawn []Graphic
}

func (r *recordingContext) DrawMarker(g Graphic) {
	r.drawn = append(r.drawn, g)
}

type recordingHost struct {
	mu      sync.Mutex
	added   []Decoration
	dropped []Decoration
}

func (h *recordingHost) AddDecorator(d Decoration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.added = append(h.added, d)
}

func (h *recordingHost) DropDecorator(d Decoration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropped = append(h.dropped, d)
}

func mixedMarkers(t *testing.T) []*Marker {
	t.Helper()
	defs := []core.MarkerDef{
		{ID: "cam", Kind: core.KindCamera, Label: "Cam", Placement: core.PlacementLocal(1, 0, 0)},
		{ID: "sen", Kind: core.KindSensor, Label: "Sen", Placement: core.PlacementLocal(2, 0, 0)},
		{ID: "ins", Kind: core.KindInstrument, Label: "Ins", Placement: core.PlacementLocal(3, 0, 0)},
	}
	out := make([]*Marker, 0, len(defs))
	for _, d := range defs {
		m, err := New(d, *d.Placement.Local, nil)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func TestDecorate_DrawsAllKindsInInsertionOrder(t *testing.T) {
	d := NewDecorator(mixedMarkers(t))

	for frame := 0; frame < 3; frame++ {
		rc := &recordingContext{}
		d.Decorate(rc)

		require.Len(t, rc.drawn, 3)
		assert.Equal(t, "cam", rc.drawn[0].ID)
		assert.Equal(t, "sen", rc.drawn[1].ID)
		assert.Equal(t, "ins", rc.drawn[2].ID)
		assert.Equal(t, core.KindSensor, rc.drawn[1].Kind)
	}
}

func TestDecorate_DoesNotMutate(t *testing.T) {
	markers := mixedMarkers(t)
	d := NewDecorator(markers)

	d.Decorate(&recordingContext{})

	assert.Equal(t, markers, d.Markers())
	assert.Equal(t, 3, d.Len())
}

func TestDecorator_GetAndHandleButton(t *testing.T) {
	calls := 0
	m, err := New(cameraDef("cam-1", "x"), core.Vector3{}, func(*Marker) { calls++ })
	require.NoError(t, err)
	d := NewDecorator([]*Marker{m})

	got, ok := d.Get("cam-1")
	require.True(t, ok)
	assert.Same(t, m, got)

	assert.True(t, d.HandleButton("cam-1", ButtonEvent{Button: ButtonPrimary, Down: true}))
	assert.False(t, d.HandleButton("missing", ButtonEvent{Button: ButtonPrimary, Down: true}))
	assert.Equal(t, 1, calls)
}

func TestDecorator_ConcurrentDecorateAndReplace(t *testing.T) {
	markers := mixedMarkers(t)
	d := NewDecorator(markers)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			d.Decorate(&recordingContext{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			d.replace(markers[:i%3])
		}
	}()
	wg.Wait()
}

func TestRegister_AddsDecoratorToHost(t *testing.T) {
	host := &recordingHost{}

	h := Register(host, mixedMarkers(t))

	require.Len(t, host.added, 1)
	assert.Same(t, h.Decorator(), host.added[0])
	assert.True(t, h.Active())
	assert.Len(t, h.Markers(), 3)
}

func TestOverlayHandle_ReplaceIsNotAppend(t *testing.T) {
	host := &recordingHost{}
	markers := mixedMarkers(t)
	h := Register(host, markers)

	h.Replace(markers[1:2])

	got := h.Markers()
	require.Len(t, got, 1)
	assert.Equal(t, "sen", got[0].ID())
}

func TestOverlayHandle_TeardownIdempotent(t *testing.T) {
	host := &recordingHost{}
	h := Register(host, mixedMarkers(t))

	h.Teardown()
	h.Teardown()

	require.Len(t, host.dropped, 1)
	assert.Same(t, h.Decorator(), host.dropped[0])
	assert.False(t, h.Active())
	assert.Empty(t, h.Markers())

	// replace after teardown must not resurrect markers
	h.Replace(mixedMarkers(t))
	assert.Empty(t, h.Markers())
}
