package marker

import (
	"context"
	"errors"
	"testing"

	"github.com/roeblinglabs/itwin-poc-2024/internal/geo"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingAt returns a transformer that fails for the given latitude and maps
// every other coordinate to (lat, lon, height).
func failingAt(lat float64) geo.Transformer {
	return geo.TransformerFunc(func(ctx context.Context, g core.GeoCoordinate) (core.Vector3, error) {
		if g.Latitude == lat {
			return core.Vector3{}, errors.Join(geo.ErrTransformFailure, geo.ErrOutsideRegistration)
		}
		return core.Vector3{X: g.Latitude, Y: g.Longitude, Z: g.Height}, nil
	})
}

func geoDef(id string, lat float64) core.MarkerDef {
	return core.MarkerDef{ID: id, Kind: core.KindSensor, Label: id, Placement: core.PlacementGeo(lat, 1, 2)}
}

func ids(markers []*Marker) []string {
	out := make([]string, len(markers))
	for i, m := range markers {
		out[i] = m.ID()
	}
	return out
}

func TestCreate_OneFailureOfThree(t *testing.T) {
	r := NewRegistry(failingAt(20), nil)

	markers, errs := r.Create(context.Background(), []core.MarkerDef{
		geoDef("a", 10), geoDef("b", 20), geoDef("c", 30),
	})

	assert.Equal(t, []string{"a", "c"}, ids(markers))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], geo.ErrTransformFailure)
	assert.Contains(t, errs[0].Error(), "marker b")
}

func TestCreate_PreservesOrderWithMixedPlacements(t *testing.T) {
	r := NewRegistry(failingAt(-1), nil, WithConcurrency(1))
	local := core.MarkerDef{ID: "local", Kind: core.KindCamera, Label: "L", Placement: core.PlacementLocal(7, 8, 9)}

	markers, errs := r.Create(context.Background(), []core.MarkerDef{
		geoDef("g1", 10), local, geoDef("g2", 30),
	})

	require.Empty(t, errs)
	assert.Equal(t, []string{"g1", "local", "g2"}, ids(markers))
	assert.Equal(t, core.Vector3{X: 7, Y: 8, Z: 9}, markers[1].Position())
	assert.Equal(t, core.Vector3{X: 10, Y: 1, Z: 2}, markers[0].Position())
}

func TestCreate_LocalPlacementNeedsNoTransformer(t *testing.T) {
	r := NewRegistry(nil, nil)

	markers, errs := r.Create(context.Background(), []core.MarkerDef{
		{ID: "l", Kind: core.KindInstrument, Label: "L", Placement: core.PlacementLocal(1, 2, 3)},
		geoDef("g", 10),
	})

	assert.Equal(t, []string{"l"}, ids(markers))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], geo.ErrTransformFailure)
}

func TestCreate_SkipsInvalidDefinitions(t *testing.T) {
	r := NewRegistry(failingAt(-1), nil)

	markers, errs := r.Create(context.Background(), []core.MarkerDef{
		{ID: "", Kind: core.KindCamera, Placement: core.PlacementLocal(0, 0, 0)},
		{ID: "nokind", Placement: core.PlacementLocal(0, 0, 0)},
		{ID: "drone", Kind: "drone", Placement: core.PlacementLocal(0, 0, 0)},
		{ID: "noplace", Kind: core.KindCamera},
		geoDef("ok", 10),
		geoDef("ok", 11),
	})

	assert.Equal(t, []string{"ok"}, ids(markers))
	require.Len(t, errs, 5)
	assert.ErrorIs(t, errs[0], core.ErrInvalidMarkerDef)
	assert.ErrorIs(t, errs[2], ErrUnknownKind)
	assert.ErrorIs(t, errs[3], core.ErrInvalidPlacement)
	assert.ErrorIs(t, errs[4], ErrDuplicateID)
}

func TestCreate_SharesAction(t *testing.T) {
	var clicked []string
	action := func(m *Marker) { clicked = append(clicked, m.ID()) }
	r := NewRegistry(failingAt(-1), action)

	markers, errs := r.Create(context.Background(), []core.MarkerDef{geoDef("a", 1), geoDef("b", 2)})
	require.Empty(t, errs)

	for _, m := range markers {
		m.OnMouseButton(ButtonEvent{Button: ButtonPrimary, Down: true})
	}
	assert.Equal(t, []string{"a", "b"}, clicked)
}
