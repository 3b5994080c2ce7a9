package marker

import (
	"context"
	"errors"
	"fmt"

	"github.com/roeblinglabs/itwin-poc-2024/internal/geo"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// ErrDuplicateID is returned for a definition whose ID was already used in the same batch.
var ErrDuplicateID = errors.New("duplicate marker id")

// Registry turns marker definitions into markers, converting geographic
// placements through a Transformer.
type Registry struct {
	transformer geo.Transformer
	action      Action
	limit       int
}

// Option configures a Registry.
type Option func(*Registry)

// WithConcurrency caps the number of transforms in flight.
func WithConcurrency(n int) Option {
	return func(r *Registry) {
		r.limit = n
	}
}

// NewRegistry creates a registry. Every marker it creates shares action.
func NewRegistry(t geo.Transformer, action Action, opts ...Option) *Registry {
	r := &Registry{
		transformer: t,
		action:      action,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create builds markers from defs. Geographic placements are transformed
// concurrently and joined; local placements pass through unchanged. A
// definition that fails validation or transform is skipped and its error
// returned; the surviving markers keep their input order.
func (r *Registry) Create(ctx context.Context, defs []core.MarkerDef) ([]*Marker, []error) {
	positions := make([]core.Vector3, len(defs))
	errs := make([]error, len(defs))
	seen := make(map[string]bool, len(defs))

	var geoIdx []int
	var coords []core.GeoCoordinate

	for i, def := range defs {
		if err := def.Validate(); err != nil {
			errs[i] = err
			continue
		}
		if _, ok := StyleFor(def.Kind); !ok {
			errs[i] = fmt.Errorf("marker %s: %w: %q", def.ID, ErrUnknownKind, def.Kind)
			continue
		}
		if seen[def.ID] {
			errs[i] = fmt.Errorf("marker %s: %w", def.ID, ErrDuplicateID)
			continue
		}
		seen[def.ID] = true

		if !def.Placement.IsGeo() {
			positions[i] = *def.Placement.Local
			continue
		}
		if r.transformer == nil {
			errs[i] = fmt.Errorf("marker %s: %w: no transformer configured", def.ID, geo.ErrTransformFailure)
			continue
		}
		geoIdx = append(geoIdx, i)
		coords = append(coords, *def.Placement.Geo)
	}

	for j, res := range geo.TransformAll(ctx, r.transformer, coords, r.limit) {
		i := geoIdx[j]
		if res.Err != nil {
			errs[i] = fmt.Errorf("marker %s: %w", defs[i].ID, res.Err)
			continue
		}
		positions[i] = res.Position
	}

	markers := make([]*Marker, 0, len(defs))
	var failures []error
	for i, def := range defs {
		if errs[i] != nil {
			failures = append(failures, errs[i])
			continue
		}
		m, err := New(def, positions[i], r.action)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		markers = append(markers, m)
	}

	return markers, failures
}
