package geo

import (
	"context"
	"fmt"
	"math"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Registration ties the scene's local frame to the earth.
type Registration struct {
	// Origin is the geographic position of the scene's (0,0,0).
	Origin core.GeoCoordinate
	// Yaw is the angle in degrees, counterclockwise, from east to the scene's X axis.
	Yaw float64
	// Extent bounds the coordinates the scene accepts, in long/lat. Empty means unbounded.
	Extent geom.Envelope
}

// LocalFrame is an in-process Transformer for scenes registered with a
// geographic origin. It projects through Web Mercator and rescales to metres at
// the origin's latitude, which is accurate to well under a metre across a site.
type LocalFrame struct {
	reg    Registration
	ox, oy float64
	scale  float64
	sin    float64
	cos    float64
}

// NewLocalFrame builds a frame for the given registration.
func NewLocalFrame(reg Registration) (*LocalFrame, error) {
	if err := reg.Origin.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registration origin: %w", err)
	}
	origin, err := Coords3857From4326(reg.Origin.Longitude, reg.Origin.Latitude)
	if err != nil {
		return nil, fmt.Errorf("invalid registration origin: %w", err)
	}
	xy, _ := origin.XY()
	rad := reg.Yaw * math.Pi / 180
	return &LocalFrame{
		reg:   reg,
		ox:    xy.X,
		oy:    xy.Y,
		scale: math.Cos(reg.Origin.Latitude * math.Pi / 180),
		sin:   math.Sin(rad),
		cos:   math.Cos(rad),
	}, nil
}

// Registration returns the frame's registration.
func (f *LocalFrame) Registration() Registration {
	return f.reg
}

// Transform converts geo into scene coordinates.
func (f *LocalFrame) Transform(ctx context.Context, geo core.GeoCoordinate) (core.Vector3, error) {
	if err := ctx.Err(); err != nil {
		return core.Vector3{}, fmt.Errorf("%w: %w", ErrTransformFailure, err)
	}
	if err := geo.Validate(); err != nil {
		return core.Vector3{}, fmt.Errorf("%w: %w", ErrTransformFailure, err)
	}
	if !f.reg.Extent.IsEmpty() && !f.reg.Extent.Contains(geom.XY{X: geo.Longitude, Y: geo.Latitude}) {
		return core.Vector3{}, fmt.Errorf("%w: %w: (%f, %f)", ErrTransformFailure, ErrOutsideRegistration, geo.Latitude, geo.Longitude)
	}

	p, err := Coords3857From4326(geo.Longitude, geo.Latitude)
	if err != nil {
		return core.Vector3{}, fmt.Errorf("%w: %w", ErrTransformFailure, err)
	}
	xy, _ := p.XY()

	east := (xy.X - f.ox) * f.scale
	north := (xy.Y - f.oy) * f.scale

	return core.Vector3{
		X: east*f.cos + north*f.sin,
		Y: -east*f.sin + north*f.cos,
		Z: geo.Height - f.reg.Origin.Height,
	}, nil
}
