// pkg/core/geo.go
package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Vector3 is a position in the scene's local spatial frame, in metres.
type Vector3 = r3.Vector

// ErrInvalidPlacement is returned when a placement is neither geographic nor local, or both.
var ErrInvalidPlacement = errors.New("invalid marker placement")

// ErrInvalidCoordinate is returned for latitude/longitude values outside the WGS84 range.
var ErrInvalidCoordinate = errors.New("invalid geographic coordinate")

// GeoCoordinate is a WGS84 position. Height is metres above the ellipsoid.
type GeoCoordinate struct {
	Latitude  float64 `json:"latitude" mapstructure:"latitude"`
	Longitude float64 `json:"longitude" mapstructure:"longitude"`
	Height    float64 `json:"height" mapstructure:"height"`
}

// Validate checks that the coordinate lies within the WGS84 range.
func (g GeoCoordinate) Validate() error {
	if math.IsNaN(g.Latitude) || math.IsNaN(g.Longitude) || math.IsNaN(g.Height) {
		return fmt.Errorf("%w: NaN component", ErrInvalidCoordinate)
	}
	if g.Latitude < -90 || g.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidCoordinate, g.Latitude)
	}
	if g.Longitude < -180 || g.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidCoordinate, g.Longitude)
	}
	return nil
}

// Placement says where a marker goes. Exactly one of Geo or Local is set.
type Placement struct {
	Geo   *GeoCoordinate `json:"geo,omitempty" mapstructure:"geo"`
	Local *Vector3       `json:"local,omitempty" mapstructure:"local"`
}

// PlacementGeo places a marker at a geographic coordinate.
func PlacementGeo(lat, lon, height float64) Placement {
	return Placement{Geo: &GeoCoordinate{Latitude: lat, Longitude: lon, Height: height}}
}

// PlacementLocal places a marker at a position already in scene coordinates.
func PlacementLocal(x, y, z float64) Placement {
	return Placement{Local: &Vector3{X: x, Y: y, Z: z}}
}

// IsGeo reports whether the placement needs a geographic transform.
func (p Placement) IsGeo() bool {
	return p.Geo != nil
}

// Validate enforces the one-of rule.
func (p Placement) Validate() error {
	switch {
	case p.Geo != nil && p.Local != nil:
		return fmt.Errorf("%w: both geo and local set", ErrInvalidPlacement)
	case p.Geo != nil:
		return p.Geo.Validate()
	case p.Local != nil:
		return nil
	default:
		return fmt.Errorf("%w: neither geo nor local set", ErrInvalidPlacement)
	}
}
