package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrTransformFailure is wrapped by every error a Transformer returns.
// A failed transform only affects the coordinate that produced it.
var ErrTransformFailure = errors.New("geographic transform failed")

// ErrOutsideRegistration is returned for coordinates outside the scene's geographic extent.
var ErrOutsideRegistration = errors.New("coordinate outside scene registration")

// ErrServiceUnavailable is returned when the geolocation service cannot be reached.
var ErrServiceUnavailable = errors.New("geolocation service unavailable")

// ErrInvalidCoordinates is returned when a coordinate string cannot be parsed
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Transformer converts geographic coordinates into the scene's local spatial frame.
type Transformer interface {
	Transform(ctx context.Context, geo core.GeoCoordinate) (core.Vector3, error)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(ctx context.Context, geo core.GeoCoordinate) (core.Vector3, error)

// Transform calls f.
func (f TransformerFunc) Transform(ctx context.Context, geo core.GeoCoordinate) (core.Vector3, error) {
	return f(ctx, geo)
}

// GeoFromString parses "long,lat" or "long,lat,height" into a core.GeoCoordinate.
func GeoFromString(coords string) (core.GeoCoordinate, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	var height float64
	if len(coordsSplit) > 2 {
		height, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.GeoCoordinate{}, ErrInvalidCoordinates
		}
	}
	g := core.GeoCoordinate{Latitude: lat, Longitude: long, Height: height}
	if err := g.Validate(); err != nil {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	return g, nil
}

// Coords3857From4326 projects a longitude and latitude onto Web Mercator.
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	point, err = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		},
	)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), fmt.Errorf("%w: %w", ErrInvalidCoordinates, err)
	}
	return point, nil
}
