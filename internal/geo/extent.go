package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ParseExtent parses a JSON array of [long,lat] pairs into the envelope that bounds them.
// Input format: "[[x1,y1],[x2,y2],...]"
func ParseExtent(input string) (geom.Envelope, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return geom.Envelope{}, fmt.Errorf("failed to parse extent JSON: %w", err)
	}

	if len(coords) < 2 {
		return geom.Envelope{}, fmt.Errorf("extent must have at least 2 points, got %d", len(coords))
	}

	var env geom.Envelope
	for i, coord := range coords {
		if len(coord) < 2 {
			return geom.Envelope{}, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		if coord[0] < -180 || coord[0] > 180 || coord[1] < -90 || coord[1] > 90 {
			return geom.Envelope{}, fmt.Errorf("coordinate %d out of range: %w", i, ErrInvalidCoordinates)
		}
		var err error
		env, err = env.ExtendToIncludeXY(geom.XY{X: coord[0], Y: coord[1]})
		if err != nil {
			return geom.Envelope{}, fmt.Errorf("coordinate %d: %w", i, err)
		}
	}

	return env, nil
}
