// pkg/core/marker.go
package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMarkerDef is returned when a marker definition is missing required fields.
var ErrInvalidMarkerDef = errors.New("invalid marker definition")

// MarkerKind tags what a marker represents. Icon and title prefix are looked up from the kind.
type MarkerKind string

const (
	KindCamera     MarkerKind = "camera"
	KindSensor     MarkerKind = "sensor"
	KindInstrument MarkerKind = "instrument"
)

// Size is a marker's on-screen size in pixels.
type Size struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

// MarkerDef is the caller-supplied description of one marker.
type MarkerDef struct {
	ID         string     `json:"id" mapstructure:"id"`
	Kind       MarkerKind `json:"kind" mapstructure:"kind"`
	Label      string     `json:"label" mapstructure:"label"`
	Placement  Placement  `json:"placement" mapstructure:"placement"`
	ContentURL string     `json:"contentUrl" mapstructure:"contentUrl"`
	Size       *Size      `json:"size,omitempty" mapstructure:"size"`
}

// Validate checks the fields every definition needs before placement.
func (d MarkerDef) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMarkerDef)
	}
	if d.Kind == "" {
		return fmt.Errorf("%w: %s: missing kind", ErrInvalidMarkerDef, d.ID)
	}
	if err := d.Placement.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidMarkerDef, d.ID, err)
	}
	return nil
}
