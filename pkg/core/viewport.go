// pkg/core/viewport.go
package core

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"
)

// ErrInvalidMapLayer is returned for map layers without a usable URL template.
var ErrInvalidMapLayer = errors.New("invalid map layer")

// BackgroundMap configures the base map under the scene.
type BackgroundMap struct {
	Provider     string `json:"provider" mapstructure:"provider"`
	MapType      string `json:"mapType" mapstructure:"mapType"`
	ApplyTerrain bool   `json:"applyTerrain" mapstructure:"applyTerrain"`
	NonLocatable bool   `json:"nonLocatable" mapstructure:"nonLocatable"`
}

// MapLayer is a remote imagery layer drawn over the background map.
// URLTemplate uses {z}, {x}, {y} for tile coordinates and may reference {key}
// for the access credential.
type MapLayer struct {
	FormatID    string `json:"formatId" mapstructure:"formatId"`
	Name        string `json:"name" mapstructure:"name"`
	URLTemplate string `json:"urlTemplate" mapstructure:"urlTemplate"`
	AccessKey   string `json:"accessKey" mapstructure:"accessKey"`
	AccessToken string `json:"-" mapstructure:"accessToken"`
}

// Rotation is a yaw/pitch/roll in degrees.
type Rotation struct {
	Yaw   float64 `json:"yaw" mapstructure:"yaw"`
	Pitch float64 `json:"pitch" mapstructure:"pitch"`
	Roll  float64 `json:"roll" mapstructure:"roll"`
}

// RealityModel is an externally hosted capture anchored at a geographic location.
type RealityModel struct {
	ID          string        `json:"id" mapstructure:"id"`
	Name        string        `json:"name" mapstructure:"name"`
	URL         string        `json:"url" mapstructure:"url"`
	Anchor      GeoCoordinate `json:"anchor" mapstructure:"anchor"`
	Rotation    Rotation      `json:"rotation" mapstructure:"rotation"`
	AccessToken string        `json:"-" mapstructure:"accessToken"`
}

// CameraPose is an explicit eye/target/up camera placement.
type CameraPose struct {
	Eye          Vector3 `json:"eye" mapstructure:"eye"`
	Target       Vector3 `json:"target" mapstructure:"target"`
	Up           Vector3 `json:"up" mapstructure:"up"`
	LensAngleDeg float64 `json:"lensAngleDeg" mapstructure:"lensAngleDeg"`
}

// CameraMode selects how the camera is framed at the end of setup.
type CameraMode string

const (
	CameraExplicit CameraMode = "explicit"
	CameraCentroid CameraMode = "centroid"
	CameraFit      CameraMode = "fit"
)

// CameraSpec configures the final framing step.
type CameraSpec struct {
	Mode CameraMode `json:"mode" mapstructure:"mode"`
	// Pose is used by CameraExplicit.
	Pose *CameraPose `json:"pose,omitempty" mapstructure:"pose"`
	// Offset is added to the marker centroid by CameraCentroid.
	Offset Vector3 `json:"offset" mapstructure:"offset"`
}

// DefaultUp is the scene's vertical axis.
var DefaultUp = r3.Vector{X: 0, Y: 0, Z: 1}

// BoundingVolume is an axis-aligned box in scene coordinates.
type BoundingVolume struct {
	Low  Vector3 `json:"low"`
	High Vector3 `json:"high"`
}

// NullVolume returns an empty volume that any Extend call replaces.
func NullVolume() BoundingVolume {
	inf := math.Inf(1)
	return BoundingVolume{
		Low:  r3.Vector{X: inf, Y: inf, Z: inf},
		High: r3.Vector{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsNull reports whether the volume contains no points.
func (b BoundingVolume) IsNull() bool {
	return b.Low.X > b.High.X || b.Low.Y > b.High.Y || b.Low.Z > b.High.Z
}

// Extend returns the volume grown to include p.
func (b BoundingVolume) Extend(p Vector3) BoundingVolume {
	return BoundingVolume{
		Low:  r3.Vector{X: math.Min(b.Low.X, p.X), Y: math.Min(b.Low.Y, p.Y), Z: math.Min(b.Low.Z, p.Z)},
		High: r3.Vector{X: math.Max(b.High.X, p.X), Y: math.Max(b.High.Y, p.Y), Z: math.Max(b.High.Z, p.Z)},
	}
}

// Union returns the smallest volume containing both.
func (b BoundingVolume) Union(o BoundingVolume) BoundingVolume {
	if o.IsNull() {
		return b
	}
	if b.IsNull() {
		return o
	}
	return b.Extend(o.Low).Extend(o.High)
}

// Center returns the midpoint of the volume.
func (b BoundingVolume) Center() Vector3 {
	return b.Low.Add(b.High).Mul(0.5)
}

// ViewportConfig is everything applied to a viewport on attach.
type ViewportConfig struct {
	BackgroundMap BackgroundMap `json:"backgroundMap" mapstructure:"backgroundMap"`
	MapLayer      *MapLayer     `json:"mapLayer,omitempty" mapstructure:"mapLayer"`
	RealityModel  *RealityModel `json:"realityModel,omitempty" mapstructure:"realityModel"`
	Camera        CameraSpec    `json:"camera" mapstructure:"camera"`
	Markers       []MarkerDef   `json:"markers" mapstructure:"markers"`
}
