package viewer

import (
	"cmp"
	"slices"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// Centroid returns the mean of positions. The sum is taken in sorted order so
// the result is bit-for-bit the same for any permutation of the input.
func Centroid(positions []core.Vector3) (core.Vector3, bool) {
	if len(positions) == 0 {
		return core.Vector3{}, false
	}
	sorted := slices.Clone(positions)
	slices.SortFunc(sorted, func(a, b core.Vector3) int {
		return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y), cmp.Compare(a.Z, b.Z))
	})

	var sum core.Vector3
	for _, p := range sorted {
		sum = sum.Add(p)
	}
	n := float64(len(sorted))
	return core.Vector3{X: sum.X / n, Y: sum.Y / n, Z: sum.Z / n}, true
}

// CentroidPose looks at the marker centroid from centroid+offset.
func CentroidPose(positions []core.Vector3, offset core.Vector3) (core.CameraPose, bool) {
	c, ok := Centroid(positions)
	if !ok {
		return core.CameraPose{}, false
	}
	return core.CameraPose{
		Eye:    c.Add(offset),
		Target: c,
		Up:     core.DefaultUp,
	}, true
}

// FitVolume is the reality model volume grown to include every marker.
func FitVolume(reality core.BoundingVolume, positions []core.Vector3) core.BoundingVolume {
	vol := reality
	for _, p := range positions {
		vol = vol.Extend(p)
	}
	return vol
}
