package viewer

import (
	"testing"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentroidPose(t *testing.T) {
	positions := []core.Vector3{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 20, Z: 4},
		{X: -4, Y: 7, Z: 2},
	}
	offset := core.Vector3{X: 0, Y: -30, Z: 15}

	pose, ok := CentroidPose(positions, offset)

	require.True(t, ok)
	assert.Equal(t, core.Vector3{X: 2, Y: 9, Z: 2}, pose.Target)
	assert.Equal(t, core.Vector3{X: 2, Y: -21, Z: 17}, pose.Eye)
	assert.Equal(t, core.DefaultUp, pose.Up)
}

func TestCentroid_OrderIndependent(t *testing.T) {
	positions := []core.Vector3{
		{X: 0.1, Y: 1e9, Z: -3.3},
		{X: 0.2, Y: -1e9, Z: 7.7},
		{X: 0.3, Y: 1.5, Z: 0.01},
		{X: -12.25, Y: 4.125, Z: 1e-7},
	}
	want, ok := Centroid(positions)
	require.True(t, ok)

	permutations := [][]int{
		{3, 2, 1, 0},
		{1, 0, 3, 2},
		{2, 3, 0, 1},
		{0, 2, 1, 3},
	}
	for _, perm := range permutations {
		shuffled := make([]core.Vector3, len(perm))
		for i, j := range perm {
			shuffled[i] = positions[j]
		}
		got, ok := Centroid(shuffled)
		require.True(t, ok)
		assert.Equal(t, want, got, "permutation %v", perm)
	}
}

func TestCentroid_Empty(t *testing.T) {
	_, ok := Centroid(nil)
	assert.False(t, ok)
	_, ok = CentroidPose(nil, core.Vector3{Z: 1})
	assert.False(t, ok)
}

func TestFitVolume(t *testing.T) {
	vol := FitVolume(core.NullVolume(), []core.Vector3{{X: 1, Y: -1, Z: 0}, {X: -2, Y: 3, Z: 5}})
	assert.Equal(t, core.Vector3{X: -2, Y: -1, Z: 0}, vol.Low)
	assert.Equal(t, core.Vector3{X: 1, Y: 3, Z: 5}, vol.High)

	assert.True(t, FitVolume(core.NullVolume(), nil).IsNull())

	reality := core.BoundingVolume{Low: core.Vector3{X: -1, Y: -1, Z: -1}, High: core.Vector3{X: 1, Y: 1, Z: 1}}
	assert.Equal(t, reality, FitVolume(reality, []core.Vector3{{}}))
}
