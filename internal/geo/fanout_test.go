package geo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformAll_IsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	tr := TransformerFunc(func(ctx context.Context, g core.GeoCoordinate) (core.Vector3, error) {
		if g.Latitude == 2 {
			return core.Vector3{}, boom
		}
		// later inputs finish first to exercise ordering
		time.Sleep(time.Duration(5-g.Latitude) * time.Millisecond)
		return core.Vector3{X: g.Latitude}, nil
	})

	coords := []core.GeoCoordinate{{Latitude: 1}, {Latitude: 2}, {Latitude: 3}}
	results := TransformAll(context.Background(), tr, coords, 0)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1.0, results[0].Position.X)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 3.0, results[2].Position.X)
}

func TestTransformAll_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	tr := TransformerFunc(func(ctx context.Context, g core.GeoCoordinate) (core.Vector3, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return core.Vector3{}, nil
	})

	coords := make([]core.GeoCoordinate, 8)
	TransformAll(context.Background(), tr, coords, 2)

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestTransformAll_Empty(t *testing.T) {
	results := TransformAll(context.Background(), TransformerFunc(nil), nil, 4)
	assert.Empty(t, results)
}
