package geo

import (
	"context"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one transform in a batch.
type Result struct {
	Position core.Vector3
	Err      error
}

// TransformAll runs every transform concurrently, at most limit at a time
// (limit <= 0 means unbounded), and returns results in input order.
// A failed transform never cancels its siblings.
func TransformAll(ctx context.Context, t Transformer, coords []core.GeoCoordinate, limit int) []Result {
	results := make([]Result, len(coords))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, c := range coords {
		g.Go(func() error {
			pos, err := t.Transform(ctx, c)
			results[i] = Result{Position: pos, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
