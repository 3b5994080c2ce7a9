// Package readiness waits for the host scene to finish streaming content.
package readiness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// ErrSceneTimeout is returned when the predicate is still false at the ceiling.
var ErrSceneTimeout = errors.New("scene content not streamed before timeout")

const (
	DefaultInterval = 100 * time.Millisecond
	DefaultCeiling  = 20 * time.Second
)

// Options parameterizes a wait. Zero values take the defaults.
type Options struct {
	Interval time.Duration
	Ceiling  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Ceiling <= 0 {
		o.Ceiling = DefaultCeiling
	}
	return o
}

// Predicate reports whether all content for the current view has streamed.
type Predicate func() bool

// Wait polls pred every Interval until it returns true (Ready) or Ceiling
// elapses (TimedOut, ErrSceneTimeout). If ctx ends first the state stays
// Loading and ctx.Err() is returned. The predicate is checked once before the
// first tick. No timer outlives the call.
func Wait(ctx context.Context, pred Predicate, opts Options) (core.SceneReadinessState, error) {
	opts = opts.withDefaults()

	if err := ctx.Err(); err != nil {
		return core.Loading, err
	}
	if pred() {
		return core.Ready, nil
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	ceiling := time.NewTimer(opts.Ceiling)
	defer ceiling.Stop()

	for {
		select {
		case <-ctx.Done():
			return core.Loading, ctx.Err()
		case <-ceiling.C:
			return core.TimedOut, ErrSceneTimeout
		case <-ticker.C:
			if pred() {
				return core.Ready, nil
			}
		}
	}
}

// Gate records the outcome of a wait. Its state only moves forward, from
// Loading to Ready or TimedOut.
type Gate struct {
	opts Options

	mu    sync.Mutex
	state core.SceneReadinessState
	done  chan struct{}
}

// NewGate creates a gate in the Loading state.
func NewGate(opts Options) *Gate {
	return &Gate{
		opts:  opts.withDefaults(),
		state: core.Loading,
		done:  make(chan struct{}),
	}
}

// Run waits on pred unless the gate has already resolved, in which case the
// recorded state is returned straight away.
func (g *Gate) Run(ctx context.Context, pred Predicate) (core.SceneReadinessState, error) {
	if s := g.State(); s.Terminal() {
		return s, stateErr(s)
	}

	s, err := Wait(ctx, pred, g.opts)
	if s.Terminal() {
		if !g.resolve(s) {
			// lost a race with another Run; report what was recorded
			s = g.State()
			return s, stateErr(s)
		}
	}
	return s, err
}

// State returns the current state.
func (g *Gate) State() core.SceneReadinessState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Done is closed once the gate resolves.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Options returns the effective poll interval and ceiling.
func (g *Gate) Options() Options {
	return g.opts
}

func (g *Gate) resolve(s core.SceneReadinessState) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Terminal() {
		return false
	}
	g.state = s
	close(g.done)
	return true
}

func stateErr(s core.SceneReadinessState) error {
	if s == core.TimedOut {
		return ErrSceneTimeout
	}
	return nil
}
