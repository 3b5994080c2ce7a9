package core

// SceneReadinessState is the outcome of waiting for the scene to finish streaming.
// It moves from Loading to exactly one of Ready or TimedOut and never back.
type SceneReadinessState int

const (
	Loading SceneReadinessState = iota
	Ready
	TimedOut
)

func (s SceneReadinessState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state can no longer change.
func (s SceneReadinessState) Terminal() bool {
	return s == Ready || s == TimedOut
}
