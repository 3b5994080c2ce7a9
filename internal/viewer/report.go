package viewer

import (
	"errors"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// Step names one stage of a setup pass.
type Step string

const (
	StepBackgroundMap Step = "background_map"
	StepMapLayer      Step = "map_layer"
	StepRealityModel  Step = "reality_model"
	StepMarkers       Step = "markers"
	StepCamera        Step = "camera"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Step     Step
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Report describes one setup pass.
type Report struct {
	PassID     string
	ViewportID string
	Steps      []StepResult
	// Markers is the number of markers registered.
	Markers int
	// Skipped holds one error per marker definition that was dropped.
	Skipped []error
	// Readiness is the scene-ready outcome when the camera step waited on it,
	// and Loading otherwise.
	Readiness core.SceneReadinessState
	// Volume is the reality model's bounding volume, null if none was attached.
	Volume core.BoundingVolume
	// Canceled is set when the viewport was torn down before the pass finished.
	Canceled bool
	// Discarded counts results dropped because they arrived after teardown.
	Discarded int
	Duration  time.Duration
}

// Step returns the result recorded for s.
func (r Report) Step(s Step) (StepResult, bool) {
	for _, res := range r.Steps {
		if res.Step == s {
			return res, true
		}
	}
	return StepResult{}, false
}

// Failed returns the steps that recorded an error.
func (r Report) Failed() []StepResult {
	var out []StepResult
	for _, res := range r.Steps {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every step error, or returns nil for a clean pass.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}
