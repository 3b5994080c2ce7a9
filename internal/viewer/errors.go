package viewer

import (
	"errors"

	"github.com/roeblinglabs/itwin-poc-2024/internal/attach"
	"github.com/roeblinglabs/itwin-poc-2024/internal/geo"
	"github.com/roeblinglabs/itwin-poc-2024/internal/readiness"
)

// Setup failures. All of them are recoverable: the failing step is recorded
// in the Report and the remaining steps still run.
var (
	// ErrTransformFailure marks a marker skipped because its geographic position could not be converted.
	ErrTransformFailure = geo.ErrTransformFailure
	// ErrAttachmentFailure marks a map layer or reality model that could not be attached.
	ErrAttachmentFailure = attach.ErrAttachmentFailure
	// ErrSceneTimeout marks a fit that went ahead before the scene finished streaming.
	ErrSceneTimeout = readiness.ErrSceneTimeout
	// ErrTeardownRace marks a result that arrived after its viewport was torn down.
	// It is logged and counted, never reported as a step failure.
	ErrTeardownRace = errors.New("result arrived after viewport teardown")
	// ErrInvalidCamera is returned for a camera spec that cannot be applied.
	ErrInvalidCamera = errors.New("invalid camera spec")
)

// errNotConfigured marks an optional step with nothing to do.
var errNotConfigured = errors.New("not configured")
