package viewer

import (
	"context"

	"github.com/roeblinglabs/itwin-poc-2024/internal/marker"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// Viewport is the host's handle on one 3D view. The orchestrator only
// configures it; rendering and tile streaming stay with the host.
type Viewport interface {
	marker.DecoratorHost

	ID() string
	SetBackgroundMap(bg core.BackgroundMap) error
	AttachMapLayer(layer core.MapLayer) error
	AttachRealityModel(model core.RealityModel) error
	LookAt(pose core.CameraPose) error
	// FitView frames vol. A null volume asks the host to fit all content.
	FitView(vol core.BoundingVolume) error
	// ContentStreamed reports whether every tile the current view needs has loaded.
	ContentStreamed() bool
}

// Attacher resolves remote layers before they are handed to the viewport.
// attach.Client is the production implementation.
type Attacher interface {
	AttachMapLayer(ctx context.Context, layer core.MapLayer) error
	AttachRealityModel(ctx context.Context, model core.RealityModel) (core.BoundingVolume, error)
}
