// Package viewer configures a viewport on attach: background map, imagery
// layer, reality model, markers and camera, in that order. Each step is
// isolated, so a failure degrades the scene instead of aborting the pass.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roeblinglabs/itwin-poc-2024/internal/marker"
	"github.com/roeblinglabs/itwin-poc-2024/internal/readiness"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// Dependencies holds what the orchestrator needs to run a pass.
type Dependencies struct {
	Registry *marker.Registry
	// Attacher is optional. Without it map layers go straight to the
	// viewport and reality models cannot be attached.
	Attacher Attacher
	Gate     readiness.Options
	Logger   *slog.Logger
}

// Orchestrator runs setup passes. It keeps one overlay handle per viewport ID
// so a second pass replaces the markers of the first.
type Orchestrator struct {
	registry *marker.Registry
	attacher Attacher
	gate     readiness.Options
	logger   *slog.Logger
	metrics  *metrics

	mu      sync.Mutex
	handles map[string]*marker.OverlayHandle
}

// New creates an orchestrator.
func New(deps Dependencies) (*Orchestrator, error) {
	if deps.Registry == nil {
		return nil, errors.New("viewer: marker registry is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}
	return &Orchestrator{
		registry: deps.Registry,
		attacher: deps.Attacher,
		gate:     deps.Gate,
		logger:   logger,
		metrics:  m,
		handles:  make(map[string]*marker.OverlayHandle),
	}, nil
}

// pass is the state of one Setup call.
type pass struct {
	ctx       context.Context
	vp        Viewport
	cfg       core.ViewportConfig
	logger    *slog.Logger
	report    Report
	volume    core.BoundingVolume
	positions []core.Vector3
	handle    *marker.OverlayHandle
}

// Setup applies cfg to vp. It never fails as a whole: step failures are
// logged and recorded in the returned Report. If ctx ends before the pass
// completes, anything the pass registered is torn down and the returned
// handle is nil.
func (o *Orchestrator) Setup(ctx context.Context, vp Viewport, cfg core.ViewportConfig) (*marker.OverlayHandle, Report) {
	start := time.Now()
	id := uuid.NewString()
	p := &pass{
		ctx:    ctx,
		vp:     vp,
		cfg:    cfg,
		logger: o.logger.With("pass", id, "viewport", vp.ID()),
		report: Report{
			PassID:     id,
			ViewportID: vp.ID(),
			Readiness:  core.Loading,
			Volume:     core.NullVolume(),
		},
		volume: core.NullVolume(),
	}
	p.logger.InfoContext(p.ctx, "viewport setup started", "markers", len(cfg.Markers), "camera", cfg.Camera.Mode)

	o.step(p, StepBackgroundMap, o.applyBackgroundMap)
	o.step(p, StepMapLayer, o.attachMapLayer)
	o.step(p, StepRealityModel, o.attachRealityModel)
	o.step(p, StepMarkers, o.registerMarkers)
	o.step(p, StepCamera, o.frameCamera)

	handle := p.handle
	if ctx.Err() != nil {
		p.report.Canceled = true
		if handle != nil {
			o.release(vp.ID(), handle)
			handle = nil
		}
		p.logger.DebugContext(p.ctx, "viewport setup abandoned", "error", ErrTeardownRace, "discarded", p.report.Discarded)
	}

	p.report.Duration = time.Since(start)
	o.metrics.setupDone(context.WithoutCancel(ctx), p.report)

	if !p.report.Canceled {
		p.logger.InfoContext(p.ctx, "viewport setup finished",
			"markers", p.report.Markers,
			"skipped", len(p.report.Skipped),
			"failedSteps", len(p.report.Failed()),
			"readiness", p.report.Readiness.String(),
			"duration", p.report.Duration,
		)
	}
	return handle, p.report
}

// Handle returns the active overlay handle for a viewport, if any.
func (o *Orchestrator) Handle(viewportID string) (*marker.OverlayHandle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.handles[viewportID]
	return h, ok
}

// Teardown unregisters the overlay of a viewport. It does nothing for a
// viewport without one.
func (o *Orchestrator) Teardown(viewportID string) {
	o.mu.Lock()
	h := o.handles[viewportID]
	delete(o.handles, viewportID)
	o.mu.Unlock()

	if h != nil {
		h.Teardown()
	}
}

// release tears down h only if it is still the handle recorded for the viewport.
func (o *Orchestrator) release(viewportID string, h *marker.OverlayHandle) {
	o.mu.Lock()
	if o.handles[viewportID] == h {
		delete(o.handles, viewportID)
	}
	o.mu.Unlock()
	h.Teardown()
}

func (o *Orchestrator) step(p *pass, name Step, fn func(*pass) error) {
	res := StepResult{Step: name}
	if p.ctx.Err() != nil {
		res.Skipped = true
		p.report.Steps = append(p.report.Steps, res)
		return
	}

	begin := time.Now()
	err := fn(p)
	res.Duration = time.Since(begin)

	switch {
	case errors.Is(err, errNotConfigured):
		res.Skipped = true
	case p.ctx.Err() != nil:
		res.Skipped = true
		p.report.Discarded++
		p.logger.DebugContext(p.ctx, "discarding step result", "step", name, "error", fmt.Errorf("%w: %w", ErrTeardownRace, p.ctx.Err()))
	case err != nil:
		res.Err = err
		p.logger.WarnContext(p.ctx, "setup step failed", "step", name, "error", err)
		o.metrics.stepFailed(p.ctx, name)
	}
	p.report.Steps = append(p.report.Steps, res)
}

func (o *Orchestrator) applyBackgroundMap(p *pass) error {
	if err := p.vp.SetBackgroundMap(p.cfg.BackgroundMap); err != nil {
		return fmt.Errorf("set background map %s: %w", p.cfg.BackgroundMap.Provider, err)
	}
	return nil
}

func (o *Orchestrator) attachMapLayer(p *pass) error {
	layer := p.cfg.MapLayer
	if layer == nil {
		return errNotConfigured
	}
	if o.attacher != nil {
		err := o.attacher.AttachMapLayer(p.ctx, *layer)
		if ctxErr := p.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return asAttachment(err)
		}
	}
	if err := p.vp.AttachMapLayer(*layer); err != nil {
		return fmt.Errorf("%w: viewport rejected map layer %s: %w", ErrAttachmentFailure, layer.Name, err)
	}
	p.logger.InfoContext(p.ctx, "map layer attached", "name", layer.Name, "format", layer.FormatID)
	return nil
}

func (o *Orchestrator) attachRealityModel(p *pass) error {
	model := p.cfg.RealityModel
	if model == nil {
		return errNotConfigured
	}
	if o.attacher == nil {
		return fmt.Errorf("%w: no attachment service for reality model %s", ErrAttachmentFailure, model.ID)
	}
	vol, err := o.attacher.AttachRealityModel(p.ctx, *model)
	// the viewport may be gone by the time the service answers
	if ctxErr := p.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return asAttachment(err)
	}
	if err := p.vp.AttachRealityModel(*model); err != nil {
		return fmt.Errorf("%w: viewport rejected reality model %s: %w", ErrAttachmentFailure, model.ID, err)
	}
	p.volume = vol
	p.report.Volume = vol
	p.logger.InfoContext(p.ctx, "reality model attached", "id", model.ID, "name", model.Name)
	return nil
}

func (o *Orchestrator) registerMarkers(p *pass) error {
	markers, failures := o.registry.Create(p.ctx, p.cfg.Markers)

	o.mu.Lock()
	defer o.mu.Unlock()
	// Teardown holds o.mu too: a canceled pass never registers after it.
	if err := p.ctx.Err(); err != nil {
		return err
	}

	id := p.vp.ID()
	if h, ok := o.handles[id]; ok && h.Active() {
		h.Replace(markers)
		p.handle = h
	} else {
		p.handle = marker.Register(p.vp, markers)
		o.handles[id] = p.handle
	}

	p.positions = make([]core.Vector3, len(markers))
	for i, m := range markers {
		p.positions[i] = m.Position()
	}
	p.report.Markers = len(markers)
	p.report.Skipped = failures
	o.metrics.registered.Add(p.ctx, int64(len(markers)))

	for _, err := range failures {
		p.logger.WarnContext(p.ctx, "marker skipped", "error", err)
	}
	return errors.Join(failures...)
}

func (o *Orchestrator) frameCamera(p *pass) error {
	spec := p.cfg.Camera
	mode := spec.Mode
	if mode == "" {
		mode = core.CameraFit
	}

	switch mode {
	case core.CameraExplicit:
		if spec.Pose == nil {
			return fmt.Errorf("%w: explicit mode without a pose", ErrInvalidCamera)
		}
		pose := *spec.Pose
		if pose.Up == (core.Vector3{}) {
			pose.Up = core.DefaultUp
		}
		return p.vp.LookAt(pose)
	case core.CameraCentroid:
		if pose, ok := CentroidPose(p.positions, spec.Offset); ok {
			return p.vp.LookAt(pose)
		}
		p.logger.InfoContext(p.ctx, "no markers to centre on, fitting view instead")
		return o.fitView(p)
	case core.CameraFit:
		return o.fitView(p)
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidCamera, mode)
	}
}

// fitView waits for the scene to stream, then frames the reality model and
// markers. A timeout still frames; the timeout is returned afterwards.
func (o *Orchestrator) fitView(p *pass) error {
	gate := readiness.NewGate(o.gate)
	state, waitErr := gate.Run(p.ctx, p.vp.ContentStreamed)
	p.report.Readiness = state
	if err := p.ctx.Err(); err != nil {
		return err
	}

	if err := p.vp.FitView(FitVolume(p.volume, p.positions)); err != nil {
		return fmt.Errorf("fit view: %w", err)
	}
	if state == core.TimedOut {
		return fmt.Errorf("framed without full content after %s: %w", gate.Options().Ceiling, waitErr)
	}
	return nil
}

func asAttachment(err error) error {
	if errors.Is(err, ErrAttachmentFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAttachmentFailure, err)
}
