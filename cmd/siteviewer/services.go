package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/internal/attach"
	"github.com/roeblinglabs/itwin-poc-2024/internal/catalog"
	"github.com/roeblinglabs/itwin-poc-2024/internal/config"
	"github.com/roeblinglabs/itwin-poc-2024/internal/dispatcher"
	"github.com/roeblinglabs/itwin-poc-2024/internal/geo"
	"github.com/roeblinglabs/itwin-poc-2024/internal/influx"
	"github.com/roeblinglabs/itwin-poc-2024/internal/logging"
	"github.com/roeblinglabs/itwin-poc-2024/internal/marker"
	"github.com/roeblinglabs/itwin-poc-2024/internal/uisink"
	"github.com/roeblinglabs/itwin-poc-2024/internal/viewer"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/streaming"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// services holds everything wired from config for one run.
type services struct {
	catalog      catalog.Source
	dispatcher   *dispatcher.Dispatcher
	state        *dispatcher.StateSink
	ui           *uisink.Sink
	reporter     *influx.Reporter
	orchestrator *viewer.Orchestrator
}

func initServices(ctx context.Context, vcfg config.ViewerConfig, viewportID string) (*services, error) {
	svc := &services{state: dispatcher.NewStateSink()}

	src, err := catalog.Open(ctx, config.GetCatalogConfig(), vcfg.Viewport.Markers, Logger)
	if err != nil {
		Logger.Error("Failed to open marker catalog, using configured markers", "error", err)
		src = catalog.Static(vcfg.Viewport.Markers)
	}
	svc.catalog = src

	transformer, err := newTransformer(config.GetTransformConfig())
	if err != nil {
		return nil, err
	}

	sinks := []dispatcher.Sink{svc.state}
	if uc := config.GetUISinkConfig(); uc.Enabled {
		ui := uisink.New(uisink.Config{URL: uc.URL, Secret: uc.Secret}, Logger)
		err := ui.Open(streaming.HelloPayload{
			ITwinID:    vcfg.ITwinID,
			IModelID:   vcfg.IModelID,
			ViewportID: viewportID,
		})
		if err != nil {
			_ = ui.Close()
			Logger.Warn("UI sink unavailable, clicks stay in-process", "error", err)
		} else {
			svc.ui = ui
			sinks = append(sinks, ui)
			Logger.Info("UI sink connected", "url", uc.URL)
		}
	}

	dc := config.GetDispatchConfig()
	opts := []dispatcher.Option{dispatcher.Logged(), dispatcher.Debounce(dc.Debounce)}
	if dc.BufferSize > 0 {
		opts = append(opts, dispatcher.Buffered(dc.BufferSize))
		if dc.Blocking {
			opts = append(opts, dispatcher.Blocking())
		}
	}
	svc.dispatcher, err = dispatcher.New(dispatcher.NewMultiSink(sinks...), Logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	deps := viewer.Dependencies{
		Registry: marker.NewRegistry(transformer, svc.dispatcher.Action(),
			marker.WithConcurrency(config.GetTransformConfig().Concurrency)),
		Gate:   config.GetGateOptions(),
		Logger: Logger,
	}
	if ac := config.GetAttachConfig(); ac.Enabled {
		var aopts []attach.Option
		if ac.CheckTile {
			aopts = append(aopts, attach.WithTileCheck())
		}
		client := attach.New(ac.ServerURL, ac.Token, aopts...)
		if err := client.Healthcheck(ctx); err != nil {
			Logger.Warn("Attachment service healthcheck failed", "url", ac.ServerURL, "error", err)
		}
		deps.Attacher = client
	}
	svc.orchestrator, err = viewer.New(deps)
	if err != nil {
		return nil, err
	}

	if ic := config.GetInfluxConfig(); ic.Enabled {
		zl := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().
			Level(zerologLevel(viper.GetString("logLevel")))
		backup := filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("%s_influx_backup_%s.gz", appName, SessionStartTime.Format("20060102_150405")))
		r := influx.NewReporter(ic, zl, backup)
		if err := r.Connect(ctx); err != nil {
			logging.NewZerologAdapter(zl).Error("Setup reports disabled", "error", err)
		} else {
			svc.reporter = r
		}
	}

	return svc, nil
}

func newTransformer(tc config.TransformConfig) (geo.Transformer, error) {
	switch tc.Mode {
	case "remote":
		Logger.Info("Using remote geolocation service", "url", tc.ServiceURL)
		return geo.NewRemoteTransformer(tc.ServiceURL, tc.Token), nil
	default:
		reg := geo.Registration{Origin: tc.Origin, Yaw: tc.Yaw}
		if tc.Extent != "" {
			extent, err := geo.ParseExtent(tc.Extent)
			if err != nil {
				return nil, fmt.Errorf("transform extent: %w", err)
			}
			reg.Extent = extent
		}
		frame, err := geo.NewLocalFrame(reg)
		if err != nil {
			return nil, fmt.Errorf("creating local frame: %w", err)
		}
		return frame, nil
	}
}

// publish forwards a finished setup report to the optional sinks.
func (s *services) publish(rep viewer.Report) {
	if s.reporter != nil {
		if err := s.reporter.Record(rep, time.Now()); err != nil {
			Logger.Warn("Failed to record setup report", "error", err)
		}
	}
	if s.ui != nil {
		failed := make([]string, 0, len(rep.Failed()))
		for _, res := range rep.Failed() {
			failed = append(failed, string(res.Step))
		}
		err := s.ui.PublishReport(streaming.SetupReportPayload{
			PassID:     rep.PassID,
			ViewportID: rep.ViewportID,
			Markers:    rep.Markers,
			Skipped:    len(rep.Skipped),
			Failed:     failed,
			Readiness:  rep.Readiness.String(),
			Canceled:   rep.Canceled,
			DurationMs: rep.Duration.Milliseconds(),
		})
		if err != nil {
			Logger.Warn("Failed to publish setup report", "error", err)
		}
	}
}

// closeOverlay hides the overlay in-process and in the connected UI.
// It reports whether an overlay was showing.
func (s *services) closeOverlay() (bool, error) {
	wasVisible := s.state.Visible()
	s.state.Hide()
	if s.ui != nil {
		if err := s.ui.HideOverlay(); err != nil {
			return wasVisible, fmt.Errorf("hiding overlay in UI: %w", err)
		}
	}
	return wasVisible, nil
}

func (s *services) Close() {
	s.dispatcher.Close()
	if s.ui != nil {
		_ = s.ui.Close()
	}
	if s.reporter != nil {
		if err := s.reporter.Close(); err != nil {
			Logger.Warn("Failed to close influx reporter", "error", err)
		}
	}
	if c, ok := s.catalog.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

func zerologLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
