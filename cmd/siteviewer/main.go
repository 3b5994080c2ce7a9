package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/internal/config"
	"github.com/roeblinglabs/itwin-poc-2024/internal/geo"
	"github.com/roeblinglabs/itwin-poc-2024/internal/logging"
	"github.com/roeblinglabs/itwin-poc-2024/internal/marker"
	intOtel "github.com/roeblinglabs/itwin-poc-2024/internal/otel"
	"github.com/roeblinglabs/itwin-poc-2024/internal/viewer"
	"github.com/roeblinglabs/itwin-poc-2024/internal/viewport/headless"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildVersion can be set at build time via ldflags.
var (
	BuildVersion = "0.0.1"
	BuildDate    = "unknown"
)

const appName = "siteviewer"

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime = time.Now()
)

type flags struct {
	configDir  string
	logLevel   string
	viewportID string
	click      string
	origin     string
	hold       bool
	close      bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.StringVarP(&f.configDir, "config-dir", "c", ".", "directory containing "+config.FileName)
	fs.StringVar(&f.logLevel, "log-level", "", "override the configured log level")
	fs.StringVar(&f.viewportID, "viewport", "main", "ID of the headless viewport")
	fs.StringVar(&f.click, "click", "", "simulate a primary click on this marker after setup")
	fs.StringVar(&f.origin, "origin", "", `override the local frame origin as "long,lat[,height]"`)
	fs.BoolVar(&f.hold, "hold", false, "keep the viewport attached until interrupted")
	fs.BoolVar(&f.close, "close", false, "close the overlay opened by --click before detaching")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(f); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f flags) error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(f.configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", f.configDir)
	}
	if f.logLevel != "" {
		viper.Set("logLevel", f.logLevel)
	}
	if f.origin != "" {
		origin, err := geo.GeoFromString(f.origin)
		if err != nil {
			return fmt.Errorf("--origin %q: %w", f.origin, err)
		}
		viper.Set("transform.origin.latitude", origin.Latitude)
		viper.Set("transform.origin.longitude", origin.Longitude)
		viper.Set("transform.origin.height", origin.Height)
	}

	vcfg, err := config.GetViewerConfig()
	if err != nil {
		return err
	}

	logFile, err := initLogging(vcfg)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}
	defer shutdownTelemetry()

	Logger.Info("Site viewer starting",
		"version", BuildVersion,
		"buildDate", BuildDate,
		"iTwinId", vcfg.ITwinID,
		"iModelId", vcfg.IModelID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithScope(ctx, "session", SessionStartTime.Format("20060102_150405"))

	svc, err := initServices(ctx, vcfg, f.viewportID)
	if err != nil {
		return err
	}
	defer svc.Close()

	defs, err := svc.catalog.Markers(ctx)
	if err != nil {
		Logger.Error("Failed to load marker catalog, continuing without markers", "error", err)
	}
	vcfg.Viewport.Markers = defs

	vp := headless.New(f.viewportID)
	session := viewer.NewSession(svc.orchestrator)
	_, report := session.Attach(ctx, vp, vcfg.Viewport)
	svc.publish(report)

	for _, g := range vp.Render() {
		Logger.InfoContext(ctx, "Marker drawn", "id", g.ID, "title", g.Title, "position", g.Position)
	}

	if f.click != "" {
		if !vp.Click(f.click, marker.ButtonPrimary) {
			Logger.WarnContext(ctx, "No marker handled the click", "marker", f.click)
		} else if ev, ok := svc.state.Current(); ok {
			Logger.InfoContext(ctx, "Overlay shown", "title", ev.Title, "url", ev.ContentURL)
		}
	}
	if f.close {
		shown, err := svc.closeOverlay()
		if err != nil {
			Logger.WarnContext(ctx, "Failed to close overlay", "error", err)
		} else if shown {
			Logger.InfoContext(ctx, "Overlay closed")
		}
	}

	if f.hold {
		Logger.Info("Viewport attached, waiting for interrupt")
		<-ctx.Done()
	}
	session.Detach()
	SlogManager.WriteLog("viewer", "Viewport detached", "INFO")
	return nil
}

// initLogging reconfigures logging from the loaded config: a session log
// file, an optional GELF sink, the OTel bridge and project attributes.
func initLogging(vcfg config.ViewerConfig) (*os.File, error) {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}
	logPath := logging.LogFilePath(logsDir, appName, SessionStartTime)
	logFile, err := os.OpenFile(filepath.Clean(logPath), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.SetAttrs(
		slog.String("iTwinId", vcfg.ITwinID),
		slog.String("iModelId", vcfg.IModelID),
	)

	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGELFWriter(gl.Address)
		if err != nil {
			Logger.Warn("Graylog unavailable, continuing without it", "error", err)
		} else {
			SlogManager.AddSink(w)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	otelCfg := config.GetOTelConfig()
	OTelProvider, err = intOtel.New(context.Background(), intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: BuildVersion,
		BatchTimeout:   otelCfg.BatchTimeout,
		LogWriter:      logFile,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
		Attributes: map[string]string{
			"itwin.id":  vcfg.ITwinID,
			"imodel.id": vcfg.IModelID,
		},
	})
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
	} else if OTelProvider.Enabled() {
		otelLogProvider = OTelProvider.LoggerProvider()
		Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
	}

	SlogManager.Setup(logFile, viper.GetString("logLevel"), otelLogProvider)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)
	Logger.Info("Logging to file", "path", logPath)
	return logFile, nil
}

func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if SlogManager != nil {
		_ = SlogManager.Flush(ctx)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "otel shutdown:", err)
		}
	}
}
