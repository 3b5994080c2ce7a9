// Package influx records viewport setup reports as InfluxDB points. When the
// server cannot be reached the points go to a gzip line-protocol backup file.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/roeblinglabs/itwin-poc-2024/internal/config"
	"github.com/roeblinglabs/itwin-poc-2024/internal/viewer"
	"github.com/rs/zerolog"
)

// Measurement names.
const (
	MeasurementSetup = "viewer_setup"
	MeasurementStep  = "viewer_step"
)

const retentionSeconds = 60 * 60 * 24 * 90

// ErrDisabled is returned by Connect when reporting is switched off.
var ErrDisabled = errors.New("influx reporting disabled")

// Reporter writes setup reports to one bucket.
type Reporter struct {
	cfg        config.InfluxConfig
	log        zerolog.Logger
	backupPath string

	mu         sync.Mutex
	client     influxdb2.Client
	writer     influxdb2_api.WriteAPI
	backupFile *os.File
	backup     *gzip.Writer
	valid      bool
}

// NewReporter creates a reporter. backupPath receives points while the
// server is unreachable.
func NewReporter(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Reporter {
	return &Reporter{
		cfg:        cfg,
		log:        log.With().Str("component", "influx").Logger(),
		backupPath: backupPath,
	}
}

// Connect pings the server and prepares the bucket. A failed ping is not an
// error: the reporter falls back to the backup file.
func (r *Reporter) Connect(ctx context.Context) error {
	if !r.cfg.Enabled {
		return ErrDisabled
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", r.cfg.Protocol, r.cfg.Host, r.cfg.Port),
		r.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000),
	)

	running, err := r.client.Ping(ctx)
	if err != nil || !running {
		r.log.Warn().Err(err).Str("backupPath", r.backupPath).
			Msg("InfluxDB unreachable, writing setup reports to backup file")
		return r.openBackup()
	}

	if err := r.ensureBucket(ctx); err != nil {
		return err
	}

	r.writer = r.client.WriteAPI(r.cfg.Org, r.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			r.log.Error().Err(writeErr).Str("bucket", r.cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(r.writer.Errors())

	r.valid = true
	r.log.Info().Str("bucket", r.cfg.Bucket).Msg("InfluxDB reporter initialized")
	return nil
}

func (r *Reporter) openBackup() error {
	if r.backup != nil {
		return nil
	}
	file, err := os.OpenFile(r.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	r.backupFile = file
	r.backup = gzip.NewWriter(file)
	return nil
}

func (r *Reporter) ensureBucket(ctx context.Context) error {
	orgs := r.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, r.cfg.Org)
	if err != nil {
		r.log.Info().Str("org", r.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, r.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", r.cfg.Org, err)
		}
	}

	buckets := r.client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, r.cfg.Bucket); err == nil {
		return nil
	}
	r.log.Info().Str("bucket", r.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = buckets.CreateBucketWithName(ctx, org, r.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: retentionSeconds,
	})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", r.cfg.Bucket, err)
	}
	return nil
}

// Record writes the points for one report.
func (r *Reporter) Record(rep viewer.Report, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range Points(rep, at) {
		if err := r.writePoint(p); err != nil {
			return err
		}
	}
	r.log.Debug().Str("pass", rep.PassID).Msg("Setup report recorded")
	return nil
}

func (r *Reporter) writePoint(p *influxdb2_write.Point) error {
	if r.valid {
		r.writer.WritePoint(p)
		return nil
	}
	if r.backup == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	// PointToLineProtocol already terminates the line
	line := strings.TrimRight(influxdb2_write.PointToLineProtocol(p, time.Nanosecond), "\n") + "\n"
	if _, err := r.backup.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer != nil {
		r.writer.Flush()
	}
	if r.client != nil {
		r.client.Close()
	}
	var errs []error
	if r.backup != nil {
		errs = append(errs, r.backup.Close())
		errs = append(errs, r.backupFile.Close())
		r.backup = nil
	}
	r.valid = false
	return errors.Join(errs...)
}

// Points converts a report into one setup point plus one point per step.
// Volume fields are only written for a non-null volume.
func Points(rep viewer.Report, at time.Time) []*influxdb2_write.Point {
	setup := influxdb2_write.NewPointWithMeasurement(MeasurementSetup).
		AddTag("viewport", rep.ViewportID).
		AddTag("readiness", rep.Readiness.String()).
		AddTag("canceled", fmt.Sprint(rep.Canceled)).
		AddField("pass", rep.PassID).
		AddField("markers", rep.Markers).
		AddField("skipped", len(rep.Skipped)).
		AddField("failed_steps", len(rep.Failed())).
		AddField("discarded", rep.Discarded).
		AddField("duration_ms", float64(rep.Duration)/float64(time.Millisecond)).
		SetTime(at)

	if !rep.Volume.IsNull() {
		setup.
			AddField("volume_low_x", rep.Volume.Low.X).
			AddField("volume_low_y", rep.Volume.Low.Y).
			AddField("volume_low_z", rep.Volume.Low.Z).
			AddField("volume_high_x", rep.Volume.High.X).
			AddField("volume_high_y", rep.Volume.High.Y).
			AddField("volume_high_z", rep.Volume.High.Z)
	}

	points := []*influxdb2_write.Point{setup}
	for _, step := range rep.Steps {
		status := "ok"
		switch {
		case step.Err != nil:
			status = "failed"
		case step.Skipped:
			status = "skipped"
		}
		points = append(points, influxdb2_write.NewPointWithMeasurement(MeasurementStep).
			AddTag("viewport", rep.ViewportID).
			AddTag("step", string(step.Step)).
			AddTag("status", status).
			AddField("pass", rep.PassID).
			AddField("duration_ms", float64(step.Duration)/float64(time.Millisecond)).
			SetTime(at))
	}
	return points
}
