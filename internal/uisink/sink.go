// Package uisink forwards overlay requests and setup summaries to a browser
// UI over a WebSocket.
package uisink

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/internal/dispatcher"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/streaming"
)

var (
	ErrUnavailable = errors.New("ui sink unavailable")
	ErrClosed      = errors.New("ui sink closed")
	ErrQueueFull   = errors.New("ui sink queue full")
)

// Config holds UI sink settings.
type Config struct {
	URL    string
	Secret string
	// Backoff is the first reconnect delay. Zero means one second.
	Backoff time.Duration
}

// Sink is a dispatcher.Sink that streams messages to the UI.
type Sink struct {
	conn *connection
	cfg  Config
}

var _ dispatcher.Sink = (*Sink)(nil)

// New creates a sink. Call Open before sending.
func New(cfg Config, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		conn: newConnection(logger.With("component", "uisink"), cfg.Backoff),
		cfg:  cfg,
	}
}

// Open connects and announces the session, waiting for the UI to ack it.
func (s *Sink) Open(hello streaming.HelloPayload) error {
	data, err := marshalEnvelope(streaming.TypeHello, hello)
	if err != nil {
		return err
	}
	s.conn.mu.Lock()
	s.conn.hello = data
	s.conn.mu.Unlock()

	if err := s.conn.dial(s.cfg.URL, s.cfg.Secret); err != nil {
		return err
	}
	return s.conn.sendAndWait(data, streaming.TypeHello, ackTimeout)
}

// Close says goodbye if connected, then disconnects. It also releases a sink
// whose Open failed.
func (s *Sink) Close() error {
	if s.conn.current() != nil {
		if data, err := marshalEnvelope(streaming.TypeGoodbye, nil); err == nil {
			_ = s.conn.sendAndWait(data, streaming.TypeGoodbye, time.Second)
		}
	}
	return s.conn.close()
}

// ShowOverlay sends a show_overlay message for the clicked marker.
func (s *Sink) ShowOverlay(e dispatcher.Event) error {
	return s.sendEnvelope(streaming.TypeShowOverlay, streaming.OverlayPayload{
		MarkerID:   e.MarkerID,
		Kind:       string(e.Kind),
		Title:      e.Title,
		ContentURL: e.ContentURL,
		Timestamp:  e.Timestamp,
	})
}

// HideOverlay asks the UI to close the overlay.
func (s *Sink) HideOverlay() error {
	return s.sendEnvelope(streaming.TypeHideOverlay, nil)
}

// PublishReport sends a setup pass summary.
func (s *Sink) PublishReport(r streaming.SetupReportPayload) error {
	return s.sendEnvelope(streaming.TypeSetupReport, r)
}

func (s *Sink) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	if err := s.conn.send(data); err != nil {
		return fmt.Errorf("%s: %w", msgType, err)
	}
	return nil
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
