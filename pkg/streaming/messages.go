// Package streaming defines the messages exchanged with the UI over WebSocket.
package streaming

import (
	"encoding/json"
	"time"
)

// Message types of the UI protocol.
const (
	TypeHello       = "hello"
	TypeShowOverlay = "show_overlay"
	TypeHideOverlay = "hide_overlay"
	TypeSetupReport = "setup_report"
	TypeGoodbye     = "goodbye"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// HelloPayload identifies the viewer session. It is replayed after a reconnect.
type HelloPayload struct {
	ITwinID    string `json:"iTwinId,omitempty"`
	IModelID   string `json:"iModelId,omitempty"`
	ViewportID string `json:"viewportId"`
}

// OverlayPayload asks the UI to show the content bound to a marker.
type OverlayPayload struct {
	MarkerID   string    `json:"markerId"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	ContentURL string    `json:"contentUrl"`
	Timestamp  time.Time `json:"timestamp"`
}

// SetupReportPayload summarizes one viewport setup pass.
type SetupReportPayload struct {
	PassID     string   `json:"passId"`
	ViewportID string   `json:"viewportId"`
	Markers    int      `json:"markers"`
	Skipped    int      `json:"skipped"`
	Failed     []string `json:"failed,omitempty"`
	Readiness  string   `json:"readiness"`
	Canceled   bool     `json:"canceled"`
	DurationMs int64    `json:"durationMs"`
}
