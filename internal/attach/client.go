// Package attach talks to the remote services behind imagery layers and reality models.
package attach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// ErrAttachmentFailure is wrapped by every error the client returns.
var ErrAttachmentFailure = errors.New("attachment failed")

// ErrMissingIdentifier is returned when a reality model has neither an ID nor a URL.
var ErrMissingIdentifier = errors.New("missing reality model identifier")

// Client resolves map layers and reality models against the attachment service.
type Client struct {
	baseURL    string
	token      string
	checkTiles bool
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTileCheck makes AttachMapLayer fetch tile 0/0/0 to check the layer is reachable.
func WithTileCheck() Option {
	return func(c *Client) {
		c.checkTiles = true
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a new attachment client.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Healthcheck checks if the attachment service is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// AttachMapLayer validates the layer and, with WithTileCheck, fetches its root tile.
func (c *Client) AttachMapLayer(ctx context.Context, layer core.MapLayer) error {
	tileURL, err := TileURL(layer, 0, 0, 0)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAttachmentFailure, err)
	}
	if !c.checkTiles {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create tile request: %w", ErrAttachmentFailure, err)
	}
	if layer.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+layer.AccessToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: tile check failed: %w", ErrAttachmentFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: tile check for %s returned status %d", ErrAttachmentFailure, layer.Name, resp.StatusCode)
	}
	return nil
}

type attachRequest struct {
	URL      string             `json:"url,omitempty"`
	Anchor   core.GeoCoordinate `json:"anchor"`
	Rotation core.Rotation      `json:"rotation"`
}

type attachResponse struct {
	Range *core.BoundingVolume `json:"range"`
}

// AttachRealityModel registers the model at its anchor and returns its
// bounding volume in scene coordinates.
func (c *Client) AttachRealityModel(ctx context.Context, model core.RealityModel) (core.BoundingVolume, error) {
	id := model.ID
	if id == "" && model.URL == "" {
		return core.BoundingVolume{}, fmt.Errorf("%w: %w", ErrAttachmentFailure, ErrMissingIdentifier)
	}
	if id == "" {
		id = "url"
	}
	if err := model.Anchor.Validate(); err != nil {
		return core.BoundingVolume{}, fmt.Errorf("%w: %w", ErrAttachmentFailure, err)
	}

	body, err := json.Marshal(attachRequest{URL: model.URL, Anchor: model.Anchor, Rotation: model.Rotation})
	if err != nil {
		return core.BoundingVolume{}, fmt.Errorf("%w: %w", ErrAttachmentFailure, err)
	}

	endpoint := c.baseURL + "/reality-models/" + url.PathEscape(id) + "/attach"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return core.BoundingVolume{}, fmt.Errorf("%w: failed to create request: %w", ErrAttachmentFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	token := model.AccessToken
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.BoundingVolume{}, fmt.Errorf("%w: attach request failed: %w", ErrAttachmentFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.BoundingVolume{}, fmt.Errorf("%w: attach %s returned status %d", ErrAttachmentFailure, id, resp.StatusCode)
	}

	var out attachResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.BoundingVolume{}, fmt.Errorf("%w: malformed response: %w", ErrAttachmentFailure, err)
	}
	if out.Range == nil || out.Range.IsNull() {
		return core.BoundingVolume{}, fmt.Errorf("%w: %s: empty range", ErrAttachmentFailure, id)
	}
	return *out.Range, nil
}
