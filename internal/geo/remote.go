package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
)

// RemoteTransformer delegates conversion to an HTTP geolocation service.
type RemoteTransformer struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRemoteTransformer creates a client for the geolocation service at baseURL.
func NewRemoteTransformer(baseURL, token string) *RemoteTransformer {
	return &RemoteTransformer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type spatialResponse struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// Transform posts the coordinate to /geo/transform and returns the spatial position.
// A 422 means the service rejected the coordinate; any other failure means it is unavailable.
func (c *RemoteTransformer) Transform(ctx context.Context, geo core.GeoCoordinate) (core.Vector3, error) {
	body, err := json.Marshal(geo)
	if err != nil {
		return core.Vector3{}, fmt.Errorf("%w: %w", ErrTransformFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/geo/transform", bytes.NewReader(body))
	if err != nil {
		return core.Vector3{}, fmt.Errorf("%w: failed to create request: %w", ErrTransformFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Vector3{}, fmt.Errorf("%w: %w: %w", ErrTransformFailure, ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		return core.Vector3{}, fmt.Errorf("%w: %w", ErrTransformFailure, ErrOutsideRegistration)
	default:
		return core.Vector3{}, fmt.Errorf("%w: %w: status %d", ErrTransformFailure, ErrServiceUnavailable, resp.StatusCode)
	}

	var out spatialResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.Vector3{}, fmt.Errorf("%w: malformed response: %w", ErrTransformFailure, err)
	}
	if out.X == nil || out.Y == nil || out.Z == nil {
		return core.Vector3{}, fmt.Errorf("%w: response missing components", ErrTransformFailure)
	}
	return core.Vector3{X: *out.X, Y: *out.Y, Z: *out.Z}, nil
}
