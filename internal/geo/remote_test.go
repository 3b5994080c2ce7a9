package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRemoteTransformer_TrimsTrailingSlash(t *testing.T) {
	c := NewRemoteTransformer("http://localhost:5000/", "")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
}

func TestRemoteTransformer_Success(t *testing.T) {
	var got core.GeoCoordinate
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/transform", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"x": 1.5, "y": -2, "z": 3}`))
	}))
	defer server.Close()

	c := NewRemoteTransformer(server.URL, "tok")
	pos, err := c.Transform(context.Background(), core.GeoCoordinate{Latitude: 40, Longitude: -74, Height: 5})

	require.NoError(t, err)
	assert.Equal(t, core.Vector3{X: 1.5, Y: -2, Z: 3}, pos)
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, 40.0, got.Latitude)
	assert.Equal(t, -74.0, got.Longitude)
}

func TestRemoteTransformer_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := NewRemoteTransformer(server.URL, "").Transform(context.Background(), core.GeoCoordinate{})

	require.ErrorIs(t, err, ErrTransformFailure)
	assert.ErrorIs(t, err, ErrOutsideRegistration)
}

func TestRemoteTransformer_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewRemoteTransformer(server.URL, "").Transform(context.Background(), core.GeoCoordinate{})

	require.ErrorIs(t, err, ErrTransformFailure)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestRemoteTransformer_ServerDown(t *testing.T) {
	c := NewRemoteTransformer("http://localhost:59999", "") // unlikely to be listening

	_, err := c.Transform(context.Background(), core.GeoCoordinate{})

	require.ErrorIs(t, err, ErrTransformFailure)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestRemoteTransformer_MissingComponents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"x": 1}`))
	}))
	defer server.Close()

	_, err := NewRemoteTransformer(server.URL, "").Transform(context.Background(), core.GeoCoordinate{})

	require.ErrorIs(t, err, ErrTransformFailure)
}
