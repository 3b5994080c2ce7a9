package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/internal/readiness"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "siteviewer.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. SITEVIEWER_LOGLEVEL.
const EnvPrefix = "SITEVIEWER"

// MapboxTemplate is the Mapbox streets tile endpoint. {key} is the access token.
const MapboxTemplate = "https://api.mapbox.com/styles/v1/mapbox/streets-v11/tiles/{z}/{x}/{y}?access_token={key}"

// ViewerConfig is the project and the viewport configuration applied on attach.
type ViewerConfig struct {
	ITwinID  string              `json:"iTwinId" mapstructure:"iTwinId"`
	IModelID string              `json:"iModelId" mapstructure:"iModelId"`
	Viewport core.ViewportConfig `json:"viewport" mapstructure:"viewport"`
}

// TransformConfig selects and configures the geographic transformer.
type TransformConfig struct {
	// Mode is "local" for the in-process frame or "remote" for the geolocation service.
	Mode        string             `json:"mode" mapstructure:"mode"`
	Origin      core.GeoCoordinate `json:"origin" mapstructure:"origin"`
	Yaw         float64            `json:"yaw" mapstructure:"yaw"`
	Extent      string             `json:"extent" mapstructure:"extent"`
	ServiceURL  string             `json:"serviceUrl" mapstructure:"serviceUrl"`
	Token       string             `json:"token" mapstructure:"token"`
	Concurrency int                `json:"concurrency" mapstructure:"concurrency"`
}

// AttachConfig holds remote attachment service settings.
type AttachConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	Token     string `json:"token" mapstructure:"token"`
	CheckTile bool   `json:"checkTile" mapstructure:"checkTile"`
}

// DispatchConfig holds click dispatch settings.
type DispatchConfig struct {
	BufferSize int           `json:"bufferSize" mapstructure:"bufferSize"`
	Blocking   bool          `json:"blocking" mapstructure:"blocking"`
	Debounce   time.Duration `json:"debounce" mapstructure:"debounce"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GraylogConfig holds GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// SQLiteConfig holds settings for the SQLite catalog.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// PostgresConfig holds settings for the Postgres catalog.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// CatalogConfig selects where marker definitions come from.
type CatalogConfig struct {
	// Type is "config", "sqlite" or "postgres".
	Type     string         `json:"type" mapstructure:"type"`
	SiteID   string         `json:"siteId" mapstructure:"siteId"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// InfluxConfig holds InfluxDB settings for setup reports.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// UISinkConfig holds the WebSocket UI sink settings.
type UISinkConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

// SetDefaults registers every default value and environment binding. Load
// calls it; it is exported so a missing config file can still leave defaults in place.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("viewer.iTwinId", "")
	viper.SetDefault("viewer.iModelId", "")
	viper.SetDefault("viewer.viewport.backgroundMap.provider", "BingProvider")
	viper.SetDefault("viewer.viewport.backgroundMap.mapType", "Hybrid")
	viper.SetDefault("viewer.viewport.backgroundMap.applyTerrain", false)
	viper.SetDefault("viewer.viewport.backgroundMap.nonLocatable", false)
	viper.SetDefault("viewer.viewport.mapLayer", map[string]any{
		"formatId":    "MapboxImagery",
		"name":        "Mapbox Layer",
		"urlTemplate": MapboxTemplate,
	})
	viper.SetDefault("viewer.viewport.camera.mode", string(core.CameraFit))
	viper.SetDefault("viewer.viewport.markers", []map[string]any{
		{
			"id":         "shore-camera-1",
			"kind":       string(core.KindCamera),
			"label":      "Shore Camera 1",
			"placement":  map[string]any{"local": map[string]any{"x": -10.0, "y": 20.0, "z": 5.0}},
			"contentUrl": "https://www.youtube.com/embed/HZOfR7NVNtA?autoplay=1",
			"size":       map[string]any{"x": 40.0, "y": 40.0},
		},
	})

	viper.SetDefault("keys.mapbox", "")
	viper.SetDefault("keys.cesiumIon", "")

	viper.SetDefault("gate.interval", readiness.DefaultInterval)
	viper.SetDefault("gate.ceiling", readiness.DefaultCeiling)

	viper.SetDefault("transform.mode", "local")
	viper.SetDefault("transform.origin.latitude", 0.0)
	viper.SetDefault("transform.origin.longitude", 0.0)
	viper.SetDefault("transform.origin.height", 0.0)
	viper.SetDefault("transform.yaw", 0.0)
	viper.SetDefault("transform.extent", "")
	viper.SetDefault("transform.serviceUrl", "http://localhost:5000")
	viper.SetDefault("transform.token", "")
	viper.SetDefault("transform.concurrency", 8)

	viper.SetDefault("attach.enabled", false)
	viper.SetDefault("attach.serverUrl", "http://localhost:5000")
	viper.SetDefault("attach.token", "")
	viper.SetDefault("attach.checkTile", false)

	viper.SetDefault("dispatch.bufferSize", 0)
	viper.SetDefault("dispatch.blocking", false)
	viper.SetDefault("dispatch.debounce", "250ms")

	viper.SetDefault("catalog.type", "config")
	viper.SetDefault("catalog.siteId", "default")
	viper.SetDefault("catalog.sqlite.path", "./siteviewer.db")
	viper.SetDefault("catalog.postgres.host", "localhost")
	viper.SetDefault("catalog.postgres.port", "5432")
	viper.SetDefault("catalog.postgres.username", "postgres")
	viper.SetDefault("catalog.postgres.password", "postgres")
	viper.SetDefault("catalog.postgres.database", "siteviewer")
	viper.SetDefault("catalog.postgres.sslMode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "siteviewer")
	viper.SetDefault("influx.bucket", "viewer_setup")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("uisink.enabled", false)
	viper.SetDefault("uisink.url", "ws://localhost:5000/ws")
	viper.SetDefault("uisink.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "site-viewer")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// names used by the web application's environment
	_ = viper.BindEnv("viewer.iTwinId", "IMJS_ITWIN_ID")
	_ = viper.BindEnv("viewer.iModelId", "IMJS_IMODEL_ID")
	_ = viper.BindEnv("keys.mapbox", "REACT_APP_IMJS_MAPBOX_MAPS_KEY")
	_ = viper.BindEnv("keys.cesiumIon", "REACT_APP_IMJS_CESIUM_ION_KEY")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetViewerConfig returns the viewport configuration with access keys filled
// in from the keys section where the layer or model does not set its own.
func GetViewerConfig() (ViewerConfig, error) {
	// Unmarshal merges file values over nested defaults; UnmarshalKey would not.
	var wrap struct {
		Viewer ViewerConfig `mapstructure:"viewer"`
	}
	if err := viper.Unmarshal(&wrap); err != nil {
		return ViewerConfig{}, fmt.Errorf("decoding viewer config: %w", err)
	}
	cfg := wrap.Viewer

	if layer := cfg.Viewport.MapLayer; layer != nil && layer.AccessKey == "" {
		layer.AccessKey = viper.GetString("keys.mapbox")
	}
	if model := cfg.Viewport.RealityModel; model != nil && model.AccessToken == "" {
		model.AccessToken = viper.GetString("keys.cesiumIon")
	}
	return cfg, nil
}

// GetGateOptions returns the scene-ready poll interval and ceiling.
func GetGateOptions() readiness.Options {
	return readiness.Options{
		Interval: viper.GetDuration("gate.interval"),
		Ceiling:  viper.GetDuration("gate.ceiling"),
	}
}

// GetTransformConfig returns the geographic transformer settings.
func GetTransformConfig() TransformConfig {
	return TransformConfig{
		Mode: viper.GetString("transform.mode"),
		Origin: core.GeoCoordinate{
			Latitude:  viper.GetFloat64("transform.origin.latitude"),
			Longitude: viper.GetFloat64("transform.origin.longitude"),
			Height:    viper.GetFloat64("transform.origin.height"),
		},
		Yaw:         viper.GetFloat64("transform.yaw"),
		Extent:      viper.GetString("transform.extent"),
		ServiceURL:  viper.GetString("transform.serviceUrl"),
		Token:       viper.GetString("transform.token"),
		Concurrency: viper.GetInt("transform.concurrency"),
	}
}

// GetAttachConfig returns the attachment service settings.
func GetAttachConfig() AttachConfig {
	return AttachConfig{
		Enabled:   viper.GetBool("attach.enabled"),
		ServerURL: viper.GetString("attach.serverUrl"),
		Token:     viper.GetString("attach.token"),
		CheckTile: viper.GetBool("attach.checkTile"),
	}
}

// GetDispatchConfig returns the click dispatch settings.
func GetDispatchConfig() DispatchConfig {
	return DispatchConfig{
		BufferSize: viper.GetInt("dispatch.bufferSize"),
		Blocking:   viper.GetBool("dispatch.blocking"),
		Debounce:   viper.GetDuration("dispatch.debounce"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetCatalogConfig returns the marker catalog settings.
func GetCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Type:   viper.GetString("catalog.type"),
		SiteID: viper.GetString("catalog.siteId"),
		SQLite: SQLiteConfig{
			Path: viper.GetString("catalog.sqlite.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("catalog.postgres.host"),
			Port:     viper.GetString("catalog.postgres.port"),
			Username: viper.GetString("catalog.postgres.username"),
			Password: viper.GetString("catalog.postgres.password"),
			Database: viper.GetString("catalog.postgres.database"),
			SSLMode:  viper.GetString("catalog.postgres.sslMode"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetUISinkConfig returns the WebSocket UI sink settings.
func GetUISinkConfig() UISinkConfig {
	return UISinkConfig{
		Enabled: viper.GetBool("uisink.enabled"),
		URL:     viper.GetString("uisink.url"),
		Secret:  viper.GetString("uisink.secret"),
	}
}
