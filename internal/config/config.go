package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/meetz/fansession/internal/log"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "MEETZ_"

type Config struct {
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`
	Auth   AuthConfig   `yaml:"auth" envPrefix:"AUTH_"`
	Stream StreamConfig `yaml:"stream" envPrefix:"STREAM_"`
	Photo  PhotoConfig  `yaml:"photo" envPrefix:"PHOTO_"`
	Log    log.Config   `yaml:"log" envPrefix:"LOG_"`
	Mock   MockConfig   `yaml:"mock" envPrefix:"MOCK_"`
}

type ServerConfig struct {
	BaseURL   string `yaml:"base_url" env:"BASE_URL"`
	SSEPath   string `yaml:"sse_path" env:"SSE_PATH"`
	WSPath    string `yaml:"ws_path" env:"WS_PATH"`
	PhotoPath string `yaml:"photo_path" env:"PHOTO_PATH"`
}

type AuthConfig struct {
	Token     string `yaml:"token" env:"TOKEN"`
	TokenFile string `yaml:"token_file" env:"TOKEN_FILE"`
}

type StreamConfig struct {
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay" env:"RECONNECT_BASE_DELAY"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay" env:"RECONNECT_MAX_DELAY"`
	MaxFailures        int           `yaml:"max_failures" env:"MAX_FAILURES"`
	HeartbeatTimeout   time.Duration `yaml:"heartbeat_timeout" env:"HEARTBEAT_TIMEOUT"`
	Buffer             int           `yaml:"buffer" env:"BUFFER"`
}

type PhotoConfig struct {
	Source      string   `yaml:"source" env:"SOURCE"`
	Width       int      `yaml:"width" env:"WIDTH"`
	Height      int      `yaml:"height" env:"HEIGHT"`
	JPEGQuality int      `yaml:"jpeg_quality" env:"JPEG_QUALITY"`
	Sink        string   `yaml:"sink" env:"SINK"`
	LocalDir    string   `yaml:"local_dir" env:"LOCAL_DIR"`
	S3          S3Config `yaml:"s3" envPrefix:"S3_"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT"`
	Region          string `yaml:"region" env:"REGION"`
	Bucket          string `yaml:"bucket" env:"BUCKET"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"USE_PATH_STYLE"`
	Prefix          string `yaml:"prefix" env:"PREFIX"`
}

type MockConfig struct {
	Host        string        `yaml:"host" env:"HOST"`
	Port        int           `yaml:"port" env:"PORT"`
	Token       string        `yaml:"token" env:"TOKEN"`
	Stars       []string      `yaml:"stars" env:"STARS" envSeparator:","`
	QueueLength int           `yaml:"queue_length" env:"QUEUE_LENGTH"`
	LiveSeconds int           `yaml:"live_seconds" env:"LIVE_SECONDS"`
	Tick        time.Duration `yaml:"tick" env:"TICK"`
	PhotoDir    string        `yaml:"photo_dir" env:"PHOTO_DIR"`
}

// Photo sinks.
const (
	SinkHTTP  = "http"
	SinkLocal = "local"
	SinkS3    = "s3"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:   "http://127.0.0.1:8080",
			SSEPath:   "/api/sessions/sse",
			WSPath:    "/api/sessions/ws",
			PhotoPath: "/api/sessions/photo",
		},
		Stream: StreamConfig{
			ReconnectBaseDelay: time.Second,
			ReconnectMaxDelay:  30 * time.Second,
			MaxFailures:        10,
			HeartbeatTimeout:   2 * time.Hour,
			Buffer:             64,
		},
		Photo: PhotoConfig{
			Width:       640,
			Height:      480,
			JPEGQuality: 85,
			Sink:        SinkHTTP,
			LocalDir:    "photos",
			S3: S3Config{
				Region: "us-east-1",
				Prefix: "photos/",
			},
		},
		Log: log.Config{
			Level: "info",
		},
		Mock: MockConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			Stars:       []string{"Haerin", "Minji", "Hanni"},
			QueueLength: 3,
			LiveSeconds: 30,
			Tick:        time.Second,
			PhotoDir:    "mock-photos",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies MEETZ_*
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("server.base_url %q is not an absolute URL", c.Server.BaseURL)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("server.base_url scheme %q not supported", u.Scheme)
	}
	if c.Stream.ReconnectBaseDelay <= 0 || c.Stream.ReconnectMaxDelay < c.Stream.ReconnectBaseDelay {
		return fmt.Errorf("stream reconnect delays must satisfy 0 < base <= max")
	}
	if c.Stream.MaxFailures < 0 {
		return fmt.Errorf("stream.max_failures must be >= 0")
	}
	if c.Photo.JPEGQuality < 1 || c.Photo.JPEGQuality > 100 {
		return fmt.Errorf("photo.jpeg_quality must be in [1,100], got %d", c.Photo.JPEGQuality)
	}
	switch c.Photo.Sink {
	case SinkHTTP, SinkLocal:
	case SinkS3:
		if c.Photo.S3.Bucket == "" {
			return fmt.Errorf("photo.s3.bucket is required for the s3 sink")
		}
	default:
		return fmt.Errorf("photo.sink %q not supported", c.Photo.Sink)
	}
	return nil
}

// Transport returns "ws" when the base URL selects the WebSocket stream and
// "sse" otherwise.
func (c *Config) Transport() string {
	if strings.HasPrefix(c.Server.BaseURL, "ws://") || strings.HasPrefix(c.Server.BaseURL, "wss://") {
		return "ws"
	}
	return "sse"
}

// StreamURL is the push endpoint for the configured transport.
func (c *Config) StreamURL() string {
	base := strings.TrimRight(c.Server.BaseURL, "/")
	if c.Transport() == "ws" {
		return base + c.Server.WSPath
	}
	return base + c.Server.SSEPath
}

// HTTPBaseURL converts ws://host → http://host for REST calls.
func (c *Config) HTTPBaseURL() string {
	base := strings.TrimRight(c.Server.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "wss://"):
		return "https://" + strings.TrimPrefix(base, "wss://")
	case strings.HasPrefix(base, "ws://"):
		return "http://" + strings.TrimPrefix(base, "ws://")
	}
	return base
}
