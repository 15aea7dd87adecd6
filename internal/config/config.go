package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. MESHFLOW_SERVER_ADDR.
const EnvPrefix = "MESHFLOW"

// Feed sources.
const (
	FeedNone  = "none"
	FeedFile  = "file"
	FeedRedis = "redis"
)

// Config is the top-level configuration for a meshflow session.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Engine EngineConfig `json:"engine" yaml:"engine"`
	Render RenderConfig `json:"render" yaml:"render"`
	Feed   FeedConfig   `json:"feed" yaml:"feed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" validate:"required"`
	// KeepFrames bounds the frames kept in memory for /api/frames.
	KeepFrames int `json:"keep_frames" yaml:"keep_frames" envconfig:"KEEP_FRAMES" validate:"gte=0"`
}

// EngineConfig tunes the traffic renderer.
type EngineConfig struct {
	FrameRate int    `json:"frame_rate" yaml:"frame_rate" envconfig:"FRAME_RATE" validate:"min=1,max=240"`
	Skin      string `json:"skin" yaml:"skin" validate:"oneof=normal holiday"`
	// Seed makes point emission reproducible. Zero seeds from the clock.
	Seed int64 `json:"seed" yaml:"seed"`
}

// RenderConfig controls offline PNG rendering.
type RenderConfig struct {
	Width       int    `json:"width" yaml:"width" validate:"min=1,max=8192"`
	Height      int    `json:"height" yaml:"height" validate:"min=1,max=8192"`
	Supersample int    `json:"supersample" yaml:"supersample" validate:"min=1,max=4"`
	Background  string `json:"background" yaml:"background" validate:"hexcolor"`
}

// FeedConfig selects where live snapshots come from.
type FeedConfig struct {
	Source string      `json:"source" yaml:"source" validate:"oneof=none file redis"`
	File   string      `json:"file" yaml:"file"`
	Redis  RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig locates the snapshot key and update channel.
type RedisConfig struct {
	Host        string        `json:"host" yaml:"host"`
	Port        int           `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Password    string        `json:"password" yaml:"password"`
	DB          int           `json:"db" yaml:"db" validate:"gte=0"`
	Key         string        `json:"key" yaml:"key"`
	Channel     string        `json:"channel" yaml:"channel"`
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout" envconfig:"DIAL_TIMEOUT" validate:"gte=0"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:       ":8080",
			KeepFrames: 600,
		},
		Engine: EngineConfig{
			FrameRate: 60,
			Skin:      "normal",
		},
		Render: RenderConfig{
			Width:       800,
			Height:      600,
			Supersample: 2,
			Background:  "#1b1d21",
		},
		Feed: FeedConfig{
			Source: FeedNone,
			Redis: RedisConfig{
				Host:        "localhost",
				Port:        6379,
				Key:         "meshflow:graph",
				Channel:     "meshflow:graph:updates",
				DialTimeout: 5 * time.Second,
			},
		},
	}
}

var validate = validator.New()

// Validate checks that the config is valid.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Feed.Source {
	case FeedFile:
		if c.Feed.File == "" {
			return fmt.Errorf("feed.file is required when feed.source=%s", FeedFile)
		}
	case FeedRedis:
		if c.Feed.Redis.Host == "" {
			return fmt.Errorf("feed.redis.host is required when feed.source=%s", FeedRedis)
		}
	}
	return nil
}

// LoadFile reads a YAML or JSON config file and merges it with defaults.
// Fields not specified in the file retain their default values. Durations
// are written as strings ("5s").
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	// YAML is a superset of JSON, so one decoder serves both.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MESHFLOW_* environment variables, e.g.
// MESHFLOW_ENGINE_FRAME_RATE or MESHFLOW_FEED_REDIS_HOST. Unset variables
// leave fields alone.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

// Load is LoadFile (when path is non-empty) followed by ApplyEnv and
// Validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// WriteExample writes an example config file to the given path, as JSON
// when the path ends in .json and YAML otherwise.
func WriteExample(path string) error {
	example := exampleYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		example = exampleJSON
	}
	return os.WriteFile(path, []byte(example), 0o644)
}

const exampleYAML = `server:
  addr: ":8080"
  keep_frames: 600
engine:
  frame_rate: 60
  skin: normal
  seed: 0
render:
  width: 800
  height: 600
  supersample: 2
  background: "#1b1d21"
feed:
  source: none
  file: ""
  redis:
    host: localhost
    port: 6379
    db: 0
    key: "meshflow:graph"
    channel: "meshflow:graph:updates"
    dial_timeout: 5s
`

const exampleJSON = `{
  "server": {
    "addr": ":8080",
    "keep_frames": 600
  },
  "engine": {
    "frame_rate": 60,
    "skin": "normal",
    "seed": 0
  },
  "render": {
    "width": 800,
    "height": 600,
    "supersample": 2,
    "background": "#1b1d21"
  },
  "feed": {
    "source": "none",
    "file": "",
    "redis": {
      "host": "localhost",
      "port": 6379,
      "db": 0,
      "key": "meshflow:graph",
      "channel": "meshflow:graph:updates",
      "dial_timeout": "5s"
    }
  }
}
`
