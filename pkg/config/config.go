package config

import internalconfig "github.com/SmitUplenchwar2687/meshflow/internal/config"

// EnvPrefix prefixes the environment variables that override file values.
const EnvPrefix = internalconfig.EnvPrefix

// Feed sources.
const (
	FeedNone  = internalconfig.FeedNone
	FeedFile  = internalconfig.FeedFile
	FeedRedis = internalconfig.FeedRedis
)

// Config is the top-level configuration for a meshflow process.
type Config = internalconfig.Config

// ServerConfig holds HTTP server settings.
type ServerConfig = internalconfig.ServerConfig

// EngineConfig holds the traffic renderer settings.
type EngineConfig = internalconfig.EngineConfig

// RenderConfig holds the PNG frame export settings.
type RenderConfig = internalconfig.RenderConfig

// FeedConfig selects where live topology snapshots come from.
type FeedConfig = internalconfig.FeedConfig

// RedisConfig configures the Redis snapshot feed.
type RedisConfig = internalconfig.RedisConfig

// Default returns a Config with sensible defaults.
func Default() Config {
	return internalconfig.Default()
}

// LoadFile reads a JSON or YAML config file and merges it with defaults.
func LoadFile(path string) (Config, error) {
	return internalconfig.LoadFile(path)
}

// Load reads path when set, then applies MESHFLOW_* environment overrides.
func Load(path string) (Config, error) {
	return internalconfig.Load(path)
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	return internalconfig.WriteExample(path)
}
