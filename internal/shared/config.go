package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Credentials are not part of the file; see [Credentials].
type Config struct {
	State    StateConfig    `toml:"state"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Bandcamp BandcampConfig `toml:"bandcamp"`
	HTTP     HTTPConfig     `toml:"http"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// StateConfig controls where and how the state document is persisted.
type StateConfig struct {
	Path   string `toml:"path"`
	Pretty bool   `toml:"pretty"`
}

// SpotifyConfig contains Spotify API endpoints.
type SpotifyConfig struct {
	APIURL   string `toml:"api_url"`
	TokenURL string `toml:"token_url"`
}

// BandcampConfig contains Bandcamp endpoints and the search rate limit.
type BandcampConfig struct {
	BaseURL   string  `toml:"base_url"`
	RateLimit float64 `toml:"rate_limit"` // search requests per second
}

// HTTPConfig makes the outbound timeout and retry policy explicit.
type HTTPConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
	MaxRetries     int `toml:"max_retries"`
	RetryBackoffMS int `toml:"retry_backoff_ms"`
}

// DatabaseConfig contains run history database settings. An empty path disables history.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Timeout returns the HTTP client timeout. Zero means no timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the base delay between retries.
func (h HTTPConfig) RetryBackoff() time.Duration {
	return time.Duration(h.RetryBackoffMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate rejects values that would make a run misbehave rather than fail.
func (c *Config) Validate() error {
	if c.State.Path == "" {
		return fmt.Errorf("%w: state.path must be set", ErrInvalidConfig)
	}
	if c.Bandcamp.RateLimit <= 0 {
		return fmt.Errorf("%w: bandcamp.rate_limit must be positive, got %v", ErrInvalidConfig, c.Bandcamp.RateLimit)
	}
	if c.HTTP.TimeoutSeconds < 0 || c.HTTP.MaxRetries < 0 || c.HTTP.RetryBackoffMS < 0 {
		return fmt.Errorf("%w: http settings must not be negative", ErrInvalidConfig)
	}
	return nil
}
