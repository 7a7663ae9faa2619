package editor

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/htmledit/dbopen"
)

// Config holds the htmledit service configuration.
type Config struct {
	Listen      string        `yaml:"listen"`
	SessionDB   string        `yaml:"session_db"`   // ":memory:" keeps sessions process-local
	SessionTTL  time.Duration `yaml:"session_ttl"`  // sliding, refreshed on every edit pass
	SweepEvery  time.Duration `yaml:"sweep_every"`
	MaxUploadMB int           `yaml:"max_upload_mb"`
	Filename    string        `yaml:"download_filename"` // used when the upload had no name
	EventsDB    string        `yaml:"events_db"`         // empty shares session_db
	TraceSQL    bool          `yaml:"trace_sql"`         // log session SQL through sqltrace

	// Logger for debug/error messages.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:      ":5000",
		SessionDB:   dbopen.Memory,
		SessionTTL:  2 * time.Hour,
		SweepEvery:  5 * time.Minute,
		MaxUploadMB: 16,
		Filename:    "updated_portfolio.html",
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	if c.SessionDB == "" {
		return fmt.Errorf("session_db is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be > 0")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be > 0")
	}
	if c.SweepEvery <= 0 {
		return fmt.Errorf("sweep_every must be > 0")
	}
	return nil
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) * 1024 * 1024 }

func (c *Config) defaults() {
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 16
	}
	if c.Filename == "" {
		c.Filename = "updated_portfolio.html"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
