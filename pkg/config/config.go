package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/srg/blink/internal/discovery"
	"github.com/srg/blink/internal/hardware"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Config holds application configuration
type Config struct {
	LogLevel logrus.Level `yaml:"-"`

	ScanTimeout      time.Duration `yaml:"scan_timeout" default:"10s"`
	AllowDuplicates  bool          `yaml:"allow_duplicates" default:"false"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout" default:"30s"`
	OperationTimeout time.Duration `yaml:"operation_timeout" default:"30s"`
	CommandQueueSize int           `yaml:"command_queue_size" default:"256"`
	EventBufferSize  int           `yaml:"event_buffer_size" default:"256"`
	CatalogPath      string        `yaml:"catalog"`
	OutputFormat     string        `yaml:"output_format" default:"table"` // table, json
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{LogLevel: logrus.InfoLevel}
	defaults.SetDefaults(cfg)
	return cfg
}

// LoadFile reads a YAML configuration file over the defaults.
// Keys absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	var level struct {
		LogLevel string `yaml:"log_level"`
	}
	if err := yaml.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if level.LogLevel != "" {
		if err := cfg.SetLogLevel(level.LogLevel); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// SetLogLevel parses a logrus level name ("debug", "info", ...)
func (c *Config) SetLogLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	c.LogLevel = level
	return nil
}

// Validate checks value ranges and the output format
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("invalid output format %q (want %s or %s)", c.OutputFormat, FormatTable, FormatJSON)
	}
	if c.ScanTimeout < 0 || c.ConnectTimeout < 0 || c.OperationTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	if c.CommandQueueSize <= 0 || c.EventBufferSize <= 0 {
		return fmt.Errorf("queue and buffer sizes must be positive")
	}
	return nil
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}

// HardwareOptions projects the session settings
func (c *Config) HardwareOptions() *hardware.Options {
	return &hardware.Options{
		ConnectTimeout:   c.ConnectTimeout,
		OperationTimeout: c.OperationTimeout,
		CommandQueueSize: c.CommandQueueSize,
		EventBufferSize:  c.EventBufferSize,
	}
}

// DiscoveryOptions projects the scan settings
func (c *Config) DiscoveryOptions() *discovery.Options {
	return &discovery.Options{
		ScanTimeout:     c.ScanTimeout,
		AllowDuplicates: c.AllowDuplicates,
		Hardware:        c.HardwareOptions(),
	}
}
