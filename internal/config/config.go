package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Materials MaterialsConfig `toml:"materials"`
	Engine    EngineConfig    `toml:"engine"`
	Recording RecordingConfig `toml:"recording"`
	Export    ExportConfig    `toml:"export"`
	Generator GeneratorConfig `toml:"generator"`
	Logging   LoggingConfig   `toml:"logging"`
	Ngrok     NgrokConfig     `toml:"ngrok"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port        string `toml:"port"`
	Host        string `toml:"host"`
	StaticDir   string `toml:"static_dir"`
	EnableCORS  bool   `toml:"enable_cors"`
	ReadTimeout int    `toml:"read_timeout_seconds"`
	AccessCode  string `toml:"access_code"` // empty disables the access gate
}

// DatabaseConfig contains material store configuration
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// MaterialsConfig describes the on-disk materials library
type MaterialsConfig struct {
	LibraryPath      string   `toml:"library_path"`
	SupportedFormats []string `toml:"supported_audio_formats"`
	WatchForChanges  bool     `toml:"watch_for_changes"`
	ScanOnStartup    bool     `toml:"scan_on_startup"`
}

// EngineConfig tunes the boundary scheduler
type EngineConfig struct {
	EpsilonSeconds      float64 `toml:"epsilon_seconds"`
	TickMillis          int     `toml:"tick_ms"`
	PrevDeadZoneSeconds float64 `toml:"prev_dead_zone_seconds"`
	DefaultLoopTarget   int     `toml:"default_loop_target"` // 0 = unbounded
	SeekStepSeconds     float64 `toml:"seek_step_seconds"`
}

// RecordingConfig configures microphone capture
type RecordingConfig struct {
	Backend    string `toml:"backend"` // "ffmpeg" or "none"
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	TempDir    string `toml:"temp_dir"`
}

// ExportConfig configures the recording export pipeline
type ExportConfig struct {
	OutputDir string `toml:"output_dir"`
}

// GeneratorConfig configures the generative material producer
type GeneratorConfig struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"` // empty logs to stderr
}

// Apply configures a logger with this section's level, format, and output
// file. Call it after the config has passed Validate.
func (lc *LoggingConfig) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	logger.SetLevel(level)

	if lc.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if lc.File != "" {
		f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(f)
	}
	return nil
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
	Region    string `toml:"region"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Host:        "0.0.0.0",
			StaticDir:   "./static",
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Database: DatabaseConfig{
			Path: "./shadowplay.db",
		},
		Materials: MaterialsConfig{
			LibraryPath:      "./materials",
			SupportedFormats: []string{".wav", ".flac", ".mp3"},
			WatchForChanges:  true,
			ScanOnStartup:    true,
		},
		Engine: EngineConfig{
			EpsilonSeconds:      0.10,
			TickMillis:          15,
			PrevDeadZoneSeconds: 1.75,
			DefaultLoopTarget:   1,
			SeekStepSeconds:     5,
		},
		Recording: RecordingConfig{
			Backend:    "ffmpeg",
			SampleRate: 44100,
			Channels:   1,
			TempDir:    "",
		},
		Export: ExportConfig{
			OutputDir: "./exports",
		},
		Generator: GeneratorConfig{
			Enabled: false,
			Model:   "gpt-4o-mini",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Ngrok: NgrokConfig{
			Enabled:   false,
			AuthToken: "",
			Domain:    "",
			Region:    "us",
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating it with defaults
// when missing.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Shadowplay Listening-Practice Server Configuration
# This file contains all configuration options for the shadowplay server.
# Edit the values below to customize your setup.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.Materials.LibraryPath == "" {
		return fmt.Errorf("materials library path cannot be empty")
	}
	if len(c.Materials.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}

	if c.Engine.EpsilonSeconds < 0 || c.Engine.EpsilonSeconds > 0.5 {
		return fmt.Errorf("engine epsilon must be within [0, 0.5] seconds")
	}
	if c.Engine.TickMillis < 0 || c.Engine.TickMillis > 100 {
		return fmt.Errorf("engine tick must be within [0, 100] ms")
	}
	if c.Engine.DefaultLoopTarget < 0 {
		return fmt.Errorf("default loop target cannot be negative")
	}

	if c.Recording.Backend != "" && c.Recording.Backend != "ffmpeg" && c.Recording.Backend != "none" {
		return fmt.Errorf("invalid recording backend: %s (must be ffmpeg or none)", c.Recording.Backend)
	}
	if c.Recording.SampleRate < 0 {
		return fmt.Errorf("recording sample rate cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsFormatSupported checks if an audio format is supported
func (c *Config) IsFormatSupported(format string) bool {
	for _, supported := range c.Materials.SupportedFormats {
		if supported == format {
			return true
		}
	}
	return false
}
