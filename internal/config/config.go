package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Sync     SyncConfig     `yaml:"sync"`
	Resolver ResolverConfig `yaml:"resolver"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	SyncSecret   string        `yaml:"sync_secret" envconfig:"SYNC_SECRET"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	CORSOrigins  []string      `yaml:"cors_origins" envconfig:"CORS_ORIGINS"`
}

// StorageConfig holds database and lock file locations.
type StorageConfig struct {
	DBPath   string `yaml:"db_path" envconfig:"DB_PATH"`
	LockPath string `yaml:"lock_path" envconfig:"SYNC_LOCK_PATH"`
}

// YouTubeConfig holds video source configuration. An empty APIKey disables
// the Data API fallback and avatar lookups.
type YouTubeConfig struct {
	APIKey       string        `yaml:"api_key" envconfig:"YOUTUBE_API_KEY"`
	YtdlpPath    string        `yaml:"ytdlp_path" envconfig:"YTDLP_PATH"`
	YtdlpTimeout time.Duration `yaml:"ytdlp_timeout" envconfig:"YTDLP_TIMEOUT"`
	ListRetries  int           `yaml:"list_retries" envconfig:"YTDLP_LIST_RETRIES"`
}

// SyncConfig holds sync orchestration tuning.
type SyncConfig struct {
	DefaultMaxVideos int           `yaml:"default_max_videos" envconfig:"SYNC_DEFAULT_MAX_VIDEOS"`
	MaxVideosCap     int           `yaml:"max_videos_cap" envconfig:"SYNC_MAX_VIDEOS_CAP"`
	Lookback         time.Duration `yaml:"lookback" envconfig:"SYNC_LOOKBACK"`
	DetailInterval   time.Duration `yaml:"detail_interval" envconfig:"SYNC_DETAIL_INTERVAL"`
	ProgressEvery    int           `yaml:"progress_every" envconfig:"SYNC_PROGRESS_EVERY"`
	RunTimeout       time.Duration `yaml:"run_timeout" envconfig:"SYNC_RUN_TIMEOUT"`
	// Interval enables scheduled syncs when positive.
	Interval time.Duration `yaml:"interval" envconfig:"SYNC_INTERVAL"`
}

// ResolverConfig holds short-link resolution settings.
type ResolverConfig struct {
	Timeout   time.Duration `yaml:"timeout" envconfig:"RESOLVER_TIMEOUT"`
	MaxHops   int           `yaml:"max_hops" envconfig:"RESOLVER_MAX_HOPS"`
	UserAgent string        `yaml:"user_agent" envconfig:"RESOLVER_USER_AGENT"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// Default returns the configuration used when neither the file nor the
// environment sets a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Storage: StorageConfig{
			DBPath:   "data/makanmap.db",
			LockPath: "data/makanmap.lock",
		},
		YouTube: YouTubeConfig{
			YtdlpPath:    "yt-dlp",
			YtdlpTimeout: 2 * time.Minute,
			ListRetries:  3,
		},
		Sync: SyncConfig{
			DefaultMaxVideos: 500,
			MaxVideosCap:     5000,
			Lookback:         365 * 24 * time.Hour,
			DetailInterval:   200 * time.Millisecond,
			ProgressEvery:    5,
			RunTimeout:       6 * time.Hour,
		},
		Resolver: ResolverConfig{
			Timeout:   10 * time.Second,
			MaxHops:   5,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from file and environment variables.
// Precedence is defaults, then the YAML file, then the environment.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Fields carry no default tags so unset variables leave file values alone.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks values shared by the server and the CLI.
func (c *Config) Validate() error {
	if c.Storage.DBPath == "" {
		return errors.New("DB_PATH is required")
	}
	if c.Sync.DefaultMaxVideos <= 0 {
		return errors.New("SYNC_DEFAULT_MAX_VIDEOS must be positive")
	}
	if c.Sync.MaxVideosCap < c.Sync.DefaultMaxVideos {
		return fmt.Errorf("SYNC_MAX_VIDEOS_CAP (%d) must be at least SYNC_DEFAULT_MAX_VIDEOS (%d)",
			c.Sync.MaxVideosCap, c.Sync.DefaultMaxVideos)
	}
	if c.Sync.Lookback <= 0 {
		return errors.New("SYNC_LOOKBACK must be positive")
	}
	if c.Sync.ProgressEvery <= 0 {
		return errors.New("SYNC_PROGRESS_EVERY must be positive")
	}
	if c.Sync.Interval < 0 {
		return errors.New("SYNC_INTERVAL cannot be negative")
	}
	if c.Resolver.MaxHops <= 0 {
		return errors.New("RESOLVER_MAX_HOPS must be positive")
	}
	if c.YouTube.YtdlpPath == "" {
		return errors.New("YTDLP_PATH is required")
	}
	return nil
}

// Validate checks settings the HTTP server needs on top of Config.Validate.
func (c *ServerConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("API_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.Port)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FallbackEnabled reports whether the Data API source can be used.
func (c *YouTubeConfig) FallbackEnabled() bool {
	return c.APIKey != ""
}
