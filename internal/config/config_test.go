package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
	if cfg.Sync.DefaultMaxVideos != 500 {
		t.Errorf("DefaultMaxVideos = %d, want 500", cfg.Sync.DefaultMaxVideos)
	}
	if cfg.Resolver.MaxHops != 5 {
		t.Errorf("MaxHops = %d, want 5", cfg.Resolver.MaxHops)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"missing db path", func(c *Config) { c.Storage.DBPath = "" }, true},
		{"zero default max", func(c *Config) { c.Sync.DefaultMaxVideos = 0 }, true},
		{"cap below default", func(c *Config) { c.Sync.MaxVideosCap = 10 }, true},
		{"zero lookback", func(c *Config) { c.Sync.Lookback = 0 }, true},
		{"zero progress interval", func(c *Config) { c.Sync.ProgressEvery = 0 }, true},
		{"negative schedule", func(c *Config) { c.Sync.Interval = -time.Minute }, true},
		{"zero hops", func(c *Config) { c.Resolver.MaxHops = 0 }, true},
		{"missing yt-dlp", func(c *Config) { c.YouTube.YtdlpPath = "" }, true},
		{"no api key is fine", func(c *Config) { c.YouTube.APIKey = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Validate(t *testing.T) {
	srv := Default().Server
	if err := srv.Validate(); err == nil {
		t.Error("Validate() should fail for missing API_KEY")
	}

	srv.APIKey = "secret"
	if err := srv.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	srv.Port = 70000
	if err := srv.Validate(); err == nil {
		t.Error("Validate() should fail for out of range port")
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"localhost", 3000, "localhost:3000"},
		{"", 9000, ":9000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := &ServerConfig{Host: tt.host, Port: tt.port}
			if got := cfg.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
server:
  port: 9090
  api_key: "yaml-api-key"
storage:
  db_path: "/var/lib/makanmap/db.sqlite"
sync:
  default_max_videos: 100
  lookback: 720h
resolver:
  max_hops: 3
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "yaml-api-key" {
		t.Errorf("APIKey = %q, want yaml-api-key", cfg.Server.APIKey)
	}
	if cfg.Storage.DBPath != "/var/lib/makanmap/db.sqlite" {
		t.Errorf("DBPath = %q", cfg.Storage.DBPath)
	}
	if cfg.Sync.DefaultMaxVideos != 100 {
		t.Errorf("DefaultMaxVideos = %d, want 100", cfg.Sync.DefaultMaxVideos)
	}
	if cfg.Sync.Lookback != 720*time.Hour {
		t.Errorf("Lookback = %v, want 720h", cfg.Sync.Lookback)
	}
	if cfg.Resolver.MaxHops != 3 {
		t.Errorf("MaxHops = %d, want 3", cfg.Resolver.MaxHops)
	}
	// Untouched sections keep their defaults.
	if cfg.Sync.MaxVideosCap != 5000 {
		t.Errorf("MaxVideosCap = %d, want default 5000", cfg.Sync.MaxVideosCap)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
server:
  api_key: "yaml-api-key"
storage:
  db_path: "/yaml/db.sqlite"
youtube:
  api_key: "yaml-yt-key"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("API_KEY", "env-api-key")
	t.Setenv("DB_PATH", "/env/db.sqlite")
	t.Setenv("SYNC_INTERVAL", "6h")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.APIKey != "env-api-key" {
		t.Errorf("APIKey should be from env, got %q", cfg.Server.APIKey)
	}
	if cfg.Storage.DBPath != "/env/db.sqlite" {
		t.Errorf("DBPath should be from env, got %q", cfg.Storage.DBPath)
	}
	if cfg.YouTube.APIKey != "yaml-yt-key" {
		t.Errorf("YouTube APIKey should stay from yaml, got %q", cfg.YouTube.APIKey)
	}
	if cfg.Sync.Interval != 6*time.Hour {
		t.Errorf("Interval = %v, want 6h", cfg.Sync.Interval)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.YouTube.FallbackEnabled() {
		t.Error("FallbackEnabled() = false, want true")
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v, want 2 entries", cfg.Server.CORSOrigins)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load should fail for invalid YAML")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load should fail for nonexistent file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("RESOLVER_MAX_HOPS", "0")

	if _, err := Load(""); err == nil {
		t.Error("Load should fail validation")
	}
}
