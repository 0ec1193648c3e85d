package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
api:
  host: "0.0.0.0"
  port: 5001
train_service:
  url: "http://localhost:5000/train"
  timeout: 10
loading:
  wagon_prefix: "WGN"
  increment_delay_ms: 250
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.TrainService.URL != "http://localhost:5000/train" {
		t.Errorf("TrainService.URL = %q, want %q", cfg.TrainService.URL, "http://localhost:5000/train")
	}
	if got := cfg.GetIncrementDelay(); got != 250*time.Millisecond {
		t.Errorf("GetIncrementDelay() = %v, want %v", got, 250*time.Millisecond)
	}
	// Defaults fill sections absent from the file
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("WAGONLOADER_TRAIN_SERVICE_URL", "http://trains.internal:5000/train")

	content := `
database:
  path: "/tmp/test.db"
train_service:
  url: "http://localhost:5000/train"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TrainService.URL != "http://trains.internal:5000/train" {
		t.Errorf("TrainService.URL = %q, want env override", cfg.TrainService.URL)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "empty database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid port", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "empty train service url", mutate: func(c *Config) { c.TrainService.URL = "" }, wantErr: true},
		{name: "empty wagon prefix", mutate: func(c *Config) { c.Loading.WagonPrefix = "" }, wantErr: true},
		{name: "negative increment delay", mutate: func(c *Config) { c.Loading.IncrementDelayMS = -1 }, wantErr: true},
		{name: "invalid qos", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
