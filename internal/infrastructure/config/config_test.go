package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
mqtt:
  broker:
    host: "localhost"
    port: 1884
    client_id_prefix: "test-client"
  qos: 1
  topic_prefix: "lab/bench"
serial:
  baud_rate: 115200
  read_timeout: 500ms
  settle_delay: 0s
  poll_interval: 50ms
actuator:
  threshold: 40
shutdown:
  grace: 250ms
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	if cfg.MQTT.TopicPrefix != "lab/bench" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "lab/bench")
	}

	if cfg.Serial.BaudRate != 115200 {
		t.Errorf("Serial.BaudRate = %d, want 115200", cfg.Serial.BaudRate)
	}

	if cfg.Serial.ReadTimeout != 500*time.Millisecond {
		t.Errorf("Serial.ReadTimeout = %v, want 500ms", cfg.Serial.ReadTimeout)
	}

	if cfg.Actuator.Threshold != 40 {
		t.Errorf("Actuator.Threshold = %d, want 40", cfg.Actuator.Threshold)
	}

	if cfg.Shutdown.Grace != 250*time.Millisecond {
		t.Errorf("Shutdown.Grace = %v, want 250ms", cfg.Shutdown.Grace)
	}

	if got := cfg.BrokerAddress(); got != "localhost:1884" {
		t.Errorf("BrokerAddress() = %q, want %q", got, "localhost:1884")
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if cfg.Actuator.Threshold != 35 {
		t.Errorf("Actuator.Threshold = %d, want 35", cfg.Actuator.Threshold)
	}
}

func TestLoad_ZeroThresholdKept(t *testing.T) {
	content := `
actuator:
  threshold: 0
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Actuator.Threshold != 0 {
		t.Errorf("Actuator.Threshold = %d from file, want 0", cfg.Actuator.Threshold)
	}

	t.Setenv("LIGHTLINK_THRESHOLD", "0")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Actuator.Threshold != 0 {
		t.Errorf("Actuator.Threshold = %d from environment, want 0", cfg.Actuator.Threshold)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
serial:
  read_timeout: 0s
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for zero read timeout, got nil")
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("LIGHTLINK_THRESHOLD", "bright")

	_, err := Load("")
	if err == nil {
		t.Error("Load() expected error for non-numeric LIGHTLINK_THRESHOLD, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing broker host",
			mutate:  func(c *Config) { c.MQTT.Broker.Host = "" },
			wantErr: true,
		},
		{
			name:    "invalid broker port",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "wildcard in topic prefix",
			mutate:  func(c *Config) { c.MQTT.TopicPrefix = "iot/#" },
			wantErr: true,
		},
		{
			name:    "zero baud rate",
			mutate:  func(c *Config) { c.Serial.BaudRate = 0 },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Serial.PollInterval = 0 },
			wantErr: true,
		},
		{
			name:    "negative grace",
			mutate:  func(c *Config) { c.Shutdown.Grace = -time.Second },
			wantErr: true,
		},
		{
			name: "influxdb enabled without bucket",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Bucket = ""
			},
			wantErr: true,
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "negative retention",
			mutate:  func(c *Config) { c.Database.Retention = -time.Hour },
			wantErr: true,
		},
		{
			name:    "zero retention keeps everything",
			mutate:  func(c *Config) { c.Database.Retention = 0 },
			wantErr: false,
		},
		{
			name:    "negative threshold is allowed",
			mutate:  func(c *Config) { c.Actuator.Threshold = -1 },
			wantErr: false,
		},
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

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("LIGHTLINK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("LIGHTLINK_MQTT_PORT", "8883")
	t.Setenv("LIGHTLINK_MQTT_USERNAME", "testuser")
	t.Setenv("LIGHTLINK_MQTT_PASSWORD", "testpass")
	t.Setenv("LIGHTLINK_THRESHOLD", "50")
	t.Setenv("LIGHTLINK_LOG_LEVEL", "debug")
	t.Setenv("LIGHTLINK_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("LIGHTLINK_DATABASE_PATH", "/custom/path.db")
	t.Setenv("LIGHTLINK_DATABASE_RETENTION", "168h")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.Actuator.Threshold != 50 {
		t.Errorf("Actuator.Threshold = %d, want 50", cfg.Actuator.Threshold)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.Database.Retention != 168*time.Hour {
		t.Errorf("Database.Retention = %v, want 168h", cfg.Database.Retention)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.MQTT.QoS != 1 {
		t.Errorf("defaultConfig MQTT.QoS = %d, want 1", cfg.MQTT.QoS)
	}

	if cfg.Serial.BaudRate != 9600 {
		t.Errorf("defaultConfig Serial.BaudRate = %d, want 9600", cfg.Serial.BaudRate)
	}

	if cfg.Serial.ReadTimeout != time.Second {
		t.Errorf("defaultConfig Serial.ReadTimeout = %v, want 1s", cfg.Serial.ReadTimeout)
	}

	if cfg.Serial.PollInterval != 100*time.Millisecond {
		t.Errorf("defaultConfig Serial.PollInterval = %v, want 100ms", cfg.Serial.PollInterval)
	}

	if cfg.Actuator.Threshold != 35 {
		t.Errorf("defaultConfig Actuator.Threshold = %d, want 35", cfg.Actuator.Threshold)
	}

	if cfg.Database.Retention != 30*24*time.Hour {
		t.Errorf("defaultConfig Database.Retention = %v, want 720h", cfg.Database.Retention)
	}

	if cfg.InfluxDB.Enabled || cfg.Database.Enabled {
		t.Error("defaultConfig should leave optional stores disabled")
	}
}
