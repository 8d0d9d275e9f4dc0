// Package config loads and validates the voicebus configuration from YAML,
// .env files, and environment variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration shared by all voicebus services.
type Config struct {
	Broker   BrokerConfig   `yaml:"broker"`
	EventLog EventLogConfig `yaml:"eventlog"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Playback PlaybackConfig `yaml:"playback"`
	Health   HealthConfig   `yaml:"health"`
	Mirror   MirrorConfig   `yaml:"mirror"`
}

// BrokerConfig configures the state-bus broker process.
type BrokerConfig struct {
	HTTPHost    string `yaml:"http_host"`
	HTTPPort    int    `yaml:"http_port"`
	SocketPath  string `yaml:"socket_path"`
	AuthToken   string `yaml:"auth_token,omitempty"`
	HistorySize int    `yaml:"history_size"`
}

// Addr returns the host:port the broker HTTP server binds to.
func (b BrokerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.HTTPHost, b.HTTPPort)
}

// EventLogConfig configures the durable event-log service and the broker's
// fire-and-forget forwarding to it.
type EventLogConfig struct {
	Enabled       bool   `yaml:"enabled"`
	HTTPHost      string `yaml:"http_host"`
	HTTPPort      int    `yaml:"http_port"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Addr returns the host:port of the event-log HTTP server.
func (e EventLogConfig) Addr() string {
	return fmt.Sprintf("%s:%d", e.HTTPHost, e.HTTPPort)
}

// WatchdogConfig configures the session watchdog.
type WatchdogConfig struct {
	TickMS int    `yaml:"tick_ms"`
	Source string `yaml:"source"`
}

// PlaybackConfig configures the playback coordinator.
type PlaybackConfig struct {
	PollMS       int                  `yaml:"poll_ms"`
	StopWindowMS int                  `yaml:"stop_window_ms"`
	PlayCmd      string               `yaml:"play_cmd,omitempty"`
	Remote       RemoteProviderConfig `yaml:"remote"`
	Local        LocalProviderConfig  `yaml:"local"`
}

// RemoteProviderConfig configures the hosted speech-synthesis vendor.
type RemoteProviderConfig struct {
	BaseURL    string `yaml:"base_url,omitempty"`
	VoiceID    string `yaml:"voice_id,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// LocalProviderConfig configures the on-device synthesis binary.
type LocalProviderConfig struct {
	Bin        string `yaml:"bin"`
	Model      string `yaml:"model,omitempty"`
	OutputPath string `yaml:"output_path"`
}

// HealthConfig configures the periodic health ping from auxiliary services.
type HealthConfig struct {
	PingIntervalSec int `yaml:"ping_interval_sec"`
}

// MirrorConfig configures the optional NATS state-event mirror.
type MirrorConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			HTTPHost:    "127.0.0.1",
			HTTPPort:    17171,
			SocketPath:  "/tmp/voicebus_state.sock",
			HistorySize: 200,
		},
		EventLog: EventLogConfig{
			HTTPHost:      "127.0.0.1",
			HTTPPort:      17172,
			DBPath:        "./data/voicebus.db",
			RetentionDays: 30,
		},
		Watchdog: WatchdogConfig{
			TickMS: 500,
			Source: "watchdog",
		},
		Playback: PlaybackConfig{
			PollMS:       1000,
			StopWindowMS: 3000,
			Remote:       RemoteProviderConfig{TimeoutSec: 15},
			Local: LocalProviderConfig{
				Bin:        "piper",
				OutputPath: "./tmp/tts-output.wav",
			},
		},
		Health: HealthConfig{
			PingIntervalSec: 30,
		},
		Mirror: MirrorConfig{
			Subject: "voicebus.state",
		},
	}
}

// Load loads configuration from the specified file. A missing file is not an
// error: the built-in defaults are used so each service can run standalone.
// Environment variables always take precedence over file values.
func Load(configPath string) (*Config, error) {
	// Load .env files if present; existing process env wins.
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				fmt.Fprintf(os.Stderr, "Note: failed to load %s: %v\n", envPath, err)
			}
			break
		}
	}

	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			// Expand environment variables in the YAML content
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values that yaml decoding may have cleared.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Broker.HTTPHost == "" {
		cfg.Broker.HTTPHost = def.Broker.HTTPHost
	}
	if cfg.Broker.HTTPPort == 0 {
		cfg.Broker.HTTPPort = def.Broker.HTTPPort
	}
	if cfg.Broker.SocketPath == "" {
		cfg.Broker.SocketPath = def.Broker.SocketPath
	}
	if cfg.Broker.HistorySize == 0 {
		cfg.Broker.HistorySize = def.Broker.HistorySize
	}
	if cfg.EventLog.HTTPHost == "" {
		cfg.EventLog.HTTPHost = def.EventLog.HTTPHost
	}
	if cfg.EventLog.HTTPPort == 0 {
		cfg.EventLog.HTTPPort = def.EventLog.HTTPPort
	}
	if cfg.EventLog.DBPath == "" {
		cfg.EventLog.DBPath = def.EventLog.DBPath
	}
	if cfg.EventLog.RetentionDays == 0 {
		cfg.EventLog.RetentionDays = def.EventLog.RetentionDays
	}
	if cfg.Watchdog.TickMS == 0 {
		cfg.Watchdog.TickMS = def.Watchdog.TickMS
	}
	if cfg.Watchdog.Source == "" {
		cfg.Watchdog.Source = def.Watchdog.Source
	}
	if cfg.Playback.PollMS == 0 {
		cfg.Playback.PollMS = def.Playback.PollMS
	}
	if cfg.Playback.StopWindowMS == 0 {
		cfg.Playback.StopWindowMS = def.Playback.StopWindowMS
	}
	if cfg.Playback.Remote.TimeoutSec == 0 {
		cfg.Playback.Remote.TimeoutSec = def.Playback.Remote.TimeoutSec
	}
	if cfg.Playback.Local.Bin == "" {
		cfg.Playback.Local.Bin = def.Playback.Local.Bin
	}
	if cfg.Playback.Local.OutputPath == "" {
		cfg.Playback.Local.OutputPath = def.Playback.Local.OutputPath
	}
	if cfg.Health.PingIntervalSec == 0 {
		cfg.Health.PingIntervalSec = def.Health.PingIntervalSec
	}
	if cfg.Mirror.Subject == "" {
		cfg.Mirror.Subject = def.Mirror.Subject
	}
}

// validate rejects configurations that can never work.
func validate(cfg *Config) error {
	if cfg.Broker.HTTPPort < 0 || cfg.Broker.HTTPPort > 65535 {
		return fmt.Errorf("broker.http_port out of range: %d", cfg.Broker.HTTPPort)
	}
	if cfg.EventLog.HTTPPort < 0 || cfg.EventLog.HTTPPort > 65535 {
		return fmt.Errorf("eventlog.http_port out of range: %d", cfg.EventLog.HTTPPort)
	}
	if cfg.Broker.HistorySize < 1 {
		return fmt.Errorf("broker.history_size must be positive: %d", cfg.Broker.HistorySize)
	}
	if cfg.Mirror.Enabled && cfg.Mirror.URL == "" {
		return fmt.Errorf("mirror.url is required when mirror.enabled is true")
	}
	return nil
}
