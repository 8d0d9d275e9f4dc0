package config

// Snapshot is a sanitized, read-only view of the effective configuration,
// safe to expose over the broker's GET /config endpoint. Secrets are reduced
// to presence booleans.
type Snapshot struct {
	Broker   BrokerSnapshot   `json:"broker"`
	EventLog EventLogSnapshot `json:"eventlog"`
	Watchdog WatchdogSnapshot `json:"watchdog"`
	Playback PlaybackSnapshot `json:"playback"`
	Health   HealthSnapshot   `json:"health"`
	Mirror   MirrorSnapshot   `json:"mirror"`
}

type BrokerSnapshot struct {
	HTTPHost     string `json:"http_host"`
	HTTPPort     int    `json:"http_port"`
	SocketPath   string `json:"socket_path"`
	AuthRequired bool   `json:"auth_required"`
	HistorySize  int    `json:"history_size"`
}

type EventLogSnapshot struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr"`
	RetentionDays int    `json:"retention_days"`
}

type WatchdogSnapshot struct {
	TickMS int    `json:"tick_ms"`
	Source string `json:"source"`
}

type PlaybackSnapshot struct {
	PollMS        int  `json:"poll_ms"`
	StopWindowMS  int  `json:"stop_window_ms"`
	RemoteEnabled bool `json:"remote_enabled"`
}

type HealthSnapshot struct {
	PingIntervalSec int `json:"ping_interval_sec"`
}

type MirrorSnapshot struct {
	Enabled bool   `json:"enabled"`
	Subject string `json:"subject"`
}

// Snapshot builds the sanitized view of this configuration.
func (c *Config) Snapshot() Snapshot {
	return Snapshot{
		Broker: BrokerSnapshot{
			HTTPHost:     c.Broker.HTTPHost,
			HTTPPort:     c.Broker.HTTPPort,
			SocketPath:   c.Broker.SocketPath,
			AuthRequired: c.Broker.AuthToken != "",
			HistorySize:  c.Broker.HistorySize,
		},
		EventLog: EventLogSnapshot{
			Enabled:       c.EventLog.Enabled,
			Addr:          c.EventLog.Addr(),
			RetentionDays: c.EventLog.RetentionDays,
		},
		Watchdog: WatchdogSnapshot{
			TickMS: c.Watchdog.TickMS,
			Source: c.Watchdog.Source,
		},
		Playback: PlaybackSnapshot{
			PollMS:        c.Playback.PollMS,
			StopWindowMS:  c.Playback.StopWindowMS,
			RemoteEnabled: c.Playback.Remote.BaseURL != "",
		},
		Health: HealthSnapshot{
			PingIntervalSec: c.Health.PingIntervalSec,
		},
		Mirror: MirrorSnapshot{
			Enabled: c.Mirror.Enabled,
			Subject: c.Mirror.Subject,
		},
	}
}
