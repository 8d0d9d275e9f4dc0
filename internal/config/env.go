package config

import (
	"os"
	"strconv"
)

// applyEnvOverrides maps VOICEBUS_* environment variables onto the loaded
// configuration. Environment values always win over file values so deployed
// units can be tuned without editing the config file.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Broker.HTTPHost, "VOICEBUS_HTTP_HOST")
	setInt(&cfg.Broker.HTTPPort, "VOICEBUS_HTTP_PORT")
	setString(&cfg.Broker.SocketPath, "VOICEBUS_SOCKET_PATH")
	setString(&cfg.Broker.AuthToken, "VOICEBUS_AUTH_TOKEN")
	setInt(&cfg.Broker.HistorySize, "VOICEBUS_HISTORY_SIZE")

	setBool(&cfg.EventLog.Enabled, "VOICEBUS_EVENTLOG_ENABLED")
	setString(&cfg.EventLog.HTTPHost, "VOICEBUS_EVENTLOG_HOST")
	setInt(&cfg.EventLog.HTTPPort, "VOICEBUS_EVENTLOG_PORT")
	setString(&cfg.EventLog.DBPath, "VOICEBUS_EVENTLOG_DB_PATH")
	setInt(&cfg.EventLog.RetentionDays, "VOICEBUS_EVENTLOG_RETENTION_DAYS")

	setInt(&cfg.Watchdog.TickMS, "VOICEBUS_WATCHDOG_TICK_MS")
	setString(&cfg.Watchdog.Source, "VOICEBUS_WATCHDOG_SOURCE")

	setInt(&cfg.Playback.PollMS, "VOICEBUS_PLAYBACK_POLL_MS")
	setInt(&cfg.Playback.StopWindowMS, "VOICEBUS_STOP_WINDOW_MS")
	setString(&cfg.Playback.PlayCmd, "VOICEBUS_PLAY_CMD")
	setString(&cfg.Playback.Remote.BaseURL, "VOICEBUS_REMOTE_TTS_URL")
	setString(&cfg.Playback.Remote.VoiceID, "VOICEBUS_REMOTE_TTS_VOICE")
	setString(&cfg.Playback.Remote.APIKey, "VOICEBUS_REMOTE_TTS_KEY")
	setInt(&cfg.Playback.Remote.TimeoutSec, "VOICEBUS_REMOTE_TTS_TIMEOUT_SEC")
	setString(&cfg.Playback.Local.Bin, "VOICEBUS_LOCAL_TTS_BIN")
	setString(&cfg.Playback.Local.Model, "VOICEBUS_LOCAL_TTS_MODEL")
	setString(&cfg.Playback.Local.OutputPath, "VOICEBUS_LOCAL_TTS_OUTPUT")

	setInt(&cfg.Health.PingIntervalSec, "VOICEBUS_HEALTH_PING_SEC")

	setBool(&cfg.Mirror.Enabled, "VOICEBUS_MIRROR_ENABLED")
	setString(&cfg.Mirror.URL, "VOICEBUS_MIRROR_URL")
	setString(&cfg.Mirror.Subject, "VOICEBUS_MIRROR_SUBJECT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
