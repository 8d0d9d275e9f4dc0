// Package commands defines the voicebus command tree.
package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/voicebus/internal/config"
)

// shutdownTimeout bounds graceful shutdown of any service process.
const shutdownTimeout = 30 * time.Second

// Global carries state shared across subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command definition with global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"voicebus.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve    ServeCmd    `cmd:"" help:"Run the state-bus broker (HTTP + unix socket, in-process watchdog)"`
	Watchdog WatchdogCmd `cmd:"" help:"Run the session watchdog standalone against a remote broker"`
	Playback PlaybackCmd `cmd:"" help:"Run the playback coordinator"`
	Eventlog EventlogCmd `cmd:"" help:"Run the durable event-log service"`
	Ver      VersionCmd  `cmd:"" name:"version" help:"Print detailed version information"`
}

// AfterApply runs after flag parsing; sets up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the configuration named by the root flag.
func loadConfig(root *CLI) (*config.Config, error) {
	return config.Load(root.Config)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// brokerURL is the HTTP base URL auxiliary commands dial.
func brokerURL(cfg *config.Config) string {
	return "http://" + cfg.Broker.Addr()
}
