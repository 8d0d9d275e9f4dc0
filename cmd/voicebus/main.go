package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/voicebus/cmd/voicebus/commands"
	"git.home.luguber.info/inful/voicebus/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("voicebus"),
		kong.Description("State bus for the voice assistant: broker, watchdog, playback, event log."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	if err := ctx.Run(&commands.Global{}, cli); err != nil {
		fmt.Fprintf(os.Stderr, "voicebus: %v\n", err)
		os.Exit(1)
	}
}
