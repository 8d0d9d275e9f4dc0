package commands

import (
	"fmt"
	"runtime"

	"git.home.luguber.info/inful/voicebus/internal/version"
)

// VersionCmd prints detailed build information.
type VersionCmd struct{}

func (VersionCmd) Run(_ *Global, _ *CLI) error {
	fmt.Printf("voicebus %s\n", version.Version)
	fmt.Printf("  commit:     %s\n", version.GitCommit)
	fmt.Printf("  built:      %s\n", version.BuildTime)
	fmt.Printf("  go version: %s\n", runtime.Version())
	return nil
}
