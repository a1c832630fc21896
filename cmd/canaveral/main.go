// Command canaveral builds, signs, notarizes, and publishes mobile and
// desktop app releases across Apple App Store Connect, Google Play,
// Microsoft Partner Center, Firebase App Distribution, and TestFlight.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/lucasilverentand/canaveral/internal/cli"
	"github.com/lucasilverentand/canaveral/internal/help"
	"github.com/lucasilverentand/canaveral/internal/ui"
)

// version is set via -ldflags at build time, or auto-detected from Go module info.
var version = "dev"

// getVersion returns the version string, preferring the ldflags-set
// version, falling back to Go's embedded build info (set when installed via
// `go install module@version`), or "dev" if neither is available.
func getVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

func main() {
	sigHandler := cli.NewSignalHandler()
	defer sigHandler.Stop()

	exitCode := run(os.Args[1:], sigHandler)
	os.Exit(exitCode)
}

func run(args []string, sigHandler *cli.SignalHandler) int {
	ui.SetContext(sigHandler.Context())
	ui.SetVersion(getVersion())

	global, rest := cli.ExtractGlobalFlags(args)
	if global.NoColor {
		ui.SetNoColor(true)
	}

	if global.Version {
		fmt.Print(ui.RenderLogo())
		return 0
	}

	command := cli.CommandUnknown
	if len(rest) > 0 {
		command = cli.ParseCommand(rest[0])
	}

	if global.Help {
		help.HandleHelp(command, rest)
		return 0
	}

	switch command {
	case cli.CommandSigning:
		return cli.RunSigning(global, rest[1:])
	case cli.CommandStore:
		return cli.RunStore(global, rest[1:])
	case cli.CommandTestflight:
		return cli.RunTestflight(global, rest[1:])
	default:
		help.HandleHelp(cli.CommandUnknown, nil)
		return 0
	}
}
