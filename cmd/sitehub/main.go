package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitehub/cmd/sitehub/commands"
	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("sitehub"),
		kong.Description("Caches per-site service handles and relays deployment and command events to live subscribers."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default(), Out: os.Stdout}
	if err := parser.Run(global, &cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
