package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/jpdna/utils/cmd/pathtimer/commands"
	perrors "github.com/jpdna/utils/internal/errors"
	"github.com/jpdna/utils/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{Out: os.Stdout}

	parser := kong.Parse(cli,
		kong.Name("pathtimer"),
		kong.Description("Aggregate call-path timings from concurrent producers into one view."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global, cli),
	)

	if err := parser.Run(); err != nil {
		perrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
