package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/templhead/internal/server"
)

var serveFlags *StandardFlags

var serveCmd = &cobra.Command{
	Use:     "serve [files...]",
	Aliases: []string{"s"},
	Short:   "Start the preview server with live head updates",
	Long: `Serve renders the declaration files into a preview page and pushes the
new head to open pages over a websocket whenever a file changes. With
server.page set, that HTML document is reconciled and served instead of the
built-in page.

Endpoints:
  /           preview page
  /head.json  current rendering as JSON
  /ws         live updates
  /health     status

Examples:
  templhead serve site.yml
  templhead serve --port 3000 site.yml page.yml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveFlags = AddStandardFlags(serveCmd, "server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, h, err := setup(cmd)
	if err != nil {
		return err
	}
	files, err := declarationFiles(cfg, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := loadHead(ctx, h, logger, files)
	if err != nil {
		return err
	}

	// Registry events reach the server directly; nothing to do per batch.
	fw, err := watchDeclarations(ctx, cfg.Watch.Debounce, logger, l, func(context.Context) {})
	if err != nil {
		return err
	}
	defer fw.Stop()

	srv := server.New(cfg, h, logger)
	return srv.Start(ctx)
}
