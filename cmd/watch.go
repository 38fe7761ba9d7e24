package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/templhead/internal/loader"
	"github.com/conneroisu/templhead/internal/logging"
	"github.com/conneroisu/templhead/internal/watcher"
)

var watchFlags *StandardFlags

var watchCmd = &cobra.Command{
	Use:     "watch [files...]",
	Aliases: []string{"w"},
	Short:   "Re-render the head whenever a declaration file changes",
	Long: `Watch renders the declaration files once, then reloads a file whenever it
changes on disk and prints the new rendering. A file that fails to parse
keeps its previous declarations until it is fixed.

Examples:
  templhead watch site.yml page.yml
  templhead watch -o json site.yml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchFlags = AddStandardFlags(watchCmd, "output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := watchFlags.ValidateFlags(); err != nil {
		return err
	}

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

	show := func(ctx context.Context) error {
		out, err := h.RenderToString(ctx)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if watchFlags.OutputFormat == FormatText {
			fmt.Fprintf(w, "--- %s\n", time.Now().Format(time.TimeOnly))
			return writeSections(w, headSections(out))
		}
		return writeValue(w, watchFlags.OutputFormat, out)
	}
	if err := show(ctx); err != nil {
		return err
	}

	fw, err := watchDeclarations(ctx, cfg.Watch.Debounce, logger, l, func(ctx context.Context) {
		if err := show(ctx); err != nil {
			logger.Error(ctx, err, "Render failed")
		}
	})
	if err != nil {
		return err
	}
	defer fw.Stop()

	logger.Info(ctx, "Watching for changes (Press Ctrl+C to stop)", "files", len(files))
	<-ctx.Done()
	return nil
}

// watchDeclarations reloads the files of l when they change and calls
// changed after each batch that reloaded at least one file.
func watchDeclarations(ctx context.Context, debounce time.Duration, logger logging.Logger,
	l *loader.Loader, changed func(context.Context)) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(debounce, logger)
	if err != nil {
		return nil, err
	}
	fw.AddFilter(watcher.DeclarationFilter)
	fw.AddFilter(watcher.NoBackupFilter)

	// Events carry absolute paths; the loader knows files by their given name.
	names := make(map[string]string)
	for _, f := range l.Files() {
		if err := fw.AddFile(f); err != nil {
			fw.Stop()
			return nil, err
		}
		if abs, err := filepath.Abs(f); err == nil {
			names[abs] = f
		}
	}

	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		reloaded := 0
		for _, event := range events {
			if event.Type == watcher.EventTypeDeleted {
				logger.Warn(ctx, nil, "Declaration file removed, keeping its entries", "file", event.Path)
				continue
			}
			name, ok := names[event.Path]
			if !ok {
				name = event.Path
			}
			if err := l.Reload(ctx, name); err != nil {
				logger.Error(ctx, err, "Reload failed, keeping previous declarations", "file", event.Path)
				continue
			}
			reloaded++
		}
		if reloaded > 0 {
			changed(ctx)
		}
		return nil
	})

	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return nil, err
	}
	return fw, nil
}

