package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"catalogtree/internal/adapters/editor"
	"catalogtree/internal/adapters/source"
	"catalogtree/internal/adapters/tui"
	"catalogtree/internal/adapters/tui/views"
	"catalogtree/internal/adapters/watcher"
	"catalogtree/internal/application"
	"catalogtree/internal/config"
)

func main() {
	flags := pflag.NewFlagSet("catalogtree", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "config file (default "+config.DefaultConfigFile()+")")
	flags.StringP("source", "s", config.SourceFilesystem, "catalog source: fs, sqlite, http or yaml")
	flags.StringP("root", "r", config.RootPath(), "root directory of the fs source")
	flags.String("db", "", "sqlite catalog (default derived from --root)")
	flags.String("remote", "", "base URL of a catalog server")
	flags.String("catalog", "", "YAML catalog document")
	flags.IntP("page-size", "n", application.DefaultPageSize, "children fetched per page")
	flags.Bool("show-hidden", false, "list dot files of the fs source")
	flags.String("log-level", "warn", "log level: debug, info, warn, error or off")
	flags.String("log-file", "", "log file; the terminal belongs to the UI")
	noWatch := flags.Bool("no-watch", false, "do not reload directories that change on disk")
	_ = flags.Parse(os.Args[1:])

	if err := run(*configPath, flags, !*noWatch); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, flags *pflag.FlagSet, watch bool) error {
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Without a log file there is nowhere to log to
	log, closeLog, err := config.LoggerFor(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opened, err := source.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer opened.Close()

	model := application.NewLazyTreeModel(opened.Provider,
		application.WithPageSize(cfg.PageSize),
		application.WithLogger(log),
	)

	opts := tui.Options{
		BrowserOptions: []views.BrowserOption{views.WithLogger(log)},
	}
	if fs := opened.Filesystem; fs != nil {
		opts.Editor = editor.NewOpener(cfg.Editor)
		opts.Resolve = fs.Path
		if watch {
			w, err := watcher.New(fs.Path, log)
			if err != nil {
				log.WithError(err).Warn("live reload disabled")
			} else {
				defer w.Close()
				opts.Watcher = w
			}
		}
	}

	app := tui.NewApp(ctx, model, opts)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
