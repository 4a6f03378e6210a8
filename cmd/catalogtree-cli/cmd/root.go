package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"catalogtree/internal/adapters/source"
	"catalogtree/internal/application"
	"catalogtree/internal/config"
)

var (
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
	closeLog   = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "catalogtree-cli",
	Short: "Browse large hierarchical catalogs one page at a time",
	Long: `catalogtree-cli lists, renders and selects entries of a hierarchical
catalog whose children are fetched lazily, one page at a time.

Catalogs can come from a directory tree (fs), a crawled sqlite index
(sqlite), a remote catalog server (http) or a YAML document (yaml).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		loaded, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		l, closer, err := config.LoggerFor(loaded, os.Stderr)
		if err != nil {
			return err
		}
		cfg, logger, closeLog = loaded, l, closer
		if f := cfg.File(); f != "" {
			logger.WithField("file", f).Debug("loaded config")
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultConfigFile()+")")
	flags.StringP("source", "s", config.SourceFilesystem, "catalog source: fs, sqlite, http or yaml")
	flags.StringP("root", "r", config.RootPath(), "root directory of the fs source")
	flags.String("db", "", "sqlite catalog (default derived from --root)")
	flags.String("remote", "", "base URL of a catalog server")
	flags.String("catalog", "", "YAML catalog document")
	flags.IntP("page-size", "n", application.DefaultPageSize, "children fetched per page")
	flags.Bool("show-hidden", false, "list dot files of the fs source")
	flags.String("log-level", "warn", "log level: debug, info, warn, error or off")
	flags.String("log-file", "", "write logs to this file instead of stderr")
}

// openModel opens the configured source and builds a tree model rooted at
// key. The returned func releases the source.
func openModel(ctx context.Context, key string) (*application.LazyTreeModel, func() error, error) {
	opened, err := source.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	opts := []application.ModelOption{
		application.WithPageSize(cfg.PageSize),
		application.WithLogger(logger),
	}
	if key != "" {
		opts = append(opts, application.WithRoot(path.Base(key), key))
	}
	return application.NewLazyTreeModel(opened.Provider, opts...), opened.Close, nil
}

func argOrRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
