package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"catalogtree/internal/adapters/source"
	"catalogtree/internal/adapters/sqlite"
	"catalogtree/internal/config"
	"catalogtree/internal/ports"
)

var (
	indexMaxDepth    int
	indexConcurrency int
	indexPageSize    int
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Crawl a source into a sqlite catalog",
	Long: `Mirror the configured source into a sqlite catalog that can later be
browsed with --source sqlite.

The catalog is written to --db, or to a file under $XDG_DATA_HOME derived
from --root.

Examples:
  catalogtree-cli index --root ~/archive
  catalogtree-cli index --source http --remote http://catalog:8080 --db remote.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if strings.EqualFold(cfg.Source, config.SourceSQLite) {
			return fmt.Errorf("index reads from fs, http or yaml sources; pick one with --source")
		}

		opened, err := source.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer opened.Close()

		dbPath, err := source.CatalogPath(cfg)
		if err != nil {
			return err
		}
		catalog, err := sqlite.Open(dbPath)
		if err != nil {
			return err
		}
		defer catalog.Close()

		stats, err := sqlite.Crawl(ctx, opened.Provider, catalog, sqlite.CrawlOptions{
			MaxDepth:    indexMaxDepth,
			Concurrency: indexConcurrency,
			PageSize:    indexPageSize,
			Logger:      logger,
		})
		if err != nil {
			return err
		}

		rootName := "catalog"
		if namer, ok := opened.Provider.(ports.RootNamer); ok {
			rootName = namer.RootName()
		}
		if err := catalog.SetSource(sourceLabel(), rootName); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d entries in %d branches (%d pages, %d failed) in %v\n",
			stats.Entries, stats.Branches, stats.PagesFetched, stats.Failed, stats.Duration.Round(time.Millisecond))
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog: %s\n", catalog.Path())
		return nil
	},
}

// sourceLabel describes the crawled source for the catalog metadata
func sourceLabel() string {
	switch strings.ToLower(cfg.Source) {
	case config.SourceHTTP:
		return cfg.Remote
	case config.SourceYAML:
		return cfg.Catalog
	}
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		return abs
	}
	return cfg.Root
}

func init() {
	f := indexCmd.Flags()
	f.IntVar(&indexMaxDepth, "max-depth", 0, "levels to mirror (0 mirrors everything)")
	f.IntVarP(&indexConcurrency, "concurrency", "j", 4, "branches listed in parallel")
	f.IntVar(&indexPageSize, "crawl-page-size", 200, "children requested per page while crawling")
	rootCmd.AddCommand(indexCmd)
}
