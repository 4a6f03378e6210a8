package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"catalogtree/internal/application/commands"
)

var (
	selectDepth    int
	selectMaxPages int
	selectExcept   []string
	selectMode     string
	selectFormat   string
	selectOutput   string
)

var selectCmd = &cobra.Command{
	Use:   "select <key>...",
	Short: "Check entries and export the selection",
	Long: `Load the tree down to --depth levels, check every given key and write
the resulting selection as YAML or JSON.

Checking a branch checks everything loaded below it; --except unchecks
entries again, leaving their ancestors partially checked.

Examples:
  catalogtree-cli select docs src/main.go
  catalogtree-cli select docs --except docs/drafts --format json -o selection.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		model, closeSource, err := openModel(ctx, "")
		if err != nil {
			return err
		}
		defer closeSource()

		export := commands.NewExportSelectionCommand(model, selectMode, selectFormat, io.Discard)
		if err := export.Validate(); err != nil {
			return err
		}

		if _, err := commands.NewExpandCommand(model, "", selectDepth, selectMaxPages).Execute(ctx); err != nil {
			return err
		}
		for _, key := range args {
			if _, err := commands.NewSetCheckedCommand(model, key, "checked").Execute(ctx); err != nil {
				return err
			}
		}
		for _, key := range selectExcept {
			if _, err := commands.NewSetCheckedCommand(model, key, "unchecked").Execute(ctx); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if selectOutput != "" {
			f, err := os.Create(selectOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", selectOutput, err)
			}
			defer f.Close()
			out = f
		}

		n, err := commands.NewExportSelectionCommand(model, selectMode, selectFormat, out).Execute(ctx)
		if err != nil {
			return err
		}
		logger.WithField("entries", n).Info("exported selection")
		if selectOutput != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d entries to %s\n", n, selectOutput)
		}
		return nil
	},
}

func init() {
	f := selectCmd.Flags()
	f.IntVarP(&selectDepth, "depth", "d", 3, "levels to load before resolving keys")
	f.IntVar(&selectMaxPages, "max-pages", 0, "pages per branch (0 loads everything)")
	f.StringSliceVar(&selectExcept, "except", nil, "keys to uncheck after checking")
	f.StringVarP(&selectMode, "mode", "m", "roots", "roots or leaves")
	f.StringVarP(&selectFormat, "format", "f", "yaml", "yaml or json")
	f.StringVarP(&selectOutput, "output", "o", "", "write to this file instead of stdout")
	rootCmd.AddCommand(selectCmd)
}
