package cmd

import (
	"github.com/spf13/cobra"

	"catalogtree/internal/application/commands"
)

var (
	treeDepth    int
	treeMaxPages int
)

var treeCmd = &cobra.Command{
	Use:   "tree [key]",
	Short: "Display a subtree",
	Long: `Load a subtree down to --depth levels and print it.

Branches with more pages than --max-pages end in a load-more row.

Example:
  catalogtree-cli tree --depth 3 --max-pages 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		model, closeSource, err := openModel(ctx, argOrRoot(args))
		if err != nil {
			return err
		}
		defer closeSource()

		if treeDepth > 0 {
			if _, err := commands.NewExpandCommand(model, "", treeDepth-1, treeMaxPages).Execute(ctx); err != nil {
				return err
			}
		}
		return commands.NewRenderTreeCommand(model, "", cmd.OutOrStdout()).Execute(ctx)
	},
}

func init() {
	treeCmd.Flags().IntVarP(&treeDepth, "depth", "d", 2, "levels to load")
	treeCmd.Flags().IntVar(&treeMaxPages, "max-pages", 1, "pages per branch (0 loads everything)")
	rootCmd.AddCommand(treeCmd)
}
