package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"catalogtree/internal/application/commands"
)

var (
	searchDepth    int
	searchMaxPages int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy search entry names",
	Long: `Load the tree down to --depth levels and fuzzy match entry names.

Only loaded entries are searched. Results are ranked by match quality.

Examples:
  catalogtree-cli search readme
  catalogtree-cli search mn.go --depth 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		model, closeSource, err := openModel(ctx, "")
		if err != nil {
			return err
		}
		defer closeSource()

		expanded, err := commands.NewExpandCommand(model, "", searchDepth, searchMaxPages).Execute(ctx)
		if err != nil {
			return err
		}

		results, err := commands.NewSearchCommand(model, args[0]).Execute(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No results found")
		}
		for _, r := range results {
			fmt.Fprintf(out, "%s\t%s\n", r.Node.Name, r.Node.Key)
		}
		if !expanded.Complete {
			fmt.Fprintf(cmd.ErrOrStderr(), "searched %d loaded entries; raise --depth or --max-pages to search more\n", expanded.Nodes)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchDepth, "depth", "d", 3, "levels to load before searching")
	searchCmd.Flags().IntVar(&searchMaxPages, "max-pages", 0, "pages per branch (0 loads everything)")
	rootCmd.AddCommand(searchCmd)
}
