package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"catalogtree/internal/application/commands"
)

var lsAll bool

var lsCmd = &cobra.Command{
	Use:   "ls [key]",
	Short: "List the children of a node",
	Long: `List the children of a node, one page at a time.

Without --all only the first page is fetched.

Examples:
  catalogtree-cli ls
  catalogtree-cli ls docs --all
  catalogtree-cli --source yaml --catalog tree.yaml ls`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		model, closeSource, err := openModel(ctx, argOrRoot(args))
		if err != nil {
			return err
		}
		defer closeSource()

		if lsAll {
			if _, err := commands.NewExpandCommand(model, "", 0, 0).Execute(ctx); err != nil {
				return err
			}
		} else {
			if _, err := commands.NewFetchMoreCommand(model, "").Execute(ctx); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		for _, child := range model.Root().Children() {
			if child.Sentinel {
				fmt.Fprintln(out, "... more available (use --all)")
				continue
			}
			name := child.Name
			if child.Expandable {
				name += "/"
			}
			fmt.Fprintf(out, "%s\t%s\n", name, child.Key)
		}
		return nil
	},
}

func init() {
	lsCmd.Flags().BoolVarP(&lsAll, "all", "a", false, "fetch every page")
	rootCmd.AddCommand(lsCmd)
}
