package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/btgraph/pkg/document"
)

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		all   bool
		write bool
	)

	cmd := &cobra.Command{
		Use:   "layout FILE",
		Short: "Assign editor positions to tree nodes",
		Long: `Assign editor positions to tree nodes.

Nodes are placed breadth-first from the root: depth grows to the right and
siblings stack downwards. By default only nodes without a position are
placed; --all recomputes every reachable node. Spacing comes from the
[layout] section of the config.`,
		Example: `  btgraph layout guard.json
  btgraph layout --all --write guard.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			runner, err := c.newRunner(ctx, true, "")
			if err != nil {
				return err
			}
			defer runner.Close()

			res, err := openTreeFile(ctx, runner, path)
			if err != nil {
				return err
			}
			placed := runner.Layout(ctx, res.Graph, all)
			doc := document.FromGraph(res.Graph)
			loggerFromContext(ctx).Info("laid out tree", "nodes", res.Graph.Len(), "placed", placed)

			if !write {
				return document.Write(c.out, doc)
			}
			var original []byte
			if res.Migrated {
				original = res.Original
			}
			if err := writeDocument(path, doc, original); err != nil {
				return err
			}
			printSuccess(c.out, "Placed %s in %s", plural(placed, "node"), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "recompute positions of all reachable nodes")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the file in place")

	return cmd
}
