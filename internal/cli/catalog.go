package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/btgraph/pkg/catalog"
	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/tree"
)

// catalogCommand creates the catalog command.
func (c *CLI) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect type catalogs",
	}

	cmd.AddCommand(c.catalogListCommand())
	cmd.AddCommand(c.catalogCheckCommand())

	return cmd
}

// catalogListCommand creates the "catalog list" subcommand.
func (c *CLI) catalogListCommand() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the subtypes of a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(catalogPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, StyleTitle.Render(cat.Name)+" "+StyleDim.Render(plural(cat.Len(), "type")))
			for _, category := range []tree.Category{tree.Action, tree.Condition, tree.Decorator} {
				defs := cat.Types(category)
				if len(defs) == 0 {
					continue
				}
				fmt.Fprintln(c.out)
				fmt.Fprintln(c.out, StyleTitle.Render(category.String()))
				for _, def := range defs {
					printKeyValue(c.out, def.ID, describeParams(def))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "type catalog file (default from config, else builtin)")
	return cmd
}

// catalogCheckCommand creates the "catalog check" subcommand.
func (c *CLI) catalogCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Parse and validate catalog files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				cat, err := catalog.LoadFile(path)
				if err != nil {
					failed++
					printError(c.out, "%s: %s", path, errors.UserMessage(err))
					continue
				}
				printSuccess(c.out, "%s %s", path, StyleDim.Render(plural(cat.Len(), "type")))
				printDetail(c.out, "fingerprint %s", cat.Fingerprint()[:12])
			}
			if failed > 0 {
				return errors.New(errors.ErrCodeInvalidCatalog, "%d of %d catalogs are invalid", failed, len(args))
			}
			return nil
		},
	}
}

func describeParams(def tree.TypeDef) string {
	if len(def.Parameters) == 0 {
		return StyleDim.Render("no parameters")
	}
	parts := make([]string, len(def.Parameters))
	for i, p := range def.Parameters {
		s := p.Name
		if p.Type != "" {
			s += ":" + p.Type
		}
		if p.Required {
			s += "*"
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}
