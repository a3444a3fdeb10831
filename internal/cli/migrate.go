package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/btgraph/pkg/document"
	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/storage"
)

// migrateCommand creates the migrate command.
func (c *CLI) migrateCommand() *cobra.Command {
	var (
		write   bool
		noCache bool
		author  string
	)

	cmd := &cobra.Command{
		Use:   "migrate FILE...",
		Short: "Upgrade documents to the current schema",
		Long: `Upgrade documents to the current schema.

Without --write the migrated document is printed to stdout. With --write each
legacy file is rewritten in place and the original is kept as FILE` + storage.BackupSuffix + `.
Files already at the current schema are left untouched.`,
		Example: `  btgraph migrate guard.json
  btgraph migrate --write trees/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && !write {
				return errors.New(errors.ErrCodeInvalidInput, "migrating several files requires --write")
			}
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, noCache, "")
			if err != nil {
				return err
			}
			defer runner.Close()
			if author != "" {
				runner.Migrator.Author = author
			}

			if !write {
				res, err := openFile(ctx, runner, args[0])
				if err != nil {
					return err
				}
				return document.Write(c.out, res.Document)
			}

			prog := newProgress(loggerFromContext(ctx))
			migrated := make([]bool, len(args))
			errs := forEachFile(ctx, args, func(ctx context.Context, i int, path string) error {
				res, err := openFile(ctx, runner, path)
				if err != nil {
					return err
				}
				if !res.Migrated {
					return nil
				}
				migrated[i] = true
				return writeDocument(path, res.Document, res.Original)
			})

			upgraded := 0
			for i, path := range args {
				switch {
				case errs[i] != nil:
					printError(c.out, "%s: %s", path, errors.UserMessage(errs[i]))
				case migrated[i]:
					upgraded++
					printSuccess(c.out, "%s", path)
					printFile(c.out, storage.BackupPath(path))
				default:
					printInfo(c.out, "%s %s", path, StyleDim.Render("already current"))
				}
			}
			prog.done("Migrated " + plural(upgraded, "document"))

			if n := countErrors(errs); n > 0 {
				return errors.New(errors.ErrCodeInvalidDocument, "%d of %d files failed to migrate", n, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite files in place, keeping a backup")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the migration cache")
	cmd.Flags().StringVar(&author, "author", "", "author recorded in migrated metadata (default from config)")

	return cmd
}
