package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/pipeline"
)

// fileReport is the validation outcome of one file.
type fileReport struct {
	Path     string           `json:"path"`
	Migrated bool             `json:"migrated"`
	Report   *pipeline.Report `json:"report,omitempty"`
	Error    string           `json:"error,omitempty"`

	err error
}

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		catalogPath string
		asJSON      bool
		watch       bool
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check behavior tree documents for structural problems",
		Long: `Check behavior tree documents for structural problems.

Legacy documents are migrated in memory first; files are never modified.
Subtypes and required parameters are checked against the type catalog
(--catalog, the configured catalog, or the builtin one). The command fails
when any document has Error or Critical findings.`,
		Example: `  btgraph validate guard.json
  btgraph validate --catalog game.toml --json trees/*.json
  btgraph validate --watch guard.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, noCache, catalogPath)
			if err != nil {
				return err
			}
			defer runner.Close()

			prog := newProgress(loggerFromContext(ctx))
			reports := validateFiles(ctx, runner, args)
			if err := c.printReports(reports, asJSON); err != nil {
				return err
			}
			prog.done("Validated " + plural(len(reports), "document"))

			if watch {
				return c.watchFiles(ctx, args, func(ctx context.Context, path string) {
					_ = c.printReports(validateFiles(ctx, runner, []string{path}), asJSON)
				})
			}
			return reportsError(reports)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "type catalog file (toml, yaml or json)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-validate files when they change")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")

	return cmd
}

// validateFiles opens and validates every path concurrently.
func validateFiles(ctx context.Context, runner *pipeline.Runner, paths []string) []fileReport {
	reports := make([]fileReport, len(paths))
	errs := forEachFile(ctx, paths, func(ctx context.Context, i int, path string) error {
		res, err := openTreeFile(ctx, runner, path)
		if err != nil {
			return err
		}
		reports[i].Migrated = res.Migrated
		reports[i].Report = runner.Validate(ctx, res.Graph)
		return nil
	})
	for i, path := range paths {
		reports[i].Path = path
		if errs[i] != nil {
			reports[i].err = errs[i]
			reports[i].Error = errs[i].Error()
		}
	}
	return reports
}

func (c *CLI) printReports(reports []fileReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, r := range reports {
		if r.err != nil {
			printError(c.out, "%s: %s", r.Path, errors.UserMessage(r.err))
			continue
		}
		printReport(c.out, r.Path, r.Report, r.Report.Cached)
	}
	return nil
}

// reportsError summarizes failures across files, or returns nil.
func reportsError(reports []fileReport) error {
	failed := 0
	for _, r := range reports {
		if r.err != nil || !r.Report.Valid {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeInvalidDocument, "%d of %d documents failed validation", failed, len(reports))
}
