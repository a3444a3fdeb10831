// Package pipeline orchestrates the document workflow shared by the CLI and
// the HTTP API.
//
// The pipeline connects the pure core packages to the collaborators around
// them: caching, persistence and observability. By centralizing this logic,
// every entry point migrates, validates and saves documents the same way.
//
// # Stages
//
//  1. Open: migrate the raw bytes to the current schema and build the graph
//  2. Validate: run the structural validator against the configured catalog
//  3. Layout: assign positions to unplaced (or all) nodes
//  4. Save: gate on the validation report and write to a [storage.Store]
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	runner.Catalog = catalog.Builtin()
//
//	res, err := runner.Open(ctx, data)
//	if err != nil {
//	    return err
//	}
//	report := runner.Validate(ctx, res.Graph)
//	if !report.Valid {
//	    // show report.Diagnostics
//	}
//
// Persisted documents go through [Runner.Load] and [Runner.Save], which also
// write the pre-migration backup and enforce the save gate.
package pipeline

import (
	"github.com/matzehuels/btgraph/pkg/document"
	"github.com/matzehuels/btgraph/pkg/tree"
)

// Catalog is a type catalog that can identify its contents. The fingerprint
// is part of the validation report cache key.
type Catalog interface {
	tree.Catalog
	Fingerprint() string
}

// noCatalog is the fingerprint used when validating without a catalog.
const noCatalog = "none"

// Result is the outcome of opening a document.
type Result struct {
	// Document is the current-schema document.
	Document *document.Document

	// Graph is the editable graph, nil for documents that are not trees.
	Graph *tree.Graph

	// Migrated reports whether the input was a legacy document.
	Migrated bool

	// Original holds the input bytes.
	Original []byte

	// CacheHit reports whether the migration came from the cache.
	CacheHit bool
}

// Report is the result of validating a graph.
type Report struct {
	Diagnostics []tree.Diagnostic `json:"diagnostics"`
	Valid       bool              `json:"valid"`
	Counts      map[string]int    `json:"counts"`

	// Cached reports whether the report came from the cache.
	Cached bool `json:"-"`
}

// NewReport summarizes diagnostics.
func NewReport(diags []tree.Diagnostic) *Report {
	if diags == nil {
		diags = []tree.Diagnostic{}
	}
	counts := make(map[string]int, 4)
	for _, s := range []tree.Severity{tree.Critical, tree.Error, tree.Warning, tree.Info} {
		counts[s.String()] = tree.Count(diags, s)
	}
	return &Report{
		Diagnostics: diags,
		Valid:       tree.IsValid(diags),
		Counts:      counts,
	}
}

// Blocking returns the number of Error and Critical diagnostics.
func (r *Report) Blocking() int {
	return r.Counts[tree.Error.String()] + r.Counts[tree.Critical.String()]
}

// Warnings returns the number of Warning diagnostics.
func (r *Report) Warnings() int {
	return r.Counts[tree.Warning.String()]
}

