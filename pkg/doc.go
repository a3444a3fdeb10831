// Package pkg provides the core libraries for btgraph, a toolkit for editing
// and checking behavior-tree documents.
//
// # Overview
//
// A behavior tree is stored as a versioned JSON document. The pkg directory
// is organized into three areas:
//
//  1. Core: [tree] (node graph, connection rules, structural validation),
//     [tree/layout] (breadth-first placement) and [document] (schema detection
//     and migration from the legacy format)
//  2. Infrastructure: [cache], [storage], [catalog], [errors] and
//     [observability]
//  3. Orchestration: [pipeline] (open, validate, lay out, save)
//
// # Architecture
//
// The typical data flow through btgraph:
//
//	Raw document bytes (v1 or v2)
//	         ↓
//	    [document] package (detect version, migrate to v2)
//	         ↓
//	    [tree] package (graph + validation against a [catalog])
//	         ↓
//	    [tree/layout] package (positions for unplaced nodes)
//	         ↓
//	    [storage] package (save, gated by the validation report)
//
// # Quick Start
//
// Open a legacy document, check it and lay it out:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/btgraph/pkg/catalog"
//	    "github.com/matzehuels/btgraph/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	runner.Catalog = catalog.Builtin()
//
//	res, err := runner.Open(ctx, data)
//	if err != nil {
//	    return err
//	}
//	report := runner.Validate(ctx, res.Graph)
//	runner.Layout(ctx, res.Graph, false)
//
// The CLI (cmd/btgraph) and the HTTP API (internal/api) are thin shells over
// [pipeline.Runner].
package pkg
