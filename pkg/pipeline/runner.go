package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/btgraph/pkg/cache"
	"github.com/matzehuels/btgraph/pkg/document"
	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/observability"
	"github.com/matzehuels/btgraph/pkg/storage"
	"github.com/matzehuels/btgraph/pkg/tree"
	"github.com/matzehuels/btgraph/pkg/tree/layout"
)

// Cache key types reported to observability hooks.
const (
	keyTypeMigration = "migration"
	keyTypeReport    = "report"
)

// Runner encapsulates the document workflow with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner holds no per-document state. Multiple goroutines can safely
// use the same Runner as long as its fields are not modified.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	Migrator *document.Migrator
	Catalog  Catalog
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// The runner starts with a zero Migrator and no catalog.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		Migrator: &document.Migrator{},
	}
}

// =============================================================================
// Open
// =============================================================================

// Open migrates data to the current schema and builds its graph. Legacy
// migrations are cached by input hash; current documents are decoded
// directly.
func (r *Runner) Open(ctx context.Context, data []byte) (*Result, error) {
	version, err := document.DetectVersion(data)
	if err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnMigrateStart(ctx, version)
	start := time.Now()
	doc, migrated, hit, err := r.migrate(ctx, data, version)
	hooks.OnMigrateComplete(ctx, version, migrated, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Document: doc,
		Migrated: migrated,
		Original: data,
		CacheHit: hit,
	}
	if doc.IsTree() {
		g, err := document.ToGraph(doc)
		if err != nil {
			return nil, err
		}
		res.Graph = g
	}

	r.Logger.Debug("opened document",
		"name", doc.Name,
		"kind", doc.Kind,
		"version", version,
		"migrated", migrated,
		"cached", hit,
		"duration", time.Since(start))
	return res, nil
}

func (r *Runner) migrate(ctx context.Context, data []byte, version int) (*document.Document, bool, bool, error) {
	m := r.migrator()
	if version == document.CurrentVersion {
		doc, migrated, err := m.Migrate(data)
		return doc, migrated, false, err
	}

	key := r.Keyer.MigrationKey(cache.Hash(data), cache.MigrationKeyOpts{
		Author:   m.Author,
		StartX:   m.Layout.StartX,
		StartY:   m.Layout.StartY,
		HSpacing: m.Layout.HSpacing,
		VSpacing: m.Layout.VSpacing,
	})
	cacheHooks := observability.Cache()
	if cached, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		if doc, err := document.Parse(cached); err == nil {
			cacheHooks.OnCacheHit(ctx, keyTypeMigration)
			return doc, true, true, nil
		}
	}
	cacheHooks.OnCacheMiss(ctx, keyTypeMigration)

	doc, migrated, err := m.Migrate(data)
	if err != nil {
		return nil, false, false, err
	}
	if out, err := document.Marshal(doc); err == nil {
		if err := r.Cache.Set(ctx, key, out, cache.MigrationTTL); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "error", err)
		} else {
			cacheHooks.OnCacheSet(ctx, keyTypeMigration, len(out))
		}
	}
	return doc, migrated, false, nil
}

func (r *Runner) migrator() *document.Migrator {
	if r.Migrator == nil {
		return &document.Migrator{}
	}
	return r.Migrator
}

// =============================================================================
// Validate
// =============================================================================

// Validate runs the structural validator against the runner's catalog.
// Reports are cached by the graph's serialized hash and the catalog
// fingerprint.
func (r *Runner) Validate(ctx context.Context, g *tree.Graph) *Report {
	hooks := observability.Pipeline()
	hooks.OnValidateStart(ctx, g.Len())
	start := time.Now()

	report, hit := r.validate(ctx, g)

	hooks.OnValidateComplete(ctx, g.Len(), len(report.Diagnostics), report.Valid, time.Since(start))
	r.Logger.Debug("validated graph",
		"nodes", g.Len(),
		"diagnostics", len(report.Diagnostics),
		"valid", report.Valid,
		"cached", hit,
		"duration", time.Since(start))
	return report
}

func (r *Runner) validate(ctx context.Context, g *tree.Graph) (*Report, bool) {
	var (
		cat         tree.Catalog
		fingerprint = noCatalog
	)
	if r.Catalog != nil {
		cat = r.Catalog
		fingerprint = r.Catalog.Fingerprint()
	}

	data, err := document.Marshal(document.FromGraph(g))
	if err != nil {
		return NewReport(tree.NewValidator(cat).Validate(g)), false
	}
	key := r.Keyer.ReportKey(cache.Hash(data), fingerprint)

	cacheHooks := observability.Cache()
	if cached, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var report Report
		if err := json.Unmarshal(cached, &report); err == nil {
			cacheHooks.OnCacheHit(ctx, keyTypeReport)
			report.Cached = true
			return &report, true
		}
	}
	cacheHooks.OnCacheMiss(ctx, keyTypeReport)

	report := NewReport(tree.NewValidator(cat).Validate(g))
	if out, err := json.Marshal(report); err == nil {
		if err := r.Cache.Set(ctx, key, out, cache.ReportTTL); err == nil {
			cacheHooks.OnCacheSet(ctx, keyTypeReport, len(out))
		}
	}
	return report, false
}

// =============================================================================
// Layout
// =============================================================================

// Layout positions nodes with the migrator's layout options. With all set,
// every reachable node is moved; otherwise only nodes still at the origin
// are placed. It returns the number of nodes moved.
func (r *Runner) Layout(ctx context.Context, g *tree.Graph, all bool) int {
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, g.Len())
	start := time.Now()

	opts := r.migrator().Layout
	var placed int
	if all {
		placed = layout.Apply(g, layout.Compute(g, opts))
	} else {
		placed = layout.Fill(g, opts)
	}

	hooks.OnLayoutComplete(ctx, placed, time.Since(start))
	r.Logger.Debug("computed layout", "nodes", g.Len(), "placed", placed, "all", all)
	return placed
}

// =============================================================================
// Persistence
// =============================================================================

// Load reads a document from the store and opens it. A legacy document is
// backed up and rewritten in the current schema before Load returns.
func (r *Runner) Load(ctx context.Context, store storage.Store, name string) (*Result, error) {
	data, err := store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	res, err := r.Open(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if !res.Migrated {
		return res, nil
	}

	if err := store.Backup(ctx, name, data); err != nil {
		return nil, fmt.Errorf("backup %s: %w", name, err)
	}
	out, err := document.Marshal(res.Document)
	if err != nil {
		return nil, err
	}
	if err := r.put(ctx, store, name, out); err != nil {
		return nil, err
	}
	r.Logger.Info("migrated document", "name", name, "backup", true)
	return res, nil
}

// Save validates g and writes it to the store. Graphs with Error or
// Critical diagnostics are refused with ErrCodeInvalidDocument. Graphs with
// warnings are refused with ErrCodeNeedsConfirmation unless force is set.
// The report is returned in every case where validation ran.
func (r *Runner) Save(ctx context.Context, store storage.Store, name string, g *tree.Graph, force bool) (*Report, error) {
	report := r.Validate(ctx, g)
	if !report.Valid {
		return report, errors.New(errors.ErrCodeInvalidDocument,
			"%s has %d blocking problem(s)", name, report.Blocking())
	}
	if report.Warnings() > 0 && !force {
		return report, errors.New(errors.ErrCodeNeedsConfirmation,
			"%s has %d warning(s); save again to confirm", name, report.Warnings())
	}

	doc := document.FromGraph(g)
	doc.Metadata.LastModified = r.now().UTC().Format(time.RFC3339)
	out, err := document.Marshal(doc)
	if err != nil {
		return report, err
	}
	if err := r.put(ctx, store, name, out); err != nil {
		return report, err
	}
	r.Logger.Info("saved document", "name", name, "nodes", g.Len(), "warnings", report.Warnings())
	return report, nil
}

func (r *Runner) put(ctx context.Context, store storage.Store, name string, data []byte) error {
	start := time.Now()
	err := store.Save(ctx, name, data)
	observability.Pipeline().OnSaveComplete(ctx, backendName(store), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (r *Runner) now() time.Time {
	if m := r.migrator(); m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func backendName(s storage.Store) string {
	switch s.(type) {
	case *storage.FileStore:
		return "file"
	case *storage.MongoStore:
		return "mongo"
	default:
		return "other"
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
