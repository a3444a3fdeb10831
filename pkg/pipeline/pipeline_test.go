package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/btgraph/pkg/cache"
	"github.com/matzehuels/btgraph/pkg/catalog"
	"github.com/matzehuels/btgraph/pkg/document"
	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/storage"
	"github.com/matzehuels/btgraph/pkg/tree"
)

const legacyGuard = `{
  "name": "Guard",
  "root_id": 1,
  "nodes": [
    {"id": 1, "name": "Root", "type": "Sequence", "children": [2, 3]},
    {"id": 2, "name": "Wait", "type": "Action", "actionType": "Wait", "parameters": {"seconds": 2}},
    {"id": 3, "name": "Target", "type": "Condition", "conditionType": "HasTarget"}
  ]
}`

// memCache is a map-backed cache that counts hits.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

var _ cache.Cache = (*memCache)(nil)

func testRunner(c cache.Cache) *Runner {
	r := NewRunner(c, nil, log.New(io.Discard))
	r.Migrator = &document.Migrator{
		Author: "tester",
		Now:    func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	r.Catalog = catalog.Builtin()
	return r
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	if r.Cache == nil || r.Keyer == nil || r.Logger == nil || r.Migrator == nil {
		t.Errorf("NewRunner() left nil fields: %+v", r)
	}
	if r.Catalog != nil {
		t.Error("NewRunner() should not set a catalog")
	}
}

func TestOpenLegacy(t *testing.T) {
	c := newMemCache()
	r := testRunner(c)
	ctx := context.Background()

	res, err := r.Open(ctx, []byte(legacyGuard))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !res.Migrated || res.CacheHit {
		t.Errorf("Open() migrated = %v, hit = %v, want true, false", res.Migrated, res.CacheHit)
	}
	if res.Graph == nil || res.Graph.Len() != 3 {
		t.Fatalf("Graph = %v, want 3 nodes", res.Graph)
	}
	if string(res.Original) != legacyGuard {
		t.Error("Original should hold the input bytes")
	}

	again, err := r.Open(ctx, []byte(legacyGuard))
	if err != nil {
		t.Fatalf("Open() second error = %v", err)
	}
	if !again.CacheHit || !again.Migrated {
		t.Errorf("second Open() hit = %v, migrated = %v, want true, true", again.CacheHit, again.Migrated)
	}
	if again.Graph.Len() != res.Graph.Len() {
		t.Errorf("cached graph has %d nodes, want %d", again.Graph.Len(), res.Graph.Len())
	}
}

func TestOpenCurrentSkipsCache(t *testing.T) {
	c := newMemCache()
	r := testRunner(c)
	ctx := context.Background()

	res, _ := r.Open(ctx, []byte(legacyGuard))
	data, err := document.Marshal(res.Document)
	if err != nil {
		t.Fatal(err)
	}
	entries := len(c.data)

	cur, err := r.Open(ctx, data)
	if err != nil {
		t.Fatalf("Open(current) error = %v", err)
	}
	if cur.Migrated || cur.CacheHit {
		t.Errorf("Open(current) migrated = %v, hit = %v", cur.Migrated, cur.CacheHit)
	}
	if len(c.data) != entries {
		t.Error("current documents should not be cached")
	}
}

func TestOpenNonTree(t *testing.T) {
	r := testRunner(nil)
	res, err := r.Open(context.Background(), []byte(`{"states": [], "initial": "idle"}`))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if res.Graph != nil {
		t.Error("non-tree documents should have no graph")
	}
	if res.Document.Kind != document.KindHFSM {
		t.Errorf("Kind = %s, want %s", res.Document.Kind, document.KindHFSM)
	}
}

func TestOpenErrors(t *testing.T) {
	r := testRunner(nil)
	tests := []struct {
		name string
		in   string
		code errors.Code
	}{
		{"not json", `{`, errors.ErrCodeParse},
		{"future schema", `{"schema_version": 9}`, errors.ErrCodeUnsupportedSchema},
		{"bad node", `{"root_id": 1, "nodes": [{"id": 1, "type": "Parallel"}]}`, errors.ErrCodeParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Open(context.Background(), []byte(tt.in))
			if !errors.Is(err, tt.code) {
				t.Errorf("Open() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestValidateCachesReport(t *testing.T) {
	c := newMemCache()
	r := testRunner(c)
	ctx := context.Background()

	res, err := r.Open(ctx, []byte(legacyGuard))
	if err != nil {
		t.Fatal(err)
	}
	hits := c.hits

	first := r.Validate(ctx, res.Graph)
	if !first.Valid {
		t.Fatalf("Validate() = %v, want valid", first.Diagnostics)
	}
	second := r.Validate(ctx, res.Graph)
	if c.hits != hits+1 {
		t.Errorf("cache hits = %d, want %d", c.hits, hits+1)
	}
	if second.Valid != first.Valid || len(second.Diagnostics) != len(first.Diagnostics) {
		t.Errorf("cached report = %+v, want %+v", second, first)
	}

	// A different catalog must not reuse the report.
	r.Catalog = catalog.New("empty")
	third := r.Validate(ctx, res.Graph)
	if third.Valid {
		t.Error("Validate() with empty catalog should report unknown types")
	}
}

func TestReportCounts(t *testing.T) {
	diags := []tree.Diagnostic{
		{Severity: tree.Critical},
		{Severity: tree.Error},
		{Severity: tree.Warning},
		{Severity: tree.Warning},
	}
	r := NewReport(diags)
	if r.Valid {
		t.Error("Valid = true with blocking diagnostics")
	}
	if r.Blocking() != 2 || r.Warnings() != 2 || r.Counts["Info"] != 0 {
		t.Errorf("Counts = %v", r.Counts)
	}
	if empty := NewReport(nil); empty.Diagnostics == nil || !empty.Valid {
		t.Errorf("NewReport(nil) = %+v", empty)
	}
}

func TestLayout(t *testing.T) {
	r := testRunner(nil)
	g := tree.New()
	root := g.CreateNode(tree.Sequence, 0, 0, "")
	a := g.CreateNode(tree.Action, 0, 0, "")
	g.Link(root, a)
	g.SetPosition(root, 5, 5)

	if got := r.Layout(context.Background(), g, false); got != 1 {
		t.Errorf("Layout(fill) = %d, want 1", got)
	}
	if n, _ := g.Node(root); n.Position != (tree.Position{X: 5, Y: 5}) {
		t.Errorf("fill moved placed root to %v", n.Position)
	}
	// The child already sits where a full layout puts it.
	if got := r.Layout(context.Background(), g, true); got != 1 {
		t.Errorf("Layout(all) = %d, want 1", got)
	}
}

func TestLoadMigratesAndBacksUp(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "guard", []byte(legacyGuard)); err != nil {
		t.Fatal(err)
	}

	r := testRunner(nil)
	res, err := r.Load(ctx, store, "guard")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !res.Migrated {
		t.Error("Load() migrated = false")
	}

	saved, _ := store.Load(ctx, "guard")
	if v, err := document.DetectVersion(saved); err != nil || v != document.CurrentVersion {
		t.Errorf("stored version = %d, %v, want %d", v, err, document.CurrentVersion)
	}

	again, err := r.Load(ctx, store, "guard")
	if err != nil || again.Migrated {
		t.Errorf("second Load() migrated = %v, err = %v", again.Migrated, err)
	}
}

func TestSaveGate(t *testing.T) {
	ctx := context.Background()
	store, _ := storage.NewFileStore(t.TempDir())
	r := testRunner(nil)

	t.Run("blocking", func(t *testing.T) {
		g := tree.New()
		root := g.CreateNode(tree.Sequence, 0, 0, "")
		dec := g.CreateNode(tree.Decorator, 0, 0, "")
		g.Link(root, dec)

		report, err := r.Save(ctx, store, "broken", g, true)
		if !errors.Is(err, errors.ErrCodeInvalidDocument) {
			t.Fatalf("Save() error = %v, want %s", err, errors.ErrCodeInvalidDocument)
		}
		if report == nil || report.Valid {
			t.Error("Save() should return the failing report")
		}
		if _, err := store.Load(ctx, "broken"); err == nil {
			t.Error("invalid graph was written")
		}
	})

	t.Run("warnings need force", func(t *testing.T) {
		g := tree.New()
		g.CreateNode(tree.Selector, 0, 0, "")

		_, err := r.Save(ctx, store, "empty", g, false)
		if !errors.Is(err, errors.ErrCodeNeedsConfirmation) {
			t.Fatalf("Save() error = %v, want %s", err, errors.ErrCodeNeedsConfirmation)
		}
		if _, err := r.Save(ctx, store, "empty", g, true); err != nil {
			t.Fatalf("Save(force) error = %v", err)
		}
	})

	t.Run("clean", func(t *testing.T) {
		g := tree.New()
		root := g.CreateNode(tree.Sequence, 0, 0, "")
		a := g.CreateNode(tree.Action, 0, 0, "")
		g.Link(root, a)
		g.SetSubtype(a, "Wait")
		g.SetParameter(a, "seconds", "1")

		if _, err := r.Save(ctx, store, "npc/clean", g, false); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		data, err := store.Load(ctx, "npc/clean")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"lastModified": "2024-03-01T12:00:00Z"`) {
			t.Errorf("saved document missing lastModified stamp:\n%s", data)
		}
	})
}

func TestBackendName(t *testing.T) {
	store, _ := storage.NewFileStore(t.TempDir())
	if got := backendName(store); got != "file" {
		t.Errorf("backendName() = %q, want file", got)
	}
}
