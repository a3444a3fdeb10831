package catalog

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/btgraph/pkg/cache"
	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/tree"
)

// Catalog is an immutable-after-load set of type definitions. It is safe for
// concurrent reads.
type Catalog struct {
	Name string

	types map[tree.Category]map[string]tree.TypeDef

	fpOnce      sync.Once
	fingerprint string
}

// New creates an empty catalog.
func New(name string) *Catalog {
	return &Catalog{
		Name:  name,
		types: make(map[tree.Category]map[string]tree.TypeDef),
	}
}

// Add registers a type definition. Only subtype-carrying categories are
// accepted and IDs must be unique per category.
func (c *Catalog) Add(def tree.TypeDef) error {
	if !def.Category.HasSubtype() {
		return errors.New(errors.ErrCodeInvalidCatalog, "%s nodes have no subtypes", def.Category)
	}
	if err := errors.ValidateTypeID(def.ID); err != nil {
		return err
	}
	byID := c.types[def.Category]
	if byID == nil {
		byID = make(map[string]tree.TypeDef)
		c.types[def.Category] = byID
	}
	if _, exists := byID[def.ID]; exists {
		return errors.New(errors.ErrCodeInvalidCatalog, "duplicate %s type %q", def.Category, def.ID)
	}
	def.Parameters = slices.Clone(def.Parameters)
	byID[def.ID] = def
	return nil
}

// IsValidType reports whether id is a known subtype of the category.
func (c *Catalog) IsValidType(cat tree.Category, id string) bool {
	_, ok := c.types[cat][id]
	return ok
}

// FindType returns the definition of a subtype.
func (c *Catalog) FindType(cat tree.Category, id string) (tree.TypeDef, bool) {
	def, ok := c.types[cat][id]
	return def, ok
}

// Types returns the definitions of a category ordered by ID.
func (c *Catalog) Types(cat tree.Category) []tree.TypeDef {
	defs := slices.Collect(maps.Values(c.types[cat]))
	slices.SortFunc(defs, func(a, b tree.TypeDef) int { return cmp.Compare(a.ID, b.ID) })
	return defs
}

// Len returns the total number of definitions.
func (c *Catalog) Len() int {
	n := 0
	for _, byID := range c.types {
		n += len(byID)
	}
	return n
}

// Fingerprint returns a stable hash of the catalog contents. Two catalogs
// with the same definitions share a fingerprint regardless of load order,
// which makes it usable as part of a cache key.
func (c *Catalog) Fingerprint() string {
	c.fpOnce.Do(func() {
		var all []tree.TypeDef
		for _, cat := range tree.Categories() {
			all = append(all, c.Types(cat)...)
		}
		data, _ := json.Marshal(all)
		c.fingerprint = cache.Hash(data)
	})
	return c.fingerprint
}

// String returns a short description such as "guards (12 types)".
func (c *Catalog) String() string {
	return fmt.Sprintf("%s (%d types)", c.Name, c.Len())
}

// Ensure Catalog implements tree.Catalog.
var _ tree.Catalog = (*Catalog)(nil)
