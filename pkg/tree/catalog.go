package tree

// ParamDef describes one parameter a catalog type accepts.
type ParamDef struct {
	Name        string
	Type        string // "string", "int", "float", "bool", ... informational only
	Required    bool
	Default     string
	Description string
}

// TypeDef describes a leaf or decorator subtype known to the catalog.
type TypeDef struct {
	ID          string
	Category    Category
	Name        string
	Description string
	Parameters  []ParamDef
}

// RequiredParameters returns the names of the required parameters in
// declaration order.
func (t TypeDef) RequiredParameters() []string {
	var out []string
	for _, p := range t.Parameters {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Catalog is the read-only lookup of valid node subtypes.
type Catalog interface {
	// IsValidType reports whether id is a known subtype of the category.
	IsValidType(c Category, id string) bool
	// FindType returns the definition of a subtype.
	FindType(c Category, id string) (TypeDef, bool)
}
