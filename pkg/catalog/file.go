package catalog

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/tree"
)

// Format is a catalog file encoding.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidCatalog, "unsupported catalog extension %q (want .toml, .yaml or .json)", filepath.Ext(path))
	}
}

// File is the on-disk shape of a catalog.
type File struct {
	Name       string  `toml:"name" yaml:"name" json:"name"`
	Actions    []Entry `toml:"action" yaml:"actions" json:"actions" validate:"dive"`
	Conditions []Entry `toml:"condition" yaml:"conditions" json:"conditions" validate:"dive"`
	Decorators []Entry `toml:"decorator" yaml:"decorators" json:"decorators" validate:"dive"`
}

// Entry declares one subtype.
type Entry struct {
	ID          string  `toml:"id" yaml:"id" json:"id" validate:"required,typeid"`
	Name        string  `toml:"name" yaml:"name" json:"name"`
	Description string  `toml:"description" yaml:"description" json:"description"`
	Parameters  []Param `toml:"parameters" yaml:"parameters" json:"parameters" validate:"unique=Name,dive"`
}

// Param declares one parameter of a subtype.
type Param struct {
	Name        string `toml:"name" yaml:"name" json:"name" validate:"required,max=64"`
	Type        string `toml:"type" yaml:"type" json:"type" validate:"omitempty,oneof=string int float bool enum vector node"`
	Required    bool   `toml:"required" yaml:"required" json:"required"`
	Default     string `toml:"default" yaml:"default" json:"default"`
	Description string `toml:"description" yaml:"description" json:"description"`
}

// fileValidate checks decoded catalog files.
var fileValidate *validator.Validate

func init() {
	fileValidate = validator.New()
	_ = fileValidate.RegisterValidation("typeid", func(fl validator.FieldLevel) bool {
		return errors.ValidateTypeID(fl.Field().String()) == nil
	})
}

// Validate checks field constraints on the decoded file.
func (f *File) Validate() error {
	if err := fileValidate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			v := verrs[0]
			return errors.New(errors.ErrCodeInvalidCatalog, "%s: failed %q check (value %v)", v.Namespace(), v.Tag(), v.Value())
		}
		return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "validate catalog")
	}
	return nil
}

// Catalog builds a catalog from the file. Duplicate IDs within a category are
// rejected.
func (f *File) Catalog() (*Catalog, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c := New(f.Name)
	groups := []struct {
		cat     tree.Category
		entries []Entry
	}{
		{tree.Action, f.Actions},
		{tree.Condition, f.Conditions},
		{tree.Decorator, f.Decorators},
	}
	for _, g := range groups {
		for _, e := range g.entries {
			if err := c.Add(e.typeDef(g.cat)); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (e Entry) typeDef(cat tree.Category) tree.TypeDef {
	def := tree.TypeDef{
		ID:          e.ID,
		Category:    cat,
		Name:        e.Name,
		Description: e.Description,
	}
	if def.Name == "" {
		def.Name = e.ID
	}
	for _, p := range e.Parameters {
		def.Parameters = append(def.Parameters, tree.ParamDef{
			Name:        p.Name,
			Type:        p.Type,
			Required:    p.Required,
			Default:     p.Default,
			Description: p.Description,
		})
	}
	return def
}

// Parse decodes and validates a catalog in the given format.
func Parse(data []byte, format Format) (*Catalog, error) {
	var f File
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "decode toml catalog")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidCatalog, "unknown catalog key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "decode yaml catalog")
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "decode json catalog")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidCatalog, "unknown catalog format %q", format)
	}
	return f.Catalog()
}

// LoadFile reads a catalog file, choosing the format by extension. A missing
// name defaults to the file's base name.
func LoadFile(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "catalog %s not found", path)
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return c, nil
}
