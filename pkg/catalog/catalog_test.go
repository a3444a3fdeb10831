package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/tree"
)

const tomlCatalog = `
name = "guards"

[[action]]
id = "MoveTo"

  [[action.parameters]]
  name = "target"
  required = true

  [[action.parameters]]
  name = "speed"
  type = "float"

[[condition]]
id = "HasTarget"

[[decorator]]
id = "Inverter"
`

const yamlCatalog = `
name: guards
actions:
  - id: MoveTo
    parameters:
      - name: target
        required: true
      - name: speed
        type: float
conditions:
  - id: HasTarget
decorators:
  - id: Inverter
`

const jsonCatalog = `{
  "name": "guards",
  "actions": [{"id": "MoveTo", "parameters": [{"name": "target", "required": true}, {"name": "speed", "type": "float"}]}],
  "conditions": [{"id": "HasTarget"}],
  "decorators": [{"id": "Inverter"}]
}`

func TestParseFormats(t *testing.T) {
	inputs := map[Format]string{
		FormatTOML: tomlCatalog,
		FormatYAML: yamlCatalog,
		FormatJSON: jsonCatalog,
	}
	var fingerprints []string
	for format, in := range inputs {
		t.Run(string(format), func(t *testing.T) {
			c, err := Parse([]byte(in), format)
			require.NoError(t, err)

			assert.Equal(t, "guards", c.Name)
			assert.Equal(t, 3, c.Len())
			assert.True(t, c.IsValidType(tree.Action, "MoveTo"))
			assert.True(t, c.IsValidType(tree.Condition, "HasTarget"))
			assert.True(t, c.IsValidType(tree.Decorator, "Inverter"))
			assert.False(t, c.IsValidType(tree.Condition, "MoveTo"), "types are scoped by category")

			def, ok := c.FindType(tree.Action, "MoveTo")
			require.True(t, ok)
			assert.Equal(t, "MoveTo", def.Name, "name defaults to id")
			assert.Equal(t, []string{"target"}, def.RequiredParameters())

			fingerprints = append(fingerprints, c.Fingerprint())
		})
	}
	require.Len(t, fingerprints, 3)
	assert.Equal(t, fingerprints[0], fingerprints[1])
	assert.Equal(t, fingerprints[1], fingerprints[2])
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		in     string
	}{
		{"duplicate id", FormatTOML, "[[action]]\nid = \"A\"\n[[action]]\nid = \"A\"\n"},
		{"missing id", FormatYAML, "actions:\n  - name: nothing\n"},
		{"bad id", FormatJSON, `{"actions": [{"id": "has space"}]}`},
		{"bad param type", FormatYAML, "actions:\n  - id: A\n    parameters:\n      - name: p\n        type: matrix\n"},
		{"duplicate param", FormatYAML, "actions:\n  - id: A\n    parameters:\n      - name: p\n      - name: p\n"},
		{"unknown toml key", FormatTOML, "[[action]]\nid = \"A\"\ncolour = \"red\"\n"},
		{"unknown yaml key", FormatYAML, "sequences:\n  - id: A\n"},
		{"unknown json key", FormatJSON, `{"actions": [], "extra": 1}`},
		{"malformed", FormatJSON, `{"actions": [`},
		{"unknown format", Format("ini"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in), tt.format)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidCatalog), "code = %v (%v)", errors.GetCode(err), err)
		})
	}
}

func TestAddRejectsComposites(t *testing.T) {
	c := New("x")
	err := c.Add(tree.TypeDef{ID: "Seq", Category: tree.Sequence})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidCatalog))
}

func TestTypesSorted(t *testing.T) {
	c := New("x")
	for _, id := range []string{"Zed", "Alpha", "Mid"} {
		require.NoError(t, c.Add(tree.TypeDef{ID: id, Category: tree.Condition}))
	}
	var ids []string
	for _, def := range c.Types(tree.Condition) {
		ids = append(ids, def.ID)
	}
	assert.Equal(t, []string{"Alpha", "Mid", "Zed"}, ids)
	assert.Empty(t, c.Types(tree.Action))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "npc.yml")
	require.NoError(t, os.WriteFile(path, []byte("actions:\n  - id: Idle\n"), 0644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "npc", c.Name, "name defaults to the file name")
	assert.True(t, c.IsValidType(tree.Action, "Idle"))

	_, err = LoadFile(filepath.Join(dir, "missing.toml"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))

	_, err = LoadFile(filepath.Join(dir, "catalog.ini"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidCatalog))
}

func TestBuiltin(t *testing.T) {
	c := Builtin()
	assert.Equal(t, "builtin", c.Name)
	assert.Same(t, c, Builtin())

	for _, cat := range []tree.Category{tree.Action, tree.Condition, tree.Decorator} {
		assert.NotEmpty(t, c.Types(cat), "builtin %s types", cat)
	}
	def, ok := c.FindType(tree.Action, "MoveTo")
	require.True(t, ok)
	assert.Contains(t, def.RequiredParameters(), "target")
}

func TestValidateWithCatalog(t *testing.T) {
	c, err := Parse([]byte(tomlCatalog), FormatTOML)
	require.NoError(t, err)

	g := tree.New()
	root := g.CreateNode(tree.Selector, 0, 0, "")
	act := g.CreateNode(tree.Action, 0, 0, "")
	g.Link(root, act)
	g.SetSubtype(act, "MoveTo")

	diags := g.Validate(c)
	assert.False(t, tree.IsValid(diags))

	g.SetParameter(act, "target", "player")
	assert.True(t, tree.IsValid(g.Validate(c)))
}
