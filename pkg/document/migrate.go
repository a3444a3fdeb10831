package document

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"time"

	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/tree"
	"github.com/matzehuels/btgraph/pkg/tree/layout"
)

// DefaultAuthor is recorded in the metadata of migrated documents when the
// migrator has no author configured.
const DefaultAuthor = "unknown"

// legacyParamKey matches the flat parameter fields of version 1 nodes.
var legacyParamKey = regexp.MustCompile(`^param\d*$`)

// Migrator upgrades documents to the current schema.
//
// The zero value is usable: it records [DefaultAuthor], stamps the current
// UTC time and lays nodes out with the default spacing.
type Migrator struct {
	Author string
	Now    func() time.Time
	Layout layout.Options
}

// NewMigrator creates a migrator recording the given author.
func NewMigrator(author string) *Migrator {
	return &Migrator{Author: author}
}

// Migrate upgrades data with a zero [Migrator].
func Migrate(data []byte) (*Document, bool, error) {
	var m Migrator
	return m.Migrate(data)
}

// Migrate decodes data and upgrades it to the current schema. The boolean
// reports whether an upgrade took place; it is false for documents already
// at the current version, which are returned as decoded.
func (m *Migrator) Migrate(data []byte) (*Document, bool, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, false, err
	}
	version, err := versionOf(raw)
	if err != nil {
		return nil, false, err
	}

	if version == CurrentVersion {
		var d Document
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, false, parseError("", err)
		}
		return &d, false, nil
	}

	d, err := m.upgrade(raw)
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

// upgrade wraps a version 1 object in the current envelope.
func (m *Migrator) upgrade(raw map[string]any) (*Document, error) {
	kind := DetectKind(raw)

	payload := maps.Clone(raw)
	name, _ := payload["name"].(string)
	description, _ := payload["description"].(string)
	delete(payload, "name")
	delete(payload, "description")
	delete(payload, "schema_version")

	if kind == KindBehaviorTree {
		if err := normalizeTree(payload); err != nil {
			return nil, err
		}
	}

	now := m.now().UTC().Format(time.RFC3339)
	env := map[string]any{
		"schema_version": CurrentVersion,
		"blueprintType":  kind,
		"name":           name,
		"description":    description,
		"metadata": map[string]any{
			"author":       m.author(),
			"created":      now,
			"lastModified": now,
			"tags":         []string{},
		},
		"editorState": map[string]any{
			"zoom":         1.0,
			"scrollOffset": map[string]any{"x": 0, "y": 0},
		},
		"data": payload,
	}

	// Round-trip through JSON so the result is identical to decoding the
	// migrated bytes, which keeps a second migration the identity.
	b, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode migrated document")
	}
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, parseError("", err)
	}

	if d.IsTree() && !hasPositions(d.Tree) {
		if err := m.placeNodes(&d); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

// placeNodes writes layout positions into every node. Nodes the layout does
// not reach are placed at the origin.
func (m *Migrator) placeNodes(d *Document) error {
	g, err := ToGraph(d)
	if err != nil {
		return err
	}
	positions := layout.Compute(g, m.Layout)
	for i := range d.Tree.Nodes {
		p := positions[tree.NodeID(d.Tree.Nodes[i].ID)]
		d.Tree.Nodes[i].Position = &Position{X: p.X, Y: p.Y}
	}
	return nil
}

func (m *Migrator) author() string {
	if m.Author == "" {
		return DefaultAuthor
	}
	return m.Author
}

func (m *Migrator) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// normalizeTree rewrites a version 1 tree payload in place: "root_id" becomes
// "rootNodeId", and each node's flat parameter fields are folded into
// "parameters". Parameters already present win over flat fields.
func normalizeTree(payload map[string]any) error {
	if v, ok := payload["root_id"]; ok {
		if _, exists := payload["rootNodeId"]; !exists {
			payload["rootNodeId"] = v
		}
		delete(payload, "root_id")
	}

	nodes, ok := payload["nodes"].([]any)
	if !ok {
		if payload["nodes"] != nil {
			return errors.NewParseError("nodes", "expected an array of nodes")
		}
		payload["nodes"] = []any{}
		return nil
	}
	for i, v := range nodes {
		node, ok := v.(map[string]any)
		if !ok {
			return errors.NewParseError(fmt.Sprintf("nodes[%d]", i), "expected an object")
		}
		foldParameters(node)
		if node["children"] == nil {
			node["children"] = []any{}
		}
	}
	return nil
}

func foldParameters(node map[string]any) {
	params, _ := node["parameters"].(map[string]any)
	for k, v := range node {
		if !legacyParamKey.MatchString(k) {
			continue
		}
		if params == nil {
			params = make(map[string]any)
		}
		if _, exists := params[k]; !exists {
			params[k] = v
		}
		delete(node, k)
	}
	if params != nil {
		node["parameters"] = params
	}
}

func hasPositions(td *TreeData) bool {
	for _, n := range td.Nodes {
		if n.Position != nil {
			return true
		}
	}
	return false
}

// DetectVersion returns the schema version of an encoded document. Documents
// without a "schema_version" key are version 1.
func DetectVersion(data []byte) (int, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return 0, err
	}
	return versionOf(raw)
}

// DetectKind infers the blueprint kind of a decoded object. An explicit
// "blueprintType" wins; otherwise the shape decides: "nodes" with a root id
// is a behavior tree, "states" an HFSM and "components" an entity prefab.
// Anything else is Generic.
func DetectKind(raw map[string]any) Kind {
	if s, ok := raw["blueprintType"].(string); ok && s != "" {
		return Kind(s)
	}
	_, hasNodes := raw["nodes"]
	_, hasRoot := raw["rootNodeId"]
	_, hasLegacyRoot := raw["root_id"]
	switch {
	case hasNodes && (hasRoot || hasLegacyRoot):
		return KindBehaviorTree
	case raw["states"] != nil:
		return KindHFSM
	case raw["components"] != nil:
		return KindEntityPrefab
	default:
		return KindGeneric
	}
}

func decodeObject(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := decodeJSON(data, &raw); err != nil {
		return nil, parseError("", err)
	}
	if raw == nil {
		return nil, errors.NewParseError("", "document must be a JSON object")
	}
	return raw, nil
}

func versionOf(raw map[string]any) (int, error) {
	v, ok := raw["schema_version"]
	if !ok {
		return LegacyVersion, nil
	}
	version, ok := schemaVersion(v)
	if !ok {
		return 0, errors.NewParseError("schema_version", "expected an integer, got %v", v)
	}
	switch version {
	case LegacyVersion, CurrentVersion:
		return version, nil
	default:
		return 0, errors.New(errors.ErrCodeUnsupportedSchema, "unsupported schema version %d", version)
	}
}

func schemaVersion(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		return int(n), err == nil
	case float64:
		return int(x), x == float64(int(x))
	default:
		return 0, false
	}
}
