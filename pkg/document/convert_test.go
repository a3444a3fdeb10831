package document

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/tree"
)

func sampleGraph() *tree.Graph {
	g := tree.New()
	g.Name = "Patrol"
	g.Description = "walks between waypoints"
	g.Meta = tree.Metadata{Author: "ana", Created: "2024-01-01T00:00:00Z", LastModified: "2024-01-02T00:00:00Z", Tags: []string{"npc"}}
	g.Editor = tree.EditorState{Zoom: 1.5, ScrollX: -20, ScrollY: 40}

	root := g.CreateNode(tree.Selector, 200, 300, "Root")
	dec := g.CreateNode(tree.Decorator, 550, 300, "Repeat")
	act := g.CreateNode(tree.Action, 900, 300, "Walk")
	cond := g.CreateNode(tree.Condition, 550, 550, "")
	g.Link(root, dec)
	g.Link(root, cond)
	g.Link(dec, act)
	g.SetSubtype(dec, "Repeater")
	g.SetSubtype(act, "MoveTo")
	g.SetSubtype(cond, "HasTarget")
	g.SetParameter(act, "target", "waypoint_1")
	g.SetParameter(act, "speed", "2.5")
	g.SetParameter(dec, "count", "3")
	return g
}

func TestRoundTrip(t *testing.T) {
	single := tree.New()
	single.CreateNode(tree.Sequence, 0, 0, "")

	tests := []struct {
		name string
		g    *tree.Graph
	}{
		{"full", sampleGraph()},
		{"empty", tree.New()},
		{"single node", single},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.g
			var buf bytes.Buffer
			if err := Write(&buf, FromGraph(g)); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			d, err := Read(&buf)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			got, err := ToGraph(d)
			if err != nil {
				t.Fatalf("ToGraph() error = %v", err)
			}

			if got.RootID() != g.RootID() || got.NextID() != g.NextID() {
				t.Errorf("root/next = %d/%d, want %d/%d", got.RootID(), got.NextID(), g.RootID(), g.NextID())
			}
			if got.Name != g.Name || got.Description != g.Description {
				t.Errorf("name/description = %q/%q", got.Name, got.Description)
			}
			if !reflect.DeepEqual(got.Meta, g.Meta) || got.Editor != g.Editor {
				t.Errorf("meta/editor = %#v %+v, want %#v %+v", got.Meta, got.Editor, g.Meta, g.Editor)
			}
			if !reflect.DeepEqual(got.Nodes(), g.Nodes()) {
				for i, n := range got.Nodes() {
					t.Logf("node %d: got %+v want %+v", i, *n, *g.Nodes()[i])
				}
				t.Error("nodes differ after round trip")
			}
		})
	}
}

func TestFromGraphWritesEmptyTags(t *testing.T) {
	data, err := Marshal(FromGraph(tree.New()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"tags":[]`) {
		t.Errorf("json = %s, want an empty tags array", data)
	}
}

func TestFromGraphWireShape(t *testing.T) {
	d := FromGraph(sampleGraph())
	data, err := Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	for _, want := range []string{
		`"schema_version": 2`,
		`"blueprintType": "BehaviorTree"`,
		`"rootNodeId": 1`,
		`"decoratorType": "Repeater"`,
		`"actionType": "MoveTo"`,
		`"conditionType": "HasTarget"`,
		`"decoratorChild": 3`,
		`"scrollOffset": {`,
		`"lastModified": "2024-01-02T00:00:00Z"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("encoded document missing %s", want)
		}
	}
	if strings.Contains(out, `"children": null`) {
		t.Error("children should always be encoded as a list")
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("encoded document should end with a newline")
	}
}

func TestToGraphStringifiesParameters(t *testing.T) {
	d, err := Parse([]byte(`{
		"schema_version": 2, "blueprintType": "BehaviorTree",
		"data": {"rootNodeId": 1, "nodes": [
			{"id": 1, "type": "Action", "actionType": "Wait", "children": [],
			 "parameters": {"n": 12, "f": 0.25, "b": true, "s": "x", "z": null, "o": {"k": [1, 2]},
			                "seed": 12345678901234567891}}
		]}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	g, err := ToGraph(d)
	if err != nil {
		t.Fatal(err)
	}
	n, _ := g.Node(1)
	want := map[string]string{
		"n": "12", "f": "0.25", "b": "true", "s": "x", "z": "", "o": `{"k":[1,2]}`,
		"seed": "12345678901234567891",
	}
	if !reflect.DeepEqual(n.Parameters, want) {
		t.Errorf("Parameters = %v, want %v", n.Parameters, want)
	}
}

func TestToGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		path string
	}{
		{"unknown type", `{"rootNodeId": 1, "nodes": [{"id": 1, "type": "Loop", "children": []}]}`, "data.nodes[0].type"},
		{"zero id", `{"rootNodeId": 0, "nodes": [{"id": 0, "type": "Action", "children": []}]}`, "data.nodes[0].id"},
		{"duplicate id", `{"rootNodeId": 1, "nodes": [
			{"id": 1, "type": "Sequence", "children": []},
			{"id": 1, "type": "Action", "children": []}]}`, "data.nodes[1].id"},
		{"bad child", `{"rootNodeId": 1, "nodes": [{"id": 1, "type": "Sequence", "children": [2, -1]}]}`, "data.nodes[0].children[1]"},
		{"missing root", `{"rootNodeId": 9, "nodes": [{"id": 1, "type": "Sequence", "children": []}]}`, "data.rootNodeId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse([]byte(`{"schema_version": 2, "blueprintType": "BehaviorTree", "data": ` + tt.data + `}`))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			g, err := ToGraph(d)
			if g != nil {
				t.Error("ToGraph() returned a graph alongside an error")
			}
			pe, ok := err.(*errors.ParseError)
			if !ok {
				t.Fatalf("ToGraph() error = %v, want *ParseError", err)
			}
			if pe.Path != tt.path {
				t.Errorf("Path = %q, want %q", pe.Path, tt.path)
			}
		})
	}
}

func TestToGraphKeepsDanglingReferences(t *testing.T) {
	d, err := Parse([]byte(`{"schema_version": 2, "blueprintType": "BehaviorTree",
		"data": {"rootNodeId": 1, "nodes": [{"id": 1, "type": "Sequence", "children": [7]}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	g, err := ToGraph(d)
	if err != nil {
		t.Fatalf("ToGraph() error = %v", err)
	}
	if diags := g.Validate(nil); tree.IsValid(diags) {
		t.Errorf("dangling child should be reported, got %v", diags)
	}
}

func TestToGraphRejectsOtherKinds(t *testing.T) {
	d, _, err := Migrate([]byte(`{"states": [{"id": "idle"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != KindHFSM || d.Data == nil {
		t.Fatalf("kind = %s, data = %v", d.Kind, d.Data)
	}
	_, err = ToGraph(d)
	pe, ok := err.(*errors.ParseError)
	if !ok || pe.Path != "blueprintType" {
		t.Errorf("ToGraph() error = %v, want ParseError at blueprintType", err)
	}
}

func TestParseRejectsLegacy(t *testing.T) {
	_, err := Parse([]byte(legacyTree))
	if !errors.Is(err, errors.ErrCodeUnsupportedSchema) {
		t.Errorf("Parse(v1) error = %v, want %v", err, errors.ErrCodeUnsupportedSchema)
	}
}

func TestParseTypeMismatchPath(t *testing.T) {
	_, err := Parse([]byte(`{"schema_version": 2, "blueprintType": "BehaviorTree",
		"data": {"rootNodeId": 1, "nodes": [{"id": "one", "type": "Action"}]}}`))
	pe, ok := err.(*errors.ParseError)
	if !ok {
		t.Fatalf("Parse() error = %v, want *ParseError", err)
	}
	if !strings.HasPrefix(pe.Path, "data.") || !strings.Contains(pe.Path, "id") {
		t.Errorf("Path = %q, want a data.*id path", pe.Path)
	}
}

func TestUnknownKindPreserved(t *testing.T) {
	in := `{"schema_version": 2, "blueprintType": "AnimationGraph", "data": {"clips": ["run"]}}`
	d, err := Parse([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != "AnimationGraph" || d.Tree != nil {
		t.Fatalf("kind = %s, tree = %v", d.Kind, d.Tree)
	}
	b, err := Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"clips": [`) {
		t.Errorf("payload lost:\n%s", b)
	}
}
