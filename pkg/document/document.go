package document

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"

	"github.com/matzehuels/btgraph/pkg/errors"
)

// Schema versions understood by this package.
const (
	LegacyVersion  = 1
	CurrentVersion = 2
)

// Kind is the blueprint type of a document.
type Kind string

// Known blueprint kinds. Documents with other kinds are preserved as opaque
// payloads.
const (
	KindBehaviorTree Kind = "BehaviorTree"
	KindHFSM         Kind = "HFSM"
	KindEntityPrefab Kind = "EntityPrefab"
	KindGeneric      Kind = "Generic"
)

// Document is a version 2 document. Exactly one of Tree and Data is set:
// Tree for behavior trees, Data for every other kind.
type Document struct {
	SchemaVersion int
	Kind          Kind
	Name          string
	Description   string
	Metadata      Metadata
	EditorState   EditorState
	Tree          *TreeData
	Data          map[string]any
}

// Metadata is descriptive document information.
type Metadata struct {
	Author       string   `json:"author"`
	Created      string   `json:"created"`
	LastModified string   `json:"lastModified"`
	Tags         []string `json:"tags"`
}

// EditorState is the persisted editor viewport.
type EditorState struct {
	Zoom         float64 `json:"zoom"`
	ScrollOffset Vec2    `json:"scrollOffset"`
}

// Vec2 is a 2-D offset.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TreeData is the payload of a BehaviorTree document.
type TreeData struct {
	RootNodeID int64  `json:"rootNodeId"`
	Nodes      []Node `json:"nodes"`
}

// Node is the wire form of a tree node. Only the subtype field matching the
// node type is meaningful. Parameter values may be any JSON scalar; they are
// stringified when converted to a graph.
type Node struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	Position       *Position      `json:"position,omitempty"`
	ActionType     string         `json:"actionType,omitempty"`
	ConditionType  string         `json:"conditionType,omitempty"`
	DecoratorType  string         `json:"decoratorType,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	Children       []int64        `json:"children"`
	DecoratorChild *int64         `json:"decoratorChild,omitempty"`
}

// Position is a node's editor coordinate.
type Position struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// IsTree reports whether the document holds a behavior tree.
func (d *Document) IsTree() bool { return d.Kind == KindBehaviorTree }

type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	BlueprintType Kind            `json:"blueprintType"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Metadata      Metadata        `json:"metadata"`
	EditorState   EditorState     `json:"editorState"`
	Data          json.RawMessage `json:"data"`
}

// MarshalJSON encodes the document in the version 2 envelope.
func (d Document) MarshalJSON() ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if d.Kind == KindBehaviorTree {
		tree := d.Tree
		if tree == nil {
			tree = &TreeData{Nodes: []Node{}}
		}
		data, err = json.Marshal(tree)
	} else {
		payload := d.Data
		if payload == nil {
			payload = map[string]any{}
		}
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		SchemaVersion: d.SchemaVersion,
		BlueprintType: d.Kind,
		Name:          d.Name,
		Description:   d.Description,
		Metadata:      d.Metadata,
		EditorState:   d.EditorState,
		Data:          data,
	})
}

// UnmarshalJSON decodes a version 2 envelope. A missing blueprintType is
// inferred from the payload with [DetectKind].
func (d *Document) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := decodeJSON(b, &env); err != nil {
		return parseError("", err)
	}

	payload := env.Data
	if len(payload) == 0 || string(payload) == "null" {
		payload = []byte("{}")
	}

	kind := env.BlueprintType
	if kind == "" {
		var m map[string]any
		if err := decodeJSON(payload, &m); err != nil {
			return parseError("data", err)
		}
		kind = DetectKind(m)
	}

	*d = Document{
		SchemaVersion: env.SchemaVersion,
		Kind:          kind,
		Name:          env.Name,
		Description:   env.Description,
		Metadata:      env.Metadata,
		EditorState:   env.EditorState,
	}
	if kind == KindBehaviorTree {
		var td TreeData
		if err := decodeJSON(payload, &td); err != nil {
			return parseError("data", err)
		}
		d.Tree = &td
		return nil
	}
	if err := decodeJSON(payload, &d.Data); err != nil {
		return parseError("data", err)
	}
	return nil
}

var errTrailingData = stderrors.New("invalid data after top-level value")

// decodeJSON is json.Unmarshal with numbers kept as json.Number, so integer
// ids and parameter values beyond 2^53 survive decoding into any.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	return nil
}

// parseError converts a decoding failure into a ParseError, locating the
// field for type mismatches.
func parseError(prefix string, err error) error {
	var pe *errors.ParseError
	if stderrors.As(err, &pe) {
		return err
	}
	path := prefix
	var te *json.UnmarshalTypeError
	if stderrors.As(err, &te) && te.Field != "" {
		if path != "" {
			path += "."
		}
		path += te.Field
		return &errors.ParseError{Path: path, Message: "expected " + te.Type.String() + ", got " + te.Value, Cause: err}
	}
	return &errors.ParseError{Path: path, Message: "malformed JSON", Cause: err}
}
