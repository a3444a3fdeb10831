// Package document defines the persisted JSON form of a behavior tree and the
// schema migrator that upgrades legacy documents to it.
//
// # Schema versions
//
// Version 2 is the current schema. It wraps the graph payload in an envelope:
//
//	{
//	  "schema_version": 2,
//	  "blueprintType": "BehaviorTree",
//	  "name": "...", "description": "...",
//	  "metadata": {"author": "...", "created": "...", "lastModified": "...", "tags": []},
//	  "editorState": {"zoom": 1, "scrollOffset": {"x": 0, "y": 0}},
//	  "data": {"rootNodeId": 1, "nodes": [...]}
//	}
//
// Version 1 documents carry the data object at the top level, have no
// envelope, no node positions, and store parameters as flat "param",
// "param1", "param2", ... fields on each node.
//
// # Migration
//
// [Migrator.Migrate] accepts either version. Current documents are returned
// unchanged. Legacy documents are wrapped, given metadata and default editor
// state, have their flat parameters folded into "parameters", and are laid
// out with [layout.Compute] when no node has a position. Migrating an already
// migrated document is the identity, so migration is idempotent.
//
// The migrator never touches the file system. Callers that overwrite a
// legacy file are expected to keep a ".v1.backup" copy of the original bytes.
//
// # Kinds
//
// Besides behavior trees, the editor stores other blueprint kinds (HFSM,
// EntityPrefab). These are migrated as opaque payloads; only BehaviorTree
// documents convert to a [tree.Graph] via [ToGraph].
package document
