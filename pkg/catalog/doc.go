// Package catalog loads the set of node subtypes a project allows.
//
// A catalog lists actions, conditions and decorators by ID together with the
// parameters each one declares. It implements [tree.Catalog] and is what the
// structural validator checks subtypes and required parameters against.
//
// Catalog files can be written in TOML, YAML or JSON; the format is chosen by
// file extension:
//
//	name = "guards"
//
//	[[action]]
//	id = "MoveTo"
//	description = "Walk to a target"
//
//	  [[action.parameters]]
//	  name = "target"
//	  type = "string"
//	  required = true
//
//	[[decorator]]
//	id = "Inverter"
//
// Entries are validated on load: IDs must be well-formed and unique per
// category, and parameter names must be unique per entry.
//
// [Builtin] returns the catalog shipped with btgraph, used when no catalog is
// configured.
package catalog
