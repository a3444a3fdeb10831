package catalog

import (
	_ "embed"
	"sync"
)

//go:embed builtin.toml
var builtinTOML []byte

var builtin = sync.OnceValue(func() *Catalog {
	c, err := Parse(builtinTOML, FormatTOML)
	if err != nil {
		panic("catalog: invalid builtin catalog: " + err.Error())
	}
	return c
})

// Builtin returns the catalog shipped with btgraph. The returned catalog is
// shared and must not be modified.
func Builtin() *Catalog {
	return builtin()
}
