// Package builtin registers the engines shipped with formatbench.
package builtin

import (
	"github.com/basekick-labs/formatbench/internal/engine"
	"github.com/basekick-labs/formatbench/internal/engine/arrowengine"
	"github.com/basekick-labs/formatbench/internal/engine/duckdbengine"
	"github.com/basekick-labs/formatbench/internal/engine/frameengine"
)

// Registry returns a registry holding arrow, duckdb and frame
func Registry() *engine.Registry {
	r := engine.NewRegistry()
	r.Register(arrowengine.Name, arrowengine.New)
	r.Register(duckdbengine.Name, duckdbengine.New)
	r.Register(frameengine.Name, frameengine.New)
	return r
}
