// Package schemabus assembles GraphQL schemas incrementally: declarations
// and resolvers are registered piecewise, an ordered plugin pipeline rewrites
// and extends them, and three finalize entry points compile the result into
// declaration, composed and executable artifacts.
package schemabus

import (
	"github.com/schemabus/schemabus/compile"
	"github.com/schemabus/schemabus/compose"
	"github.com/schemabus/schemabus/registry"
	"github.com/schemabus/schemabus/wrap"
)

// New creates a registry wired with the reference compile, wrap and compose
// engines. Options may override any of them.
func New(opts ...registry.Option) *registry.Registry {
	defaults := []registry.Option{
		registry.WithCompiler(compile.New()),
		registry.WithWrapper(wrap.New()),
		registry.WithComposer(compose.New()),
	}
	return registry.New(append(defaults, opts...)...)
}
