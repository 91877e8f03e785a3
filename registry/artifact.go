package registry

import (
	"context"

	language "github.com/schemabus/schemabus/language"
)

// ResolverMap is a named bag of resolver values. At the top level the keys
// are type names (mapping to nested ResolverMaps of their fields) or
// free-form names; within a category store the keys are field names.
type ResolverMap map[string]any

// Merge shallow-merges in into m. Last write wins.
func (m ResolverMap) Merge(in ResolverMap) {
	for k, v := range in {
		m[k] = v
	}
}

// clone returns a shallow copy.
func (m ResolverMap) clone() ResolverMap {
	out := make(ResolverMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ResolverFunc is the callable shape of a field resolver. source is the
// parent value (nil at the root), args are the coerced argument values.
type ResolverFunc func(ctx context.Context, source any, args map[string]any) (any, error)

// SchemaTransform is the callable shape of a directive resolver: it rewrites
// a composed artifact. Transforms run in registration order during the
// executable build.
type SchemaTransform func(a *Artifact) (*Artifact, error)

// Artifact is a compiled, queryable schema: the validated type system, the
// resolver map that executes against it, and, for wrapped remote sources,
// the executor that carries operations to the source.
type Artifact struct {
	Schema    *language.Schema
	Resolvers ResolverMap
	Executor  Executor
}

// Request is one operation to execute against a declaration source.
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
}

// Response is the outcome of executing a Request.
type Response struct {
	Data   map[string]any
	Errors []string
}

// Executor carries operations to a remote declaration source.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Rewrite adapts one remote name to the local convention. With FromField
// empty the rule renames a type (and every reference to it); otherwise it
// renames a field of FromType.
type Rewrite struct {
	FromType  string
	ToType    string
	FromField string
	ToField   string
}

// Compiler turns an assembled declaration document plus resolvers into a
// queryable artifact, raising on invalid declarations.
type Compiler interface {
	Compile(ctx context.Context, doc *language.SchemaDocument, resolvers ResolverMap) (*Artifact, error)
}

// Wrapper adapts a foreign artifact's naming to local conventions and binds
// its executor.
type Wrapper interface {
	Wrap(ctx context.Context, source *Artifact, exec Executor, rewrites []Rewrite) (*Artifact, error)
}

// Composer reconciles several artifacts into one by name, layering extension
// declarations and resolvers on top.
type Composer interface {
	Compose(ctx context.Context, sources []*Artifact, extensions *language.SchemaDocument, resolvers ResolverMap) (*Artifact, error)
}
