// Package compile turns an assembled declaration document plus a resolver
// map into a queryable artifact, and executes operations against local
// artifacts through their resolver maps.
package compile

import (
	"context"

	language "github.com/schemabus/schemabus/language"
	registry "github.com/schemabus/schemabus/registry"
)

// Engine validates declaration documents with gqlparser and binds resolver
// maps to the resulting schema.
type Engine struct{}

// New creates a compile engine.
func New() *Engine { return &Engine{} }

var _ registry.Compiler = (*Engine)(nil)

// Compile renders the document to SDL and validates it against the standard
// prelude. Invalid declarations raise; nothing is cached here.
func (e *Engine) Compile(ctx context.Context, doc *language.SchemaDocument, resolvers registry.ResolverMap) (*registry.Artifact, error) {
	schema, err := language.LoadSchema("registry", language.FormatDocument(doc))
	if err != nil {
		return nil, err
	}
	return &registry.Artifact{Schema: schema, Resolvers: resolvers}, nil
}
