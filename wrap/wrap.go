// Package wrap adapts a foreign artifact's naming to local conventions and
// synthesizes root-field resolvers that delegate to the source's executor.
package wrap

import (
	"context"
	"fmt"
	"strings"

	language "github.com/schemabus/schemabus/language"
	registry "github.com/schemabus/schemabus/registry"
)

// Engine applies rewrite rules to a cloned copy of the foreign schema and
// binds delegating resolvers for the Query and Mutation roots. Subscription
// roots are not delegated: the executor surface is request/response only.
type Engine struct{}

// New creates a wrap engine.
func New() *Engine { return &Engine{} }

var _ registry.Wrapper = (*Engine)(nil)

func (e *Engine) Wrap(ctx context.Context, source *registry.Artifact, exec registry.Executor, rewrites []registry.Rewrite) (*registry.Artifact, error) {
	doc, err := language.ParseSchema("remote", language.FormatSchema(source.Schema))
	if err != nil {
		return nil, err
	}

	typeRenames := map[string]string{}
	fieldRenames := map[[2]string]string{}
	for _, rw := range rewrites {
		if rw.FromField == "" {
			typeRenames[rw.FromType] = rw.ToType
		} else {
			fieldRenames[[2]string{rw.FromType, rw.FromField}] = rw.ToField
		}
	}

	// Delegation queries are built from the original names before any
	// renaming, since the remote source only knows those.
	resolvers := registry.ResolverMap{}
	if exec != nil {
		for _, root := range []struct {
			def *language.Definition
			op  string
		}{
			{source.Schema.Query, "query"},
			{source.Schema.Mutation, "mutation"},
		} {
			if root.def == nil {
				continue
			}
			wrappedType := renamed(typeRenames, root.def.Name)
			nested := registry.ResolverMap{}
			for _, f := range root.def.Fields {
				if strings.HasPrefix(f.Name, "__") {
					continue
				}
				wrappedField := f.Name
				if to, ok := fieldRenames[[2]string{root.def.Name, f.Name}]; ok {
					wrappedField = to
				}
				nested[wrappedField] = delegate(exec, root.op, f)
			}
			if len(nested) > 0 {
				resolvers[wrappedType] = nested
			}
		}
	}

	renameDocument(doc, typeRenames, fieldRenames)
	schema, err := language.LoadSchema("wrapped", language.FormatDocument(doc))
	if err != nil {
		return nil, err
	}
	return &registry.Artifact{Schema: schema, Resolvers: resolvers, Executor: exec}, nil
}

// delegate builds a resolver that forwards one root field to the executor,
// passing the local arguments through as variables under their original
// names.
func delegate(exec registry.Executor, op string, field *language.FieldDefinition) registry.ResolverFunc {
	var b strings.Builder
	b.WriteString(op)
	if len(field.Arguments) > 0 {
		b.WriteString("(")
		for i, arg := range field.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%s: %s", arg.Name, arg.Type.String())
		}
		b.WriteString(")")
	}
	b.WriteString(" { ")
	b.WriteString(field.Name)
	if len(field.Arguments) > 0 {
		b.WriteString("(")
		for i, arg := range field.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: $%s", arg.Name, arg.Name)
		}
		b.WriteString(")")
	}
	b.WriteString(" }")
	query := b.String()
	name := field.Name

	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		resp, err := exec.Execute(ctx, &registry.Request{Query: query, Variables: args})
		if err != nil {
			return nil, err
		}
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("remote execution: %s", strings.Join(resp.Errors, "; "))
		}
		if resp.Data == nil {
			return nil, nil
		}
		return resp.Data[name], nil
	}
}

func renamed(renames map[string]string, name string) string {
	if to, ok := renames[name]; ok {
		return to
	}
	return name
}

func renameDocument(doc *language.SchemaDocument, typeRenames map[string]string, fieldRenames map[[2]string]string) {
	for _, def := range doc.Definitions {
		originalName := def.Name
		def.Name = renamed(typeRenames, def.Name)
		for i, iface := range def.Interfaces {
			def.Interfaces[i] = renamed(typeRenames, iface)
		}
		for i, member := range def.Types {
			def.Types[i] = renamed(typeRenames, member)
		}
		for _, f := range def.Fields {
			if to, ok := fieldRenames[[2]string{originalName, f.Name}]; ok {
				f.Name = to
			}
			renameTypeRef(f.Type, typeRenames)
			for _, arg := range f.Arguments {
				renameTypeRef(arg.Type, typeRenames)
			}
		}
	}
	for _, dir := range doc.Directives {
		for _, arg := range dir.Arguments {
			renameTypeRef(arg.Type, typeRenames)
		}
	}
}

func renameTypeRef(t *language.Type, renames map[string]string) {
	if t == nil {
		return
	}
	if t.NamedType != "" {
		t.NamedType = renamed(renames, t.NamedType)
	}
	renameTypeRef(t.Elem, renames)
}
