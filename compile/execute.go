package compile

import (
	"context"
	"reflect"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"

	language "github.com/schemabus/schemabus/language"
	registry "github.com/schemabus/schemabus/registry"
)

// Result is the outcome of executing one operation against a local artifact.
type Result struct {
	Data   map[string]any
	Errors gqlerror.List
}

// executionState holds the state during operation execution.
type executionState struct {
	ctx       context.Context
	schema    *language.Schema
	document  *language.QueryDocument
	vars      map[string]any
	resolvers registry.ResolverMap
	errors    gqlerror.List
}

// Execute runs one operation against an artifact, resolving fields through
// the artifact's resolver map. Resolution is strictly synchronous and
// sequential; a field without a resolver falls back to looking the field up
// on its parent value.
func Execute(ctx context.Context, art *registry.Artifact, req *registry.Request) *Result {
	doc, listErr := language.LoadQuery(art.Schema, req.Query)
	if len(listErr) > 0 {
		return &Result{Errors: listErr}
	}
	op := getOperation(doc, req.OperationName)
	if op == nil {
		return &Result{Errors: gqlerror.List{gqlerror.Errorf("operation not found")}}
	}
	vars, err := validator.VariableValues(art.Schema, op, req.Variables)
	if err != nil {
		return &Result{Errors: gqlerror.List{gqlerror.Errorf("%s", err)}}
	}

	var rootType *language.Definition
	switch op.Operation {
	case language.Query:
		rootType = art.Schema.Query
	case language.Mutation:
		rootType = art.Schema.Mutation
	case language.Subscription:
		rootType = art.Schema.Subscription
	}
	if rootType == nil {
		return &Result{Errors: gqlerror.List{gqlerror.Errorf("schema has no %s type", op.Operation)}}
	}

	state := &executionState{
		ctx:       ctx,
		schema:    art.Schema,
		document:  doc,
		vars:      vars,
		resolvers: art.Resolvers,
	}
	data := state.executeSelectionSet(op.SelectionSet, rootType, nil, nil)
	return &Result{Data: data, Errors: state.errors}
}

// ExecutorFor adapts a local artifact to the registry's Executor interface,
// so a locally compiled schema can stand in for a remote source.
func ExecutorFor(art *registry.Artifact) registry.Executor {
	return localExecutor{art: art}
}

type localExecutor struct {
	art *registry.Artifact
}

func (e localExecutor) Execute(ctx context.Context, req *registry.Request) (*registry.Response, error) {
	res := Execute(ctx, e.art, req)
	resp := &registry.Response{Data: res.Data}
	for _, err := range res.Errors {
		resp.Errors = append(resp.Errors, err.Message)
	}
	return resp, nil
}

func getOperation(doc *language.QueryDocument, name string) *language.OperationDefinition {
	if name == "" {
		if len(doc.Operations) == 1 {
			return doc.Operations[0]
		}
		return nil
	}
	return doc.Operations.ForName(name)
}

func (s *executionState) executeSelectionSet(set language.SelectionSet, typeDef *language.Definition, source any, path ast.Path) map[string]any {
	out := make(map[string]any)
	for _, field := range s.collectFields(set, typeDef) {
		key := field.Alias
		if key == "" {
			key = field.Name
		}
		out[key] = s.resolveField(field, typeDef, source, childPath(path, ast.PathName(key)))
	}
	return out
}

// childPath extends path by one element into freshly allocated storage.
// Recorded error paths must not share backing arrays with sibling descents.
func childPath(path ast.Path, elem ast.PathElement) ast.Path {
	out := make(ast.Path, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}

// collectFields flattens fragments and applies @skip/@include.
func (s *executionState) collectFields(set language.SelectionSet, typeDef *language.Definition) []*language.Field {
	var out []*language.Field
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			if s.included(sel.Directives) {
				out = append(out, sel)
			}
		case *language.InlineFragment:
			if s.included(sel.Directives) && s.fragmentApplies(sel.TypeCondition, typeDef) {
				out = append(out, s.collectFields(sel.SelectionSet, typeDef)...)
			}
		case *language.FragmentSpread:
			if !s.included(sel.Directives) {
				continue
			}
			frag := s.document.Fragments.ForName(sel.Name)
			if frag != nil && s.fragmentApplies(frag.TypeCondition, typeDef) {
				out = append(out, s.collectFields(frag.SelectionSet, typeDef)...)
			}
		}
	}
	return out
}

func (s *executionState) included(directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil && s.directiveIf(skip) {
		return false
	}
	if include := directives.ForName("include"); include != nil && !s.directiveIf(include) {
		return false
	}
	return true
}

func (s *executionState) directiveIf(d *language.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	v, err := arg.Value.Value(s.vars)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (s *executionState) fragmentApplies(condition string, typeDef *language.Definition) bool {
	if condition == "" || condition == typeDef.Name {
		return true
	}
	for _, possible := range s.schema.PossibleTypes[condition] {
		if possible.Name == typeDef.Name {
			return true
		}
	}
	return false
}

func (s *executionState) resolveField(field *language.Field, typeDef *language.Definition, source any, path ast.Path) any {
	if field.Name == "__typename" {
		return typeDef.Name
	}
	if field.Definition == nil {
		return nil
	}
	args := field.ArgumentMap(s.vars)

	var value any
	if fn := s.resolverFor(typeDef.Name, field.Name); fn != nil {
		v, err := fn(s.ctx, source, args)
		if err != nil {
			s.errors = append(s.errors, gqlerror.ErrorPathf(path, "%s", err))
			return nil
		}
		value = v
	} else {
		value = defaultResolve(source, field.Name)
	}
	return s.completeValue(field.Definition.Type, field.SelectionSet, value, path)
}

func (s *executionState) resolverFor(typeName, fieldName string) registry.ResolverFunc {
	nested, ok := s.resolvers[typeName].(registry.ResolverMap)
	if !ok {
		if plain, isPlain := s.resolvers[typeName].(map[string]any); isPlain {
			nested = plain
		} else {
			return nil
		}
	}
	switch fn := nested[fieldName].(type) {
	case registry.ResolverFunc:
		return fn
	case func(ctx context.Context, source any, args map[string]any) (any, error):
		return fn
	}
	return nil
}

func (s *executionState) completeValue(t *language.Type, set language.SelectionSet, value any, path ast.Path) any {
	if value == nil {
		if t.NonNull {
			s.errors = append(s.errors, gqlerror.ErrorPathf(path, "cannot return null for non-nullable field"))
		}
		return nil
	}
	if t.Elem != nil {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			s.errors = append(s.errors, gqlerror.ErrorPathf(path, "expected a list"))
			return nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = s.completeValue(t.Elem, set, rv.Index(i).Interface(), childPath(path, ast.PathIndex(i)))
		}
		return out
	}

	def := s.schema.Types[t.NamedType]
	if def == nil {
		return value
	}
	switch def.Kind {
	case language.Object:
		return s.executeSelectionSet(set, def, value, path)
	case language.Interface, language.Union:
		concrete := s.resolveConcreteType(def, value)
		if concrete == nil {
			s.errors = append(s.errors, gqlerror.ErrorPathf(path, "cannot resolve concrete type for %s", def.Name))
			return nil
		}
		return s.executeSelectionSet(set, concrete, value, path)
	default:
		// Scalars and enums pass through as JSON-safe values.
		return value
	}
}

// resolveConcreteType picks the runtime type of an abstract value from its
// __typename key.
func (s *executionState) resolveConcreteType(abstract *language.Definition, value any) *language.Definition {
	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	name, _ := m["__typename"].(string)
	if name == "" {
		return nil
	}
	for _, possible := range s.schema.PossibleTypes[abstract.Name] {
		if possible.Name == name {
			return possible
		}
	}
	return nil
}

// defaultResolve looks a field up on the parent value: map key for maps,
// exported field (exact or case-insensitive) for structs.
func defaultResolve(source any, name string) any {
	switch src := source.(type) {
	case nil:
		return nil
	case map[string]any:
		return src[name]
	case registry.ResolverMap:
		return src[name]
	}
	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Name == name || strings.EqualFold(f.Name, name) {
			return rv.Field(i).Interface()
		}
	}
	return nil
}
