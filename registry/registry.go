// Package registry composes a single GraphQL declaration surface out of
// fragments contributed incrementally by direct registration and by an
// ordered pipeline of plugins, then hands the assembled documents to
// external compile, wrap and compose collaborators to produce artifacts.
package registry

import (
	"context"
	"fmt"
	"time"

	buildid "github.com/schemabus/schemabus/buildid"
	eventbus "github.com/schemabus/schemabus/eventbus"
	events "github.com/schemabus/schemabus/events"
	language "github.com/schemabus/schemabus/language"
)

// SetupFunc runs exactly once, before the pipeline, in registration order.
type SetupFunc func(ctx context.Context, r *Registry) error

// Registry is the aggregate root: the declaration store, the plugin list,
// the setup hooks, the remote source descriptors and the one-shot run state.
// It is not safe for concurrent registration while a build is in flight; the
// pipeline itself is strictly sequential.
type Registry struct {
	compiler Compiler
	wrapper  Wrapper
	composer Composer

	store   stores
	plugins []*Plugin
	setups  []SetupFunc

	remotes     []*RemoteSource
	remoteIndex map[string]*RemoteSource

	setupRan   bool
	processed  bool
	executable *Artifact
}

// Option configures a Registry.
type Option func(*Registry)

func WithCompiler(c Compiler) Option { return func(r *Registry) { r.compiler = c } }
func WithWrapper(w Wrapper) Option   { return func(r *Registry) { r.wrapper = w } }
func WithComposer(c Composer) Option { return func(r *Registry) { r.composer = c } }

// New creates an empty registry. Construct one per composition; tests should
// use independent instances rather than sharing process state.
func New(opts ...Option) *Registry {
	r := &Registry{
		store:       newStores(),
		remoteIndex: make(map[string]*RemoteSource),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register merges declarations through the direct registration path:
// duplicate names produce a non-fatal advisory, then the upsert proceeds.
func (r *Registry) Register(decls ...Declaration) {
	ctx := context.Background()
	r.store.checkDuplicates(ctx, decls)
	for _, cat := range []Category{CategoryType, CategoryQuery, CategoryMutation, CategorySubscription, CategoryDirective} {
		r.store.upsert(cat, decls)
	}
}

// RegisterSDL parses SDL and registers every declaration it contains.
// Definitions of Query, Mutation and Subscription are split into per-field
// operation declarations.
func (r *Registry) RegisterSDL(name, sdl string) error {
	decls, err := ParseDeclarations(name, sdl)
	if err != nil {
		return err
	}
	r.Register(decls...)
	return nil
}

// AddTypes registers base type declarations.
func (r *Registry) AddTypes(defs ...*language.Definition) {
	for _, def := range defs {
		r.Register(TypeDecl(def))
	}
}

// AddQueryFields registers fields of the Query container.
func (r *Registry) AddQueryFields(fields ...*language.FieldDefinition) {
	for _, f := range fields {
		r.Register(QueryFieldDecl(f))
	}
}

// AddMutationFields registers fields of the Mutation container.
func (r *Registry) AddMutationFields(fields ...*language.FieldDefinition) {
	for _, f := range fields {
		r.Register(MutationFieldDecl(f))
	}
}

// AddSubscriptionFields registers fields of the Subscription container.
func (r *Registry) AddSubscriptionFields(fields ...*language.FieldDefinition) {
	for _, f := range fields {
		r.Register(SubscriptionFieldDecl(f))
	}
}

// AddDirectives registers directive declarations.
func (r *Registry) AddDirectives(defs ...*language.DirectiveDefinition) {
	for _, def := range defs {
		r.Register(DirectiveDecl(def))
	}
}

// AddResolvers shallow-merges resolver entries into the category's base
// resolver map. Duplicate names overwrite unconditionally.
func (r *Registry) AddResolvers(cat Category, m ResolverMap) {
	r.store.upsertResolvers(cat, false, m)
}

// AddExtensionResolvers shallow-merges resolver entries into the category's
// extension resolver map.
func (r *Registry) AddExtensionResolvers(cat Category, m ResolverMap) {
	r.store.upsertResolvers(cat, true, m)
}

// AddDirectiveResolvers records directive transforms by name, preserving
// first registration order.
func (r *Registry) AddDirectiveResolvers(m ResolverMap) {
	r.store.mergeDirectiveResolvers(m)
}

// MergeResolvers merges free-form named values directly into the top-level
// resolver map.
func (r *Registry) MergeResolvers(m ResolverMap) {
	r.store.mergeFreeform(m)
}

// RegisterPlugin appends a plugin to the pipeline and hands it the registry
// back-reference. A plugin name registers at most once; a later collision is
// ignored and reported as an advisory.
func (r *Registry) RegisterPlugin(p *Plugin) {
	if p == nil {
		return
	}
	for _, existing := range r.plugins {
		if existing.Name == p.Name {
			eventbus.Publish(context.Background(), events.DuplicatePlugin{Name: p.Name})
			return
		}
	}
	p.registry = r
	r.plugins = append(r.plugins, p)
}

// Plugin resolves a plugin by name. Absence is a hard failure.
func (r *Registry) Plugin(name string) (*Plugin, error) {
	for _, p := range r.plugins {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("registry: no plugin registered under name %q", name)
}

// OnSetup registers a callback that runs exactly once, in registration
// order, before the pipeline.
func (r *Registry) OnSetup(fn SetupFunc) {
	if fn != nil {
		r.setups = append(r.setups, fn)
	}
}

func (r *Registry) runSetup(ctx context.Context) error {
	if r.setupRan {
		return nil
	}
	for _, fn := range r.setups {
		if err := fn(ctx, r); err != nil {
			return err
		}
	}
	r.setupRan = true
	return nil
}

// prepare runs setup once and the pipeline once.
func (r *Registry) prepare(ctx context.Context) error {
	if r.compiler == nil {
		return fmt.Errorf("registry: no compiler configured")
	}
	if err := r.runSetup(ctx); err != nil {
		return err
	}
	return r.runPipeline(ctx)
}

// DeclarationSchema compiles the base declarations only: no resolvers, no
// remote sources. Intended for introspection; a fresh artifact every call.
func (r *Registry) DeclarationSchema(ctx context.Context) (art *Artifact, err error) {
	ctx, finish := r.instrument(ctx, "declaration")
	defer func() { finish(err) }()
	if err = r.prepare(ctx); err != nil {
		return nil, err
	}
	return r.compiler.Compile(ctx, r.store.base.document(false), nil)
}

// ComposedSchema compiles the base declarations and resolvers, resolves
// every remote source and composes them with the extension declarations
// layered on top. A fresh artifact every call, never cached.
func (r *Registry) ComposedSchema(ctx context.Context) (art *Artifact, err error) {
	ctx, finish := r.instrument(ctx, "composed")
	defer func() { finish(err) }()
	if err = r.prepare(ctx); err != nil {
		return nil, err
	}
	return r.composeSchema(ctx, false)
}

// ExecutableSchema is ComposedSchema plus extension resolvers, with every
// directive-resolver transform applied in registration order. The artifact
// is cached after the first success and returned unchanged thereafter.
func (r *Registry) ExecutableSchema(ctx context.Context) (art *Artifact, err error) {
	if r.executable != nil {
		return r.executable, nil
	}
	ctx, finish := r.instrument(ctx, "executable")
	defer func() { finish(err) }()
	if err = r.prepare(ctx); err != nil {
		return nil, err
	}
	art, err = r.composeSchema(ctx, true)
	if err != nil {
		return nil, err
	}
	for _, entry := range r.store.directiveResolvers {
		transform, ok := entry.value.(SchemaTransform)
		if !ok {
			if fn, fnOK := entry.value.(func(*Artifact) (*Artifact, error)); fnOK {
				transform = fn
			} else {
				return nil, fmt.Errorf("registry: directive resolver %q is not a schema transform", entry.name)
			}
		}
		art, err = transform(art)
		if err != nil {
			return nil, err
		}
	}
	r.executable = art
	return art, nil
}

func (r *Registry) composeSchema(ctx context.Context, withExtensionResolvers bool) (*Artifact, error) {
	if r.composer == nil {
		return nil, fmt.Errorf("registry: no composer configured")
	}
	local, err := r.compiler.Compile(ctx, r.store.base.document(false), r.assembleResolvers(&r.store.base))
	if err != nil {
		return nil, err
	}
	sources := []*Artifact{local}
	if len(r.remotes) > 0 {
		if r.wrapper == nil {
			return nil, fmt.Errorf("registry: no wrapper configured")
		}
		remotes, err := r.resolveRemoteSources(ctx)
		if err != nil {
			return nil, err
		}
		sources = append(sources, remotes...)
	}
	var extResolvers ResolverMap
	if withExtensionResolvers {
		extResolvers = r.assembleResolvers(&r.store.extension)
	}
	return r.composer.Compose(ctx, sources, r.store.extension.document(true), extResolvers)
}

// assembleResolvers flattens a variant's category maps into the per-type
// shape artifacts carry: type names at the top level, operation resolvers
// nested under their container type names. The base variant additionally
// starts from the free-form top-level map.
func (r *Registry) assembleResolvers(s *variantStore) ResolverMap {
	out := ResolverMap{}
	if s == &r.store.base {
		out = r.store.freeform.clone()
	}
	for name, v := range s.typeResolvers {
		out[name] = v
	}
	for _, c := range []struct {
		container string
		fields    ResolverMap
	}{
		{rootQueryName, s.queryResolvers},
		{rootMutationName, s.mutationResolvers},
		{rootSubscriptionName, s.subscriptionResolvers},
	} {
		if len(c.fields) == 0 {
			continue
		}
		nested, ok := out[c.container].(ResolverMap)
		if !ok {
			nested = ResolverMap{}
		} else {
			nested = nested.clone()
		}
		nested.Merge(c.fields)
		out[c.container] = nested
	}
	return out
}

// instrument stamps a build ID into ctx and returns the finish callback for
// the start/finish event pair around a finalize operation.
func (r *Registry) instrument(ctx context.Context, kind string) (context.Context, func(error)) {
	ctx, _ = buildid.Ensure(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.BuildStart{Kind: kind})
	return ctx, func(err error) {
		eventbus.Publish(ctx, events.BuildFinish{Kind: kind, Err: err, Duration: time.Since(start)})
	}
}

// Clear empties every declaration, resolver, remote and setup collection,
// resets both one-shot flags and the cached artifact, then notifies every
// plugin. Registered plugins survive a clear.
func (r *Registry) Clear() {
	r.store = newStores()
	r.remotes = nil
	r.remoteIndex = make(map[string]*RemoteSource)
	r.setups = nil
	r.setupRan = false
	r.processed = false
	r.executable = nil
	for _, p := range r.plugins {
		if p.Hooks.Cleared != nil {
			p.Hooks.Cleared()
		}
	}
}

// Documents exposes the freshly assembled base and extension documents.
// Primarily useful to setup callbacks and tests.
func (r *Registry) Documents() Documents {
	return r.store.documents()
}
