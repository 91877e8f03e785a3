package registry

import (
	"context"

	language "github.com/schemabus/schemabus/language"
)

// Hook signatures. Every hook is optional (a nil field contributes nothing)
// and may block; the pipeline always waits for a hook to return before the
// next one runs. A nil contribution means "nothing to add"; non-nil
// contributions are merged through the store's upsert for their category.
type (
	// ObserveHook receives the current documents. Its only output is an
	// error; contributions are not accepted.
	ObserveHook func(ctx context.Context, docs Documents) error

	// DeclarationsHook contributes declarations for the category it is
	// registered under.
	DeclarationsHook func(ctx context.Context, docs Documents) ([]Declaration, error)

	// TypeDeclarationsHook contributes declarations given one current
	// type declaration. It runs once per type in store order.
	TypeDeclarationsHook func(ctx context.Context, def *language.Definition, docs Documents) ([]Declaration, error)

	// ResolversHook contributes resolver entries for its category.
	ResolversHook func(ctx context.Context, docs Documents) (ResolverMap, error)

	// TypeResolversHook contributes resolver entries given one current
	// type declaration.
	TypeResolversHook func(ctx context.Context, def *language.Definition, docs Documents) (ResolverMap, error)

	// RewriteTypeHook may return a replacement for a type declaration.
	// A nil result keeps the declaration unchanged.
	RewriteTypeHook func(ctx context.Context, def *language.Definition, docs Documents) (*language.Definition, error)
)

// CategoryHooks bundles the main-phase hooks of one category. The pipeline
// offers them in field order: declarations, per-type declarations, their
// extension-targeted equivalents, then the resolver hooks and theirs.
type CategoryHooks struct {
	Declarations                 DeclarationsHook
	DeclarationsForType          TypeDeclarationsHook
	ExtensionDeclarations        DeclarationsHook
	ExtensionDeclarationsForType TypeDeclarationsHook
	Resolvers                    ResolversHook
	ResolversForType             TypeResolversHook
	ExtensionResolvers           ResolversHook
	ExtensionResolversForType    TypeResolversHook
}

// Hooks is the plugin capability record. A zero Hooks value is a valid
// plugin that contributes nothing.
type Hooks struct {
	// ObserveDocuments runs in the initial notify phase and again on every
	// re-broadcast after a definition-changing sub-step.
	ObserveDocuments ObserveHook

	// PreRewriteType and PostRewriteType run over every current type
	// declaration before and after the main phase.
	PreRewriteType  RewriteTypeHook
	PostRewriteType RewriteTypeHook

	// Main-phase hook bundles, offered in this category order.
	Type         CategoryHooks
	Query        CategoryHooks
	Mutation     CategoryHooks
	Subscription CategoryHooks

	// Directive phase.
	DirectiveDeclarations DeclarationsHook
	DirectiveResolvers    ResolversHook

	// Finalize phase: Validate may fail the build; Finalized is the final
	// notification before the documents leave the pipeline.
	Validate  ObserveHook
	Finalized ObserveHook

	// Cleared runs when the owning registry is cleared.
	Cleared func()
}

// Plugin is an ordered, uniquely named pipeline participant.
type Plugin struct {
	Name  string
	Hooks Hooks

	registry *Registry
}

// Registry returns the registry the plugin was registered with, nil before
// registration.
func (p *Plugin) Registry() *Registry { return p.registry }

func (h *Hooks) category(cat Category) *CategoryHooks {
	switch cat {
	case CategoryType:
		return &h.Type
	case CategoryQuery:
		return &h.Query
	case CategoryMutation:
		return &h.Mutation
	case CategorySubscription:
		return &h.Subscription
	}
	return nil
}
