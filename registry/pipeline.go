package registry

import (
	"context"
	"time"

	eventbus "github.com/schemabus/schemabus/eventbus"
	events "github.com/schemabus/schemabus/events"
	language "github.com/schemabus/schemabus/language"
)

// Pipeline phase names, in execution order.
const (
	phaseNotify      = "notify"
	phasePreRewrite  = "pre-rewrite"
	phaseMain        = "main"
	phaseDirectives  = "directives"
	phasePostRewrite = "post-rewrite"
	phaseFinalize    = "finalize"
)

// runPipeline executes the plugin pipeline body at most once per registry
// lifetime. The processed flag is only set after the whole body succeeds, so
// a failed run (for example a validation hook error) re-attempts from
// scratch on the next finalize call. Merges applied by hooks that succeeded
// before the failure remain in the store.
func (r *Registry) runPipeline(ctx context.Context) (err error) {
	if r.processed {
		return nil
	}
	start := time.Now()
	eventbus.Publish(ctx, events.PipelineStart{Plugins: len(r.plugins)})
	defer func() {
		eventbus.Publish(ctx, events.PipelineFinish{Err: err, Duration: time.Since(start)})
	}()

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{phaseNotify, r.notifyPhase},
		{phasePreRewrite, func(ctx context.Context) error { return r.rewritePhase(ctx, false) }},
		{phaseMain, r.mainPhase},
		{phaseDirectives, r.directivePhase},
		{phasePostRewrite, func(ctx context.Context) error { return r.rewritePhase(ctx, true) }},
		{phaseFinalize, r.finalizePhase},
	}
	for _, phase := range phases {
		phaseStart := time.Now()
		eventbus.Publish(ctx, events.PhaseStart{Phase: phase.name})
		err := phase.run(ctx)
		eventbus.Publish(ctx, events.PhaseFinish{Phase: phase.name, Err: err, Duration: time.Since(phaseStart)})
		if err != nil {
			return err
		}
	}
	r.processed = true
	return nil
}

// broadcast recomputes the documents and notifies every plugin. Hook results
// are informational only, but an error still aborts the build.
func (r *Registry) broadcast(ctx context.Context) error {
	docs := r.store.documents()
	for _, p := range r.plugins {
		if p.Hooks.ObserveDocuments == nil {
			continue
		}
		if err := p.Hooks.ObserveDocuments(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) notifyPhase(ctx context.Context) error {
	return r.broadcast(ctx)
}

// rewritePhase offers every current type declaration to each plugin's
// rewrite hook. Documents and the type snapshot are recomputed per plugin;
// if a plugin replaced anything, all plugins are re-notified before the next
// plugin's sweep.
func (r *Registry) rewritePhase(ctx context.Context, post bool) error {
	for _, p := range r.plugins {
		hook := p.Hooks.PreRewriteType
		if post {
			hook = p.Hooks.PostRewriteType
		}
		if hook == nil {
			continue
		}
		docs := r.store.documents()
		changed := false
		for _, def := range snapshotTypes(r.store.base.types) {
			replacement, err := hook(ctx, def, docs)
			if err != nil {
				return err
			}
			if replacement == nil {
				continue
			}
			r.store.upsert(CategoryType, []Declaration{TypeDecl(replacement)})
			changed = true
		}
		if changed {
			if err := r.broadcast(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// mainPhase runs each plugin over the operation categories in the fixed
// order type, query, mutation, subscription.
func (r *Registry) mainPhase(ctx context.Context) error {
	for _, p := range r.plugins {
		for _, cat := range operationCategories {
			if err := r.runCategory(ctx, p, cat); err != nil {
				return err
			}
		}
	}
	return nil
}

// runCategory offers one plugin's hook bundle for one category. Every
// definition-adding sub-step that yields output re-broadcasts before the
// next sub-step; resolver sub-steps merge silently.
func (r *Registry) runCategory(ctx context.Context, p *Plugin, cat Category) error {
	h := p.Hooks.category(cat)
	if h == nil {
		return nil
	}
	if err := r.declarationStep(ctx, cat, h.Declarations); err != nil {
		return err
	}
	if err := r.declarationForTypeStep(ctx, cat, h.DeclarationsForType); err != nil {
		return err
	}
	if err := r.declarationStep(ctx, cat, h.ExtensionDeclarations); err != nil {
		return err
	}
	if err := r.declarationForTypeStep(ctx, cat, h.ExtensionDeclarationsForType); err != nil {
		return err
	}
	if err := r.resolverStep(ctx, cat, false, h.Resolvers); err != nil {
		return err
	}
	if err := r.resolverForTypeStep(ctx, cat, false, h.ResolversForType); err != nil {
		return err
	}
	if err := r.resolverStep(ctx, cat, true, h.ExtensionResolvers); err != nil {
		return err
	}
	return r.resolverForTypeStep(ctx, cat, true, h.ExtensionResolversForType)
}

func (r *Registry) declarationStep(ctx context.Context, cat Category, hook DeclarationsHook) error {
	if hook == nil {
		return nil
	}
	out, err := hook(ctx, r.store.documents())
	if err != nil {
		return err
	}
	if r.store.upsert(cat, out) {
		return r.broadcast(ctx)
	}
	return nil
}

func (r *Registry) declarationForTypeStep(ctx context.Context, cat Category, hook TypeDeclarationsHook) error {
	if hook == nil {
		return nil
	}
	docs := r.store.documents()
	changed := false
	for _, def := range snapshotTypes(r.store.base.types) {
		out, err := hook(ctx, def, docs)
		if err != nil {
			return err
		}
		if r.store.upsert(cat, out) {
			changed = true
		}
	}
	if changed {
		return r.broadcast(ctx)
	}
	return nil
}

func (r *Registry) resolverStep(ctx context.Context, cat Category, extension bool, hook ResolversHook) error {
	if hook == nil {
		return nil
	}
	out, err := hook(ctx, r.store.documents())
	if err != nil {
		return err
	}
	r.store.upsertResolvers(cat, extension, out)
	return nil
}

func (r *Registry) resolverForTypeStep(ctx context.Context, cat Category, extension bool, hook TypeResolversHook) error {
	if hook == nil {
		return nil
	}
	docs := r.store.documents()
	for _, def := range snapshotTypes(r.store.base.types) {
		out, err := hook(ctx, def, docs)
		if err != nil {
			return err
		}
		r.store.upsertResolvers(cat, extension, out)
	}
	return nil
}

// directivePhase offers each plugin's directive hooks: definitions first
// (re-broadcasting on change), then directive resolvers.
func (r *Registry) directivePhase(ctx context.Context) error {
	for _, p := range r.plugins {
		if err := r.declarationStep(ctx, CategoryDirective, p.Hooks.DirectiveDeclarations); err != nil {
			return err
		}
		if p.Hooks.DirectiveResolvers == nil {
			continue
		}
		out, err := p.Hooks.DirectiveResolvers(ctx, r.store.documents())
		if err != nil {
			return err
		}
		r.store.mergeDirectiveResolvers(out)
	}
	return nil
}

// finalizePhase runs, per plugin in order, the validation hook and then the
// final-document notification. A validation error propagates uncaught.
func (r *Registry) finalizePhase(ctx context.Context) error {
	for _, p := range r.plugins {
		docs := r.store.documents()
		if p.Hooks.Validate != nil {
			if err := p.Hooks.Validate(ctx, docs); err != nil {
				return err
			}
		}
		if p.Hooks.Finalized != nil {
			if err := p.Hooks.Finalized(ctx, docs); err != nil {
				return err
			}
		}
	}
	return nil
}

// snapshotTypes copies the type sequence so hooks can upsert (reordering the
// canonical slice) while the sweep keeps iterating the view it started with.
func snapshotTypes(list language.DefinitionList) language.DefinitionList {
	out := make(language.DefinitionList, len(list))
	copy(out, list)
	return out
}
