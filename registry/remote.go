package registry

import (
	"context"
	"time"

	eventbus "github.com/schemabus/schemabus/eventbus"
	events "github.com/schemabus/schemabus/events"
)

// RemoteSource describes an external declaration source. Either Artifact
// (eager) or Load (async supplier) provides the source schema; a descriptor
// with neither contributes nothing to a build. Descriptors are immutable
// once registered except for the lazily cached wrapped form.
type RemoteSource struct {
	Name     string
	Artifact *Artifact
	Load     func(ctx context.Context) (*Artifact, error)
	Executor Executor
	Rewrites []Rewrite

	wrapped *Artifact
}

// RegisterRemoteSource stores a descriptor under its name. The first
// registration per name wins; later collisions are ignored.
func (r *Registry) RegisterRemoteSource(src *RemoteSource) {
	if src == nil || src.Name == "" {
		return
	}
	if _, ok := r.remoteIndex[src.Name]; ok {
		return
	}
	r.remotes = append(r.remotes, src)
	r.remoteIndex[src.Name] = src
}

// RemoteSource resolves a descriptor by name.
func (r *Registry) RemoteSource(name string) (*RemoteSource, bool) {
	src, ok := r.remoteIndex[name]
	return src, ok
}

// RemoteExecutor resolves a descriptor's executor by name.
func (r *Registry) RemoteExecutor(name string) (Executor, bool) {
	src, ok := r.remoteIndex[name]
	if !ok || src.Executor == nil {
		return nil, false
	}
	return src.Executor, true
}

// resolveRemoteSources resolves and wraps every registered descriptor in
// registration order, caching the wrapped form on the descriptor. Resolution
// never touches the declaration store, so implementations are free to
// parallelize it; this one stays sequential to keep compose input order
// deterministic.
func (r *Registry) resolveRemoteSources(ctx context.Context) ([]*Artifact, error) {
	var out []*Artifact
	for _, src := range r.remotes {
		if src.wrapped != nil {
			out = append(out, src.wrapped)
			continue
		}
		art := src.Artifact
		if art == nil && src.Load != nil {
			loaded, err := src.Load(ctx)
			if err != nil {
				return nil, err
			}
			art = loaded
		}
		if art == nil {
			continue
		}
		start := time.Now()
		wrapped, err := r.wrapper.Wrap(ctx, art, src.Executor, src.Rewrites)
		if err != nil {
			return nil, err
		}
		eventbus.Publish(ctx, events.RemoteSourceWrapped{Name: src.Name, Duration: time.Since(start)})
		src.wrapped = wrapped
		out = append(out, wrapped)
	}
	return out, nil
}
