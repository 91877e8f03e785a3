// Package buildid carries a per-build correlation ID in context so that
// telemetry subscribers can pair start/finish events of the same build.
package buildid

import (
	"context"

	"github.com/google/uuid"
)

// key is the context key for the build ID.
type key struct{}

// NewContext returns a copy of parent with a fresh build ID stored.
// It also returns the generated ID.
func NewContext(parent context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the build ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}

// Ensure returns ctx unchanged if it already carries a build ID, otherwise a
// derived context with a fresh one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id
	}
	return NewContext(ctx)
}
