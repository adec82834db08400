// Package actor carries the authenticated actor identity through a request.
// The workflow core trusts this context as given; authentication itself
// happens at the edge middleware.
package actor

import (
	"context"

	"github.com/google/uuid"
)

// Context identifies the authenticated actor of a request.
type Context struct {
	ID          uuid.UUID
	Role        string
	Permissions []string
}

// HasPermission reports whether the actor carries the given permission string.
func (a Context) HasPermission(perm string) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

type contextKey struct{}

// WithContext returns a context carrying the actor.
func WithContext(ctx context.Context, a Context) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the actor from the context, if any.
func FromContext(ctx context.Context) (Context, bool) {
	a, ok := ctx.Value(contextKey{}).(Context)
	return a, ok
}
