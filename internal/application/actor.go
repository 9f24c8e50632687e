package application

import "context"

type actorKey struct{}

// DefaultActor is recorded when a request carries no identity.
const DefaultActor = "system"

// WithActor attaches the caller's name to ctx.
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

// Actor returns the caller recorded by WithActor, or DefaultActor.
func Actor(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultActor
}
