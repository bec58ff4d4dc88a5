package middleware

import (
	"context"

	"github.com/Hazher89/oppdrag-app/pkg/types"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the authenticated principal, if any.
func ActorFromContext(ctx context.Context) (types.Actor, bool) {
	if ctx == nil {
		return types.Actor{}, false
	}
	if v, ok := ctx.Value(ctxActor).(types.Actor); ok {
		return v, true
	}
	return types.Actor{}, false
}

// WithActor injects the authenticated principal into the context.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
