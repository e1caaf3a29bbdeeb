package policy

import "context"

type actorContextKey struct{}

// ContextWithActor stores the authenticated actor in context. Set once per
// request by the auth middleware; nothing downstream mutates it.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. Nil means the request is
// unauthenticated.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
