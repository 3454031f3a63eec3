package agent

import (
	"context"
)

// Store scopes a Cache to a namespace and takes its key from the context.
type Store[S any] struct {
	core      Cache[S]
	namespace string
	keyFn     func(ctx context.Context) string
}

func NewStore[S any](core Cache[S], namespace string, keyFn func(ctx context.Context) string) Store[S] {
	return Store[S]{
		core:      core,
		namespace: namespace,
		keyFn:     keyFn,
	}
}

func (c Store[S]) key(ctx context.Context) string {
	return c.namespace + ":" + c.keyFn(ctx)
}

func (c Store[S]) Set(ctx context.Context, val S) error {
	return c.core.Set(ctx, c.key(ctx), val)
}

func (c Store[S]) Get(ctx context.Context) (S, bool, error) {
	return c.core.Get(ctx, c.key(ctx))
}

func (c Store[S]) Del(ctx context.Context) error {
	return c.core.Del(ctx, c.key(ctx))
}

func (c Store[S]) Exists(ctx context.Context) (bool, error) {
	return c.core.Exists(ctx, c.key(ctx))
}
