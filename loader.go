package cache

import "context"

/*
Loader is the externally injected data source the Warmer calls to populate
predicted keys. It is fallible and may be slow -- the Warmer never calls it
while holding a cache lock, and always wraps the call with a circuit
breaker and a per-attempt timeout, surfacing failures as ErrLoaderFailure
or ErrTimeout.

A Loader is a plain function type rather than a one-method interface so
callers can pass closures directly.
*/
type Loader func(ctx context.Context, key string) (any, error)
