package cache

import "errors"

/*
Error kinds recognized across the cache packages.

These are sentinels rather than typed errors because callers only ever need
errors.Is against a fixed, small set of kinds -- the propagation policy is
deliberately narrow: the façade never surfaces anything beyond BadInput on
Set/Delete, everything else is logged, counted, and swallowed.
*/
var (
	// ErrBadKey is returned when a non-string or empty key is supplied.
	ErrBadKey = errors.New("cache: invalid key")

	// ErrInvalidPattern is returned when DeletePattern is given a regex
	// that fails to compile.
	ErrInvalidPattern = errors.New("cache: invalid delete pattern")

	// ErrCapacityExceeded is returned when a bounded queue (warming or
	// worker pool) is full.
	ErrCapacityExceeded = errors.New("cache: capacity exceeded")

	// ErrLoaderFailure marks a warming attempt whose injected Loader
	// returned an error or no value.
	ErrLoaderFailure = errors.New("cache: loader failure")

	// ErrCompressionFailure marks an L3 entry that failed to compress or
	// decompress; the entry is treated as absent.
	ErrCompressionFailure = errors.New("cache: compression failure")

	// ErrWorkerCrash marks a worker pool task whose worker terminated
	// unexpectedly.
	ErrWorkerCrash = errors.New("cache: worker terminated unexpectedly")

	// ErrTimeout marks a warming or worker task that exceeded its
	// configured deadline.
	ErrTimeout = errors.New("cache: task timeout")

	// ErrDestroyed names the destroyed state of a cache instance. No
	// operation in this module returns it; calls made after Destroy do not
	// fail with it.
	ErrDestroyed = errors.New("cache: instance destroyed")
)
