// Package lazy provides a registry of named resources that are built on
// first use.
//
// Each name moves through an explicit state machine:
//
//	registered -> loading -> loaded
//	                      -> failed -> loading (retry on next Get)
//
// A loader that asks, directly or through other loaders, for a resource that
// is still loading on its own call chain fails fast with ErrCircularLoad
// instead of deadlocking.
//
// # Nested loads
//
// The load chain travels in the context. A loader must pass the ctx it
// receives, or a context derived from it, to every nested Get:
//
//	r.Register("grader", func(ctx context.Context) (any, error) {
//		return r.Get(ctx, "rubric") // not context.Background()
//	})
//
// A nested Get made with an unrelated context looks like an ordinary
// concurrent caller. If it asks for a name on its own chain it waits for a
// load that is waiting for it, and that name stays in StateLoading for every
// later caller. Callers can bound such a wait with a context deadline.
//
// Concurrent Gets for a cold name share one load.
package lazy
