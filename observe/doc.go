// Package observe provides observability primitives for the cache layer.
//
// It is a pure instrumentation library: structured logging, otel counters for
// cache hits, misses and evictions, and spans around deferred loads and
// memoized computations. Consumers wire an Observer into the cache, lazy and
// filecache packages through their options.
package observe
