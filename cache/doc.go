// Package cache provides a bounded in-memory cache and a memoizing wrapper.
//
// BoundedCache holds at most MaxSize entries, evicts the least recently used
// entry when full, and checks per-entry TTLs lazily on access. Memoized wraps
// a function so repeated calls with structurally equal arguments return the
// stored result instead of running the function again.
package cache
