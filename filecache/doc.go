// Package filecache stores values on disk, one file per key.
//
// File names are derived from the key: a readable prefix limited to
// [A-Za-z0-9_-] followed by a short SHA-256 suffix, so arbitrary keys
// (including ones containing path separators) always land inside the cache
// directory and distinct keys never share a file. Writes go to a temp file
// that is renamed into place, so readers never observe a partial entry.
//
// The cache is soft: I/O and decode failures are logged and reported as a
// miss, never returned to the caller.
package filecache
