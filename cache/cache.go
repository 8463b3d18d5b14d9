package cache

import (
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a memoized function id.
const MaxKeyLength = 512

// DefaultMaxSize is used when a BoundedCache is created with a non-positive size.
const DefaultMaxSize = 128

// Sentinel errors for cache operations.
var (
	ErrInvalidKey    = errors.New("cache: key is invalid")
	ErrKeyTooLong    = errors.New("cache: key exceeds max length")
	ErrUnkeyableArgs = errors.New("cache: arguments cannot be fingerprinted")
	ErrFuncPanic     = errors.New("cache: memoized function panicked")

	// ErrCapacityInvariant is raised as a panic if a Set ever leaves the
	// cache above MaxSize. It indicates a bug in this package.
	ErrCapacityInvariant = errors.New("cache: size exceeds max size")
)

// ValidateKey checks if a key is usable as an identifier.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size          int
	MaxSize       int
	Hits          uint64
	Misses        uint64
	HitRate       float64 // Hits / TotalRequests, 0 when there were no requests
	TotalRequests uint64
	Evictions     uint64 // capacity evictions
	Expirations   uint64 // entries removed because their TTL elapsed
}
