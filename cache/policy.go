package cache

import (
	"errors"
	"time"
)

// ErrInvalidPolicy indicates a negative TTL in a Policy.
var ErrInvalidPolicy = errors.New("cache: policy TTLs must not be negative")

// Policy configures entry lifetimes.
type Policy struct {
	// DefaultTTL applies to entries stored with Set.
	// Zero means entries never expire.
	DefaultTTL time.Duration

	// MaxTTL caps every entry's lifetime, including entries that would
	// otherwise never expire. Zero means no cap.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default policy.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}
}

// NoExpiryPolicy returns a policy under which entries live until evicted.
func NoExpiryPolicy() Policy {
	return Policy{}
}

// Validate reports whether the policy is usable.
func (p Policy) Validate() error {
	if p.DefaultTTL < 0 || p.MaxTTL < 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// EffectiveTTL clamps a positive lifetime to MaxTTL. A non-positive ttl
// stands for "never expires" and becomes MaxTTL (still 0 when uncapped).
// The result is 0 when the entry never expires.
func (p Policy) EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return p.MaxTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		return p.MaxTTL
	}
	return ttl
}
