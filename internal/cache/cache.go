// Package cache stores the most recent check result per resource. It is the
// engine's only shared mutable state: a hit suppresses re-execution and
// notification evaluation, and the retained last entry (even past its TTL)
// is what makes status-transition detection possible.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hazz-dev/resmon/internal/check"
)

// ErrMiss is returned when no fresh entry exists for a resource.
var ErrMiss = errors.New("cache miss")

// Entry wraps a cached check result with its expiry.
type Entry struct {
	Result    check.Result `json:"result"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Expired reports whether the entry's TTL has elapsed.
func (e *Entry) Expired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache holds one entry per resource name, overwritten on each fresh check.
// Expiry is checked lazily on read; expired entries stay retrievable via
// Last until the next fresh result overwrites them.
type Cache interface {
	// Get returns the entry for name, or ErrMiss when absent or expired.
	Get(ctx context.Context, name string) (*Entry, error)
	// Last returns the entry for name regardless of expiry, or ErrMiss
	// when absent. Used for transition detection against the previous run.
	Last(ctx context.Context, name string) (*Entry, error)
	// Put stores result under name with the given TTL. A non-positive TTL
	// stores an already-expired entry: Get will miss, Last still serves it.
	Put(ctx context.Context, name string, result check.Result, ttl time.Duration) error
	// Invalidate removes the entry for name, if any.
	Invalidate(ctx context.Context, name string) error
}
