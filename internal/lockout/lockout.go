// Package lockout throttles repeated failed logins per identity.
//
// A Limiter counts failures for an opaque key inside a sliding window. Once
// MaxAttempts failures are recorded the key is locked for Duration and Check
// returns common.ErrTooManyAttempts until the lock expires or Reset is called.
// Keys should be derived from digests, never from raw identifiers.
package lockout

import (
	"context"
	"time"
)

type Limiter interface {
	// Check returns common.ErrTooManyAttempts while key is locked.
	Check(ctx context.Context, key string) error
	// Fail records one failed attempt for key.
	Fail(ctx context.Context, key string) error
	// Reset forgets all failures and any lock for key.
	Reset(ctx context.Context, key string) error
}

// Policy holds the throttling parameters shared by every backend.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
	Duration    time.Duration
}

// Nop never locks anything.
type Nop struct{}

func (Nop) Check(context.Context, string) error { return nil }
func (Nop) Fail(context.Context, string) error  { return nil }
func (Nop) Reset(context.Context, string) error { return nil }
