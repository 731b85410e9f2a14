// Package backoff implements the pure retry delay policy used between call attempts.
//
// The policy is transport-agnostic so it can be tested without any network
// mocking: raw = min(base * 2^(attempt-1), cap), plus a uniform jitter of up
// to raw*JitterFraction. Attempts are 1-indexed; the first attempt is issued
// immediately, so Delay(1) is the wait before the second attempt.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy computes the delay before the next retry. The zero JitterFraction
// disables jitter. Policies hold no mutable state and are safe to share
// across retry loops.
type Policy struct {
	Base           time.Duration // Delay after the first failed attempt
	Cap            time.Duration // Upper bound on the raw (pre-jitter) delay
	JitterFraction float64       // Jitter is uniform in [0, raw*JitterFraction)

	// Jitter returns a uniform sample in [0, 1). Nil uses math/rand, which
	// is safe for concurrent use; inject a seeded source for determinism.
	Jitter func() float64
}

// Delay returns the wait after the given failed attempt (1-indexed).
// The raw component is non-decreasing in attempt and bounded by Cap, so the
// result never exceeds Cap * (1 + JitterFraction).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	raw := time.Duration(float64(p.Base) * math.Pow(2, float64(attempt-1)))
	// Overflow from the exponentiation shows up as a non-positive duration.
	if raw > p.Cap || raw <= 0 {
		raw = p.Cap
	}

	if p.JitterFraction <= 0 {
		return raw
	}

	sample := rand.Float64 //nolint:gosec // jitter needs no cryptographic strength
	if p.Jitter != nil {
		sample = p.Jitter
	}
	jitter := time.Duration(float64(raw) * p.JitterFraction * sample())

	return raw + jitter
}
