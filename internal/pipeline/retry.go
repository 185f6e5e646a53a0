package pipeline

import (
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docquiz/internal/generate"
)

// DefaultMaxRetries is the number of attempts per unit when none is
// configured.
const DefaultMaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	return generate.IsRetryable(err)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := min(time.Duration(1<<uint(attempt))*time.Second, 30*time.Second)
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
