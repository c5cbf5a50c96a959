package pool

import (
	"math/rand"
	"time"
)

// LoginDelay computes the wait before login attempt n+1: a linear ramp on the
// attempt number plus random jitter so a fleet of accounts does not hammer
// the login flow in lockstep. Attempt counts from 1.
func LoginDelay(attempt int, base, jitter time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := base * time.Duration(attempt)
	if jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(jitter)))
	}

	return delay
}
