package push

import (
	"math/rand"
	"time"
)

// Backoff computes reconnect delays: exponential growth from Base, capped
// at Max, with full jitter.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	// Int63n draws the jitter; rand.Int63n when nil.
	Int63n func(n int64) int64
}

// Ceiling is the upper bound of the delay before the given attempt
// (zero-based).
func (b Backoff) Ceiling(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Delay returns a random duration in [0, Ceiling(attempt)].
func (b Backoff) Delay(attempt int) time.Duration {
	ceiling := b.Ceiling(attempt)
	if ceiling <= 0 {
		return 0
	}
	draw := b.Int63n
	if draw == nil {
		draw = rand.Int63n
	}
	return time.Duration(draw(int64(ceiling) + 1))
}
