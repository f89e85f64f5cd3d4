package dht

import "time"

// spinBelow is the longest wait SystemClock busy-waits instead of sleeping.
const spinBelow = time.Millisecond

// SystemClock is the monotonic wall clock.
type SystemClock struct {
	epoch time.Time
}

// NewSystemClock returns a clock whose zero is now.
func NewSystemClock() *SystemClock {
	return &SystemClock{epoch: time.Now()}
}

// Now returns the time elapsed since the clock was created.
func (c *SystemClock) Now() time.Duration {
	return time.Since(c.epoch)
}

// Sleep blocks for d. Waits under a millisecond spin, since the scheduler
// cannot wake a goroutine with microsecond accuracy.
func (c *SystemClock) Sleep(d time.Duration) {
	if d >= spinBelow {
		time.Sleep(d)
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
