package dht

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetryPolicy controls ReadRetry.
type RetryPolicy struct {
	MaxAttempts int
	// Cooldown separates consecutive attempts. The sensor needs a few
	// seconds between exchanges.
	Cooldown time.Duration
	// VerboseOnFinal logs the failure of the last attempt; earlier
	// attempts are always read quietly.
	VerboseOnFinal bool
}

// DefaultRetryPolicy is three attempts three seconds apart.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	Cooldown:       3 * time.Second,
	VerboseOnFinal: true,
}

// ReadRetry reads until an attempt succeeds or the policy is exhausted.
// The returned error wraps the last attempt's error. It returns ctx.Err()
// if the context is cancelled during a cooldown.
func (s *Sensor) ReadRetry(ctx context.Context, p RetryPolicy) (Measurement, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		final := attempt == attempts
		m, err := s.Read(!(final && p.VerboseOnFinal))
		if err == nil {
			return m, nil
		}
		lastErr = err
		if final {
			break
		}

		log.Printf("dht: attempt %d/%d failed, retrying in %s", attempt, attempts, p.Cooldown)
		t := time.NewTimer(p.Cooldown)
		select {
		case <-ctx.Done():
			t.Stop()
			return Measurement{}, ctx.Err()
		case <-t.C:
		}
	}
	return Measurement{}, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
