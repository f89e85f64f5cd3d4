// Package sensor runs the climate sensor task: it reads the DHT11 on a
// periodic cadence or on request, never more often than a minimum
// interval, and publishes successful readings to a locked current value
// and a fixed-size history.
package sensor

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/sweeney/climate-node/internal/dht"
	"github.com/sweeney/climate-node/internal/notify"
)

// Reader performs physical sensor reads. *dht.Sensor implements it.
type Reader interface {
	Read(quiet bool) (dht.Measurement, error)
	ReadRetry(ctx context.Context, p dht.RetryPolicy) (dht.Measurement, error)
}

// Reading is one published measurement. Values are NaN before the first
// successful read.
type Reading struct {
	TemperatureF float64
	Humidity     float64
	Timestamp    time.Time
}

// Valid reports whether the reading holds a measurement.
func (r Reading) Valid() bool {
	return !math.IsNaN(r.TemperatureF) && !math.IsNaN(r.Humidity)
}

// Config controls the coordinator's cadence.
type Config struct {
	Period      time.Duration // idle wait between periodic reads
	MinInterval time.Duration // minimum spacing between read attempts
	Settle      time.Duration // pause after the warm-up read
	Retry       dht.RetryPolicy
}

// DefaultConfig reads every minute, at most every three seconds.
var DefaultConfig = Config{
	Period:      60 * time.Second,
	MinInterval: 3 * time.Second,
	Settle:      3 * time.Second,
	Retry:       dht.DefaultRetryPolicy,
}

// Snapshot is a consistent view of the coordinator's state.
type Snapshot struct {
	Current        Reading
	LastSuccess    time.Time // zero before the first successful read
	Attempts       uint64    // read cycles, warm-up excluded
	Failures       uint64    // cycles where every attempt failed
	HistoryLen     int
	RequestPending bool
}

// Coordinator owns the sensor state. Only Run mutates it; every accessor
// copies under the lock.
type Coordinator struct {
	reader  Reader
	cfg     Config
	request *notify.Signal
	updates *notify.Hub
	now     func() time.Time

	mu          sync.Mutex
	current     Reading
	lastSuccess time.Time
	hist        history
	attempts    uint64
	failures    uint64
}

// NewCoordinator creates a Coordinator reading from r. updates, if non-nil,
// is notified after each successful publish.
func NewCoordinator(r Reader, cfg Config, updates *notify.Hub) *Coordinator {
	return &Coordinator{
		reader:  r,
		cfg:     cfg,
		request: notify.NewSignal(),
		updates: updates,
		now:     time.Now,
		current: Reading{TemperatureF: math.NaN(), Humidity: math.NaN()},
	}
}

// RequestRead asks for an immediate read. Requests made before the
// coordinator services them collapse into one; a request inside the
// minimum interval is delayed, never dropped.
func (c *Coordinator) RequestRead() {
	c.request.Notify()
}

// Current returns the latest reading, NaN before the first success.
func (c *Coordinator) Current() Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// LastSuccessfulRead returns when the latest reading was published.
func (c *Coordinator) LastSuccessfulRead() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSuccess
}

// History returns up to HistorySize readings, oldest first.
func (c *Coordinator) History() []Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hist.readings()
}

// Snapshot returns the current state in one locked copy.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Current:        c.current,
		LastSuccess:    c.lastSuccess,
		Attempts:       c.attempts,
		Failures:       c.failures,
		HistoryLen:     c.hist.len(),
		RequestPending: c.request.Pending(),
	}
}

// Run drives the sensor until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	log.Printf("sensor: task started (period %s, min interval %s)", c.cfg.Period, c.cfg.MinInterval)

	// The first reading after power-up is unreliable.
	c.reader.Read(true)
	lastAttempt := c.now()
	log.Printf("sensor: warm-up read done")
	if !sleep(ctx, c.cfg.Settle) {
		return
	}

	for ctx.Err() == nil {
		if since := c.now().Sub(lastAttempt); since < c.cfg.MinInterval {
			c.wait(ctx, c.cfg.MinInterval-since)
			continue
		}

		c.cycle(ctx)
		// A failed cycle ends on a physical read, so the interval counts
		// from the end of the cycle.
		lastAttempt = c.now()
		c.wait(ctx, c.cfg.Period)
	}
}

// cycle runs one retried read and publishes or reports the outcome.
func (c *Coordinator) cycle(ctx context.Context) {
	m, err := c.reader.ReadRetry(ctx, c.cfg.Retry)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.mu.Lock()
		c.attempts++
		c.failures++
		c.mu.Unlock()
		log.Printf("sensor: CRITICAL: read failed, keeping last reading: %v", err)
		return
	}

	r := c.publish(m)
	log.Printf("sensor: temperature %.2f F, humidity %.1f %%", r.TemperatureF, r.Humidity)
}

func (c *Coordinator) publish(m dht.Measurement) Reading {
	c.mu.Lock()
	now := c.now()
	r := Reading{
		TemperatureF: m.Fahrenheit(),
		Humidity:     m.Humidity,
		Timestamp:    now,
	}
	c.current = r
	c.hist.push(r)
	c.lastSuccess = now
	c.attempts++
	c.mu.Unlock()

	if c.updates != nil {
		c.updates.Notify()
	}
	return r
}

// wait blocks for d, until a read is requested, or until ctx is done.
func (c *Coordinator) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-c.request.C():
	case <-t.C:
	}
}

// sleep blocks for d unless ctx is done first. It reports whether the
// full duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
