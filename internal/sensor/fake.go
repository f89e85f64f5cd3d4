package sensor

import (
	"context"
	"sync"

	"github.com/sweeney/climate-node/internal/dht"
)

// FakeReader is a test double that returns a scripted measurement.
type FakeReader struct {
	mu          sync.Mutex
	measurement dht.Measurement
	err         error
	gate        chan struct{}
	reads       int
	warmUps     int
	entered     chan struct{}
}

// NewFakeReader creates a FakeReader that returns raw decoded.
func NewFakeReader(raw [5]byte) *FakeReader {
	f := &FakeReader{entered: make(chan struct{}, 16)}
	f.SetFrame(raw)
	return f
}

// SetFrame makes later reads decode raw, including its checksum check.
func (f *FakeReader) SetFrame(raw [5]byte) {
	m, err := dht.Decode(raw)
	f.mu.Lock()
	f.measurement, f.err = m, err
	f.mu.Unlock()
}

// SetError makes later reads fail with err.
func (f *FakeReader) SetError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Hold makes the next ReadRetry calls block until the returned function
// is called.
func (f *FakeReader) Hold() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Entered receives once per ReadRetry call, before any Hold blocks it.
func (f *FakeReader) Entered() <-chan struct{} {
	return f.entered
}

// Read is the warm-up read.
func (f *FakeReader) Read(quiet bool) (dht.Measurement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmUps++
	return f.measurement, f.err
}

// ReadRetry counts one read cycle and returns the scripted result.
func (f *FakeReader) ReadRetry(ctx context.Context, p dht.RetryPolicy) (dht.Measurement, error) {
	f.mu.Lock()
	f.reads++
	gate := f.gate
	f.mu.Unlock()

	select {
	case f.entered <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return dht.Measurement{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.measurement, f.err
}

// Reads returns how many read cycles have started.
func (f *FakeReader) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// WarmUps returns how many single reads have been made.
func (f *FakeReader) WarmUps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.warmUps
}
