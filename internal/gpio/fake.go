package gpio

import (
	"errors"
	"sync"
	"time"
)

// FakeLine is a test double for a single-wire data line and its clock.
// Each Release starts the next scripted frame: the line then follows the
// frame's segments in virtual time and idles high once they run out.
// Now advances the virtual clock by Step on every call, so busy-wait loops
// make progress.
type FakeLine struct {
	mu sync.Mutex

	// Step is the clock advance per Now call. Zero means one microsecond.
	Step time.Duration

	// DriveError, if set, is returned by Drive.
	DriveError error

	frames   [][]Segment
	next     int
	current  []Segment
	now      time.Duration
	released time.Duration
	driven   bool
	level    bool
	starts   int
}

// NewFakeLine creates a FakeLine that replays frames, one per Release.
// Once frames are exhausted the last one repeats. With no frames the
// line never answers.
func NewFakeLine(frames ...[]Segment) *FakeLine {
	return &FakeLine{frames: frames, level: true}
}

// SetFrames replaces the scripted frames and restarts from the first.
func (f *FakeLine) SetFrames(frames ...[]Segment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = frames
	f.next = 0
}

// Drive records the host driving the line.
func (f *FakeLine) Drive(high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DriveError != nil {
		return f.DriveError
	}
	if !high && (!f.driven || f.level) {
		f.starts++
	}
	f.driven = true
	f.level = high
	return nil
}

// Release hands the line to the scripted sensor.
func (f *FakeLine) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.driven {
		return errors.New("fake line released without being driven")
	}
	f.driven = false
	f.released = f.now
	f.current = nil
	if len(f.frames) > 0 {
		i := f.next
		if i >= len(f.frames) {
			i = len(f.frames) - 1
		}
		f.current = f.frames[i]
		f.next++
	}
	return nil
}

// High returns the line level at the current virtual time.
func (f *FakeLine) High() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.driven {
		return f.level
	}
	if f.current == nil {
		return true
	}
	at := f.now - f.released
	for _, s := range f.current {
		if at < s.Duration {
			return s.High
		}
		at -= s.Duration
	}
	return true
}

// Now advances and returns the virtual clock.
func (f *FakeLine) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	step := f.Step
	if step == 0 {
		step = time.Microsecond
	}
	f.now += step
	return f.now
}

// Sleep advances the virtual clock by d without blocking.
func (f *FakeLine) Sleep(d time.Duration) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}

// Starts returns how many start sequences the host has sent.
func (f *FakeLine) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// FakeOutput records the levels driven onto an output line.
type FakeOutput struct {
	mu     sync.Mutex
	levels []bool
	Closed bool
}

// Set records high.
func (o *FakeOutput) Set(high bool) error {
	o.mu.Lock()
	o.levels = append(o.levels, high)
	o.mu.Unlock()
	return nil
}

// Levels returns every level set so far.
func (o *FakeOutput) Levels() []bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]bool(nil), o.levels...)
}

// Close marks the output as closed.
func (o *FakeOutput) Close() error {
	o.mu.Lock()
	o.Closed = true
	o.mu.Unlock()
	return nil
}
