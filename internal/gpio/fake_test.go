package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakeLineFollowsSegments(t *testing.T) {
	frame := []Segment{
		{High: false, Duration: 10 * time.Microsecond},
		{High: true, Duration: 5 * time.Microsecond},
	}
	f := NewFakeLine(frame)

	if err := f.Drive(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.High() {
		t.Error("driven low: expected low")
	}
	if err := f.Release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Sample at the start of each span and past the end.
	checks := []struct {
		advance time.Duration
		want    bool
	}{
		{0, false},
		{9 * time.Microsecond, false},
		{time.Microsecond, true},
		{4 * time.Microsecond, true},
		{time.Microsecond, true}, // idle
	}
	for i, c := range checks {
		f.Sleep(c.advance)
		if got := f.High(); got != c.want {
			t.Errorf("check %d: got %v, want %v", i, got, c.want)
		}
	}
}

func TestFakeLineNowAdvances(t *testing.T) {
	f := NewFakeLine()
	a := f.Now()
	b := f.Now()
	if b-a != time.Microsecond {
		t.Errorf("default step: got %v, want 1µs", b-a)
	}

	f.Step = 3 * time.Microsecond
	c := f.Now()
	if c-b != 3*time.Microsecond {
		t.Errorf("custom step: got %v, want 3µs", c-b)
	}
}

func TestFakeLineRepeatsLastFrame(t *testing.T) {
	low := []Segment{{High: false, Duration: time.Millisecond}}
	f := NewFakeLine(low)

	for i := 0; i < 3; i++ {
		f.Drive(false)
		f.Drive(true)
		f.Release()
		if f.High() {
			t.Errorf("release %d: expected scripted low", i)
		}
		f.Sleep(2 * time.Millisecond)
	}
	if f.Starts() != 3 {
		t.Errorf("starts: got %d, want 3", f.Starts())
	}
}

func TestFakeLineNoFramesIdlesHigh(t *testing.T) {
	f := NewFakeLine()
	f.Drive(false)
	f.Release()
	if !f.High() {
		t.Error("expected idle high")
	}
}

func TestFakeLineReleaseWithoutDrive(t *testing.T) {
	f := NewFakeLine()
	if err := f.Release(); err == nil {
		t.Error("expected error")
	}
}

func TestFakeLineDriveError(t *testing.T) {
	f := NewFakeLine()
	f.DriveError = errors.New("simulated error")

	if err := f.Drive(false); err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
	if f.Starts() != 0 {
		t.Errorf("starts: got %d, want 0", f.Starts())
	}
}

func TestFakeOutput(t *testing.T) {
	o := &FakeOutput{}
	o.Set(true)
	o.Set(false)

	got := o.Levels()
	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("levels: got %v", got)
	}
	if err := o.Close(); err != nil || !o.Closed {
		t.Errorf("close: err=%v closed=%v", err, o.Closed)
	}
}
