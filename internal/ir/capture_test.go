package ir

import (
	"sync"
	"testing"
	"time"
)

// feed replays intervals (µs) as edges starting at start and returns the
// timestamp of the last edge. The first edge only sets the baseline.
func feed(c *Capture, start time.Duration, intervals []uint32) time.Duration {
	ts := start
	c.HandleEdge(ts)
	for _, us := range intervals {
		ts += time.Duration(us) * time.Microsecond
		c.HandleEdge(ts)
	}
	return ts
}

func waitReady(t *testing.T, c *Capture) {
	t.Helper()
	select {
	case <-c.Ready():
	case <-time.After(time.Second):
		t.Fatal("burst not delivered")
	}
}

func assertNotReady(t *testing.T, c *Capture) {
	t.Helper()
	select {
	case <-c.Ready():
		t.Fatal("unexpected burst delivery")
	default:
	}
}

func TestCaptureLongGapDeliversBurst(t *testing.T) {
	c := NewCapture(time.Hour)
	defer c.Stop()

	frame := Encode(0x00, 0x45)
	last := feed(c, time.Second, frame)
	assertNotReady(t, c)

	// Next frame's leading edge arrives after a long gap.
	c.HandleEdge(last + 40*time.Millisecond)
	waitReady(t, c)

	burst := c.Burst()
	if len(burst) != len(frame) {
		t.Fatalf("burst length: got %d, want %d", len(burst), len(frame))
	}
	for i := range frame {
		if burst[i] != frame[i] {
			t.Fatalf("sample %d: got %d, want %d", i, burst[i], frame[i])
		}
	}
	if got := Decode(burst); got.Kind != KindData || got.Command != 0x45 {
		t.Errorf("decode: got %+v", got)
	}
	c.Release()
}

func TestCaptureFirstEdgeIsBaselineOnly(t *testing.T) {
	c := NewCapture(time.Hour)
	defer c.Stop()

	c.HandleEdge(time.Second)
	c.HandleEdge(time.Second + 30*time.Millisecond)

	assertNotReady(t, c)
}

func TestCaptureExpireDeliversOpenBurst(t *testing.T) {
	c := NewCapture(time.Hour)
	defer c.Stop()

	repeat := []uint32{9000, 2250, 560}
	feed(c, time.Second, repeat)
	c.Expire()
	waitReady(t, c)

	if got := Decode(c.Burst()); got.Kind != KindRepeat {
		t.Errorf("got %s, want REPEAT", got.Kind)
	}
	c.Release()
}

func TestCaptureExpireAfterGapDoesNotSwapAgain(t *testing.T) {
	c := NewCapture(time.Hour)
	defer c.Stop()

	frame := Encode(0x01, 0x02)
	last := feed(c, time.Second, frame)
	c.HandleEdge(last + 20*time.Millisecond)
	waitReady(t, c)

	// The guard fires later for the same burst: nothing left to deliver.
	c.Expire()
	assertNotReady(t, c)

	if got := Decode(c.Burst()); got.Kind != KindData || got.Address != 0x01 {
		t.Errorf("decode buffer changed under the decoder: %+v", got)
	}
	if c.Dropped() != 0 {
		t.Errorf("dropped: got %d, want 0", c.Dropped())
	}
	c.Release()
}

func TestCaptureOverflowDiscardsBurst(t *testing.T) {
	c := NewCapture(time.Hour)
	defer c.Stop()

	long := make([]uint32, BufferSize+1)
	for i := range long {
		long[i] = 560
	}
	feed(c, time.Second, long)

	if c.Dropped() != 1 {
		t.Errorf("dropped: got %d, want 1", c.Dropped())
	}
	c.Expire()
	assertNotReady(t, c)
}

func TestCaptureDropsBurstWhileDecoderHoldsBuffer(t *testing.T) {
	c := NewCapture(time.Hour)
	defer c.Stop()

	first := Encode(0x00, 0x10)
	second := Encode(0x00, 0x20)
	third := Encode(0x00, 0x30)

	feed(c, time.Second, first)
	c.Expire()
	waitReady(t, c)

	// Not released yet: the second burst has nowhere to go.
	feed(c, 2*time.Second, second)
	c.Expire()
	assertNotReady(t, c)
	if c.Dropped() != 1 {
		t.Errorf("dropped: got %d, want 1", c.Dropped())
	}
	if got := Decode(c.Burst()); got.Command != 0x10 {
		t.Errorf("held burst overwritten: %+v", got)
	}
	c.Release()

	feed(c, 3*time.Second, third)
	c.Expire()
	waitReady(t, c)
	if got := Decode(c.Burst()); got.Command != 0x30 {
		t.Errorf("third burst: got %+v", got)
	}
	c.Release()
}

func TestCaptureAlternatesBuffers(t *testing.T) {
	c := NewCapture(time.Hour)
	defer c.Stop()

	feed(c, time.Second, Encode(0x00, 0x01))
	c.Expire()
	waitReady(t, c)
	a := &c.Burst()[0]
	c.Release()

	feed(c, 2*time.Second, Encode(0x00, 0x02))
	c.Expire()
	waitReady(t, c)
	b := &c.Burst()[0]
	c.Release()

	if a == b {
		t.Error("consecutive bursts used the same buffer")
	}
}

func TestCaptureTimerFires(t *testing.T) {
	c := NewCapture(20 * time.Millisecond)
	defer c.Stop()

	feed(c, time.Second, Encode(0x00, 0x45))
	waitReady(t, c)

	if got := Decode(c.Burst()); got.Kind != KindData {
		t.Errorf("got %+v", got)
	}
	c.Release()
}

func TestCaptureConcurrentGuard(t *testing.T) {
	c := NewCapture(time.Hour)
	defer c.Stop()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				c.Expire()
			}
		}
	}()

	delivered := 0
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case <-c.Ready():
				delivered++
				Decode(c.Burst())
				c.Release()
			}
		}
	}()

	ts := time.Second
	for i := 0; i < 50; i++ {
		ts = feed(c, ts+time.Second, Encode(0x00, byte(i)))
	}
	close(stop)
	time.Sleep(10 * time.Millisecond)
	close(done)
	wg.Wait()

	if delivered == 0 {
		t.Error("no bursts delivered")
	}
}

func TestCaptureCountsEdgeMissedDuringFlush(t *testing.T) {
	c := NewCapture(time.Hour)
	defer c.Stop()
	d := NewDecoder(c, HandlerFunc(func(Button) {}))

	// Simulate the guard holding the buffers mid-flush.
	c.busy.Store(true)
	c.HandleEdge(time.Second)
	c.busy.Store(false)

	if c.Missed() != 1 {
		t.Errorf("missed: got %d, want 1", c.Missed())
	}
	if c.armed {
		t.Error("missed edge should not become the baseline")
	}
	if got := d.Counts().Missed; got != 1 {
		t.Errorf("counts missed: got %d, want 1", got)
	}
}
