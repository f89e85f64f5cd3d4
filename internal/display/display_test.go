package display

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/climate-node/internal/notify"
	"github.com/sweeney/climate-node/internal/sensor"
)

type fakeSource struct {
	mu      sync.Mutex
	reading sensor.Reading
	last    time.Time
}

func (f *fakeSource) Current() sensor.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reading
}

func (f *fakeSource) LastSuccessfulRead() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeSource) set(tempF, hum float64, at time.Time) {
	f.mu.Lock()
	f.reading = sensor.Reading{TemperatureF: tempF, Humidity: hum, Timestamp: at}
	f.last = at
	f.mu.Unlock()
}

func noReading() *fakeSource {
	return &fakeSource{reading: sensor.Reading{TemperatureF: math.NaN(), Humidity: math.NaN()}}
}

func TestModeCycle(t *testing.T) {
	m := ModeTemp
	want := []Mode{ModeHumidity, ModeLastRead, ModeTemp, ModeHumidity}
	for i, w := range want {
		m = m.Next()
		if m != w {
			t.Errorf("step %d: got %s, want %s", i, m, w)
		}
	}
}

func TestLines(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{}
	src.set(77, 60, now.Add(-12*time.Second))

	d := New(&FakeScreen{}, src, nil)
	d.now = func() time.Time { return now }

	tests := []struct {
		mode  Mode
		line1 string
		line2 string
	}{
		{ModeTemp, "Temp: 77.00 \xdfF", "Next: Hum"},
		{ModeHumidity, "Hum: 60.00 %", "Next: Last Read"},
		{ModeLastRead, "LR: 12 secs ago", "Next: Temp"},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			d.mode.Store(int32(tt.mode))
			l1, l2 := d.Lines()
			if l1 != tt.line1 || l2 != tt.line2 {
				t.Errorf("got %q / %q, want %q / %q", l1, l2, tt.line1, tt.line2)
			}
		})
	}
}

func TestLinesBeforeFirstReading(t *testing.T) {
	d := New(&FakeScreen{}, noReading(), nil)

	tests := []struct {
		mode  Mode
		line1 string
	}{
		{ModeTemp, "Temp: -- \xdfF"},
		{ModeHumidity, "Hum: -- %"},
		{ModeLastRead, "LR: never"},
	}
	for _, tt := range tests {
		d.mode.Store(int32(tt.mode))
		if l1, _ := d.Lines(); l1 != tt.line1 {
			t.Errorf("%s: got %q, want %q", tt.mode, l1, tt.line1)
		}
	}
}

func TestDrawClipsToWidth(t *testing.T) {
	src := &fakeSource{}
	src.set(-40.5, 100, time.Now())
	screen := &FakeScreen{}
	d := New(screen, src, nil)
	d.mode.Store(int32(ModeLastRead))
	d.now = func() time.Time { return src.last.Add(123456789 * time.Second) }

	d.draw()
	l1, _ := screen.Text()
	if len(l1) != Columns {
		t.Errorf("line 1: got %q (%d bytes), want %d bytes", l1, len(l1), Columns)
	}
}

func TestRunDrawsAndCycles(t *testing.T) {
	src := &fakeSource{}
	src.set(77, 60, time.Now())
	screen := &FakeScreen{}
	d := New(screen, src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	waitText(t, screen, "Temp: 77.00 \xdfF")

	d.CycleMode()
	waitText(t, screen, "Hum: 60.00 %")
	if d.Mode() != ModeHumidity {
		t.Errorf("mode: got %s, want HUM", d.Mode())
	}

	d.CycleMode()
	waitText(t, screen, "LR: 0 secs ago")
	d.CycleMode()
	waitText(t, screen, "Temp: 77.00 \xdfF")
}

func TestRunRedrawsOnUpdate(t *testing.T) {
	src := noReading()
	screen := &FakeScreen{}
	hub := notify.NewHub()
	d := New(screen, src, hub.Subscribe())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	waitText(t, screen, "Temp: -- \xdfF")

	src.set(68, 40, time.Now())
	hub.Notify()
	waitText(t, screen, "Temp: 68.00 \xdfF")
}

func TestRunRefreshes(t *testing.T) {
	screen := &FakeScreen{}
	d := New(screen, noReading(), nil)
	d.refresh = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for screen.DrawCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("draws: got %d, want at least 3", screen.DrawCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func waitText(t *testing.T, screen *FakeScreen, line1 string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := screen.Text()
		if got == line1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("line 1: got %q, want %q", got, line1)
		}
		time.Sleep(time.Millisecond)
	}
}
