// Package display drives the 16x2 character LCD. It shows one of three
// pages (temperature, humidity, time since the last reading) and redraws
// on a fixed cadence, on new sensor data, and when the page is cycled.
package display

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/climate-node/internal/notify"
	"github.com/sweeney/climate-node/internal/sensor"
)

// Refresh is the redraw cadence when nothing else wakes the display.
const Refresh = 5 * time.Second

// Columns is the visible width of a line.
const Columns = 16

// degree is the HD44780 ROM code for °.
const degree = "\xdf"

// Mode selects the page shown.
type Mode int32

const (
	ModeTemp Mode = iota
	ModeHumidity
	ModeLastRead
	modeCount
)

func (m Mode) String() string {
	switch m {
	case ModeTemp:
		return "TEMP"
	case ModeHumidity:
		return "HUM"
	case ModeLastRead:
		return "LAST_READ"
	default:
		return "UNKNOWN"
	}
}

// Next returns the mode after m.
func (m Mode) Next() Mode {
	return (m + 1) % modeCount
}

// Screen is a character display. *hd44780i2c.Device implements it.
type Screen interface {
	ClearDisplay()
	SetCursor(col, row uint8)
	Print(data []byte)
}

// Source supplies the values shown.
type Source interface {
	Current() sensor.Reading
	LastSuccessfulRead() time.Time
}

// Display owns the screen. Only Run draws on it.
type Display struct {
	screen  Screen
	source  Source
	updates *notify.Signal
	cycle   *notify.Signal
	mode    atomic.Int32
	now     func() time.Time
	refresh time.Duration
}

// New creates a Display. updates, if non-nil, forces a redraw when
// notified.
func New(screen Screen, source Source, updates *notify.Signal) *Display {
	return &Display{
		screen:  screen,
		source:  source,
		updates: updates,
		cycle:   notify.NewSignal(),
		now:     time.Now,
		refresh: Refresh,
	}
}

// CycleMode advances to the next page on the next wakeup. Requests made
// before the display services them collapse into one.
func (d *Display) CycleMode() {
	d.cycle.Notify()
}

// Mode returns the page currently shown.
func (d *Display) Mode() Mode {
	return Mode(d.mode.Load())
}

// Run redraws the screen until ctx is done.
func (d *Display) Run(ctx context.Context) {
	log.Printf("display: started in %s mode", d.Mode())

	var updates <-chan struct{}
	if d.updates != nil {
		updates = d.updates.C()
	}

	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.cycle.C():
			next := d.Mode().Next()
			d.mode.Store(int32(next))
			log.Printf("display: mode %s", next)
		case <-updates:
		case <-t.C:
		}
		d.draw()

		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		t.Reset(d.refresh)
	}
}

func (d *Display) draw() {
	line1, line2 := d.Lines()
	d.screen.ClearDisplay()
	d.screen.SetCursor(0, 0)
	d.screen.Print(clip(line1))
	d.screen.SetCursor(0, 1)
	d.screen.Print(clip(line2))
}

// Lines renders the current page.
func (d *Display) Lines() (string, string) {
	switch d.Mode() {
	case ModeHumidity:
		r := d.source.Current()
		return "Hum: " + value(r.Humidity, r.Valid()) + " %", "Next: Last Read"
	case ModeLastRead:
		last := d.source.LastSuccessfulRead()
		if last.IsZero() {
			return "LR: never", "Next: Temp"
		}
		secs := int64(d.now().Sub(last) / time.Second)
		return fmt.Sprintf("LR: %d secs ago", secs), "Next: Temp"
	default:
		r := d.source.Current()
		return "Temp: " + value(r.TemperatureF, r.Valid()) + " " + degree + "F", "Next: Hum"
	}
}

func value(v float64, ok bool) string {
	if !ok {
		return "--"
	}
	return fmt.Sprintf("%.2f", v)
}

func clip(s string) []byte {
	if len(s) > Columns {
		s = s[:Columns]
	}
	return []byte(s)
}
