package gpio

import (
	"context"
	"fmt"
	"log"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Debounce is how long a button level must hold before it counts.
const Debounce = 15 * time.Millisecond

// InitHost loads the periph host drivers. Call once before opening any
// periph pin or bus.
func InitHost() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	return nil
}

// PinByName looks up a periph pin, e.g. "GPIO27".
func PinByName(name string) (pgpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: pin %q not found", name)
	}
	return p, nil
}

// OpenI2C opens an I²C bus by name; "" selects the first one available.
func OpenI2C(name string) (i2c.BusCloser, error) {
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return bus, nil
}

// PinLine adapts a periph pin to a single-wire data line.
type PinLine struct {
	pin pgpio.PinIO
}

// NewPinLine wraps pin.
func NewPinLine(pin pgpio.PinIO) *PinLine {
	return &PinLine{pin: pin}
}

// Drive switches the pin to output at the given level.
func (l *PinLine) Drive(high bool) error {
	return l.pin.Out(pgpio.Level(high))
}

// Release switches the pin to a pulled-up input.
func (l *PinLine) Release() error {
	return l.pin.In(pgpio.PullUp, pgpio.NoEdge)
}

// High samples the pin.
func (l *PinLine) High() bool {
	return l.pin.Read() == pgpio.High
}

// Button is an active-low push button with a pull-up.
type Button struct {
	pin     pgpio.PinIO
	pressed func()
}

// NewButton calls pressed on each debounced press of pin.
func NewButton(pin pgpio.PinIO, pressed func()) *Button {
	return &Button{pin: pin, pressed: pressed}
}

// Run watches the button until ctx is cancelled.
func (b *Button) Run(ctx context.Context) error {
	if err := b.pin.In(pgpio.PullUp, pgpio.BothEdges); err != nil {
		return fmt.Errorf("configure button %s: %w", b.pin, err)
	}
	log.Printf("gpio: watching button on %s", b.pin)

	last := b.pin.Read()
	for ctx.Err() == nil {
		if !b.pin.WaitForEdge(100 * time.Millisecond) {
			continue
		}

		l := b.pin.Read()
		if l == last {
			continue
		}

		time.Sleep(Debounce)
		if l != b.pin.Read() {
			continue
		}
		last = l
		if l == pgpio.Low {
			b.pressed()
		}
	}
	return nil
}
