// Package dht reads a DHT11 humidity/temperature sensor over its single-wire
// protocol by bit-banging a GPIO line.
//
// A read is a blocking, busy-waiting exchange of roughly 25 ms. Every phase
// of the handshake has its own timeout and its own error, so callers can tell
// where the link failed.
package dht

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// Errors returned by Read, one per protocol phase.
var (
	ErrResponseLowTimeout  = errors.New("dht11: sensor did not pull the line low")
	ErrResponseHighTimeout = errors.New("dht11: sensor did not release the line")
	ErrDataStartTimeout    = errors.New("dht11: sensor did not start data")
	ErrBitStartTimeout     = errors.New("dht11: bit did not start")
	ErrBitWidthTimeout     = errors.New("dht11: bit did not end")
	ErrChecksum            = errors.New("dht11: checksum mismatch")
)

// Protocol timing.
const (
	StartLow  = 18 * time.Millisecond
	StartHigh = 40 * time.Microsecond

	ResponseTimeout = 100 * time.Microsecond
	BitStartTimeout = 70 * time.Microsecond
	BitWidthTimeout = 120 * time.Microsecond

	// OneThreshold: a high pulse longer than this is a 1 bit.
	OneThreshold = 40 * time.Microsecond
)

// Line is the sensor's data pin.
type Line interface {
	// Drive switches the pin to output at the given level.
	Drive(high bool) error
	// Release switches the pin to input; the pull-up holds it high.
	Release() error
	// High samples the pin.
	High() bool
}

// Clock provides the microsecond timing the protocol needs.
type Clock interface {
	// Now returns a monotonic timestamp.
	Now() time.Duration
	// Sleep waits for d. Short waits must not yield to the scheduler.
	Sleep(d time.Duration)
}

// Measurement is one decoded sensor frame.
type Measurement struct {
	Humidity float64 // %RH
	Celsius  float64
	Raw      [5]byte
}

// Fahrenheit returns the temperature in °F.
func (m Measurement) Fahrenheit() float64 {
	return Fahrenheit(m.Celsius)
}

// Fahrenheit converts °C to °F.
func Fahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// Decode validates the checksum of a raw frame and scales it.
func Decode(raw [5]byte) (Measurement, error) {
	if raw[4] != raw[0]+raw[1]+raw[2]+raw[3] {
		return Measurement{Raw: raw}, fmt.Errorf("%w: got 0x%02X, want 0x%02X",
			ErrChecksum, raw[4], raw[0]+raw[1]+raw[2]+raw[3])
	}
	return Measurement{
		Humidity: float64(raw[0]) + float64(raw[1])/10,
		Celsius:  float64(raw[2]) + float64(raw[3])/10,
		Raw:      raw,
	}, nil
}

// Sensor is a DHT11 on a single GPIO line.
type Sensor struct {
	line  Line
	clock Clock
}

// NewSensor creates a Sensor on line using clock for protocol timing.
func NewSensor(line Line, clock Clock) *Sensor {
	return &Sensor{line: line, clock: clock}
}

// Read performs one exchange with the sensor. quiet suppresses the failure
// log line only; the error is returned either way.
func (s *Sensor) Read(quiet bool) (Measurement, error) {
	m, err := s.read()
	if err != nil && !quiet {
		log.Printf("dht: read failed: %v", err)
	}
	return m, err
}

func (s *Sensor) read() (Measurement, error) {
	if err := s.start(); err != nil {
		return Measurement{}, err
	}

	if _, ok := s.waitWhile(true, ResponseTimeout); !ok {
		return Measurement{}, ErrResponseLowTimeout
	}
	if _, ok := s.waitWhile(false, ResponseTimeout); !ok {
		return Measurement{}, ErrResponseHighTimeout
	}
	if _, ok := s.waitWhile(true, ResponseTimeout); !ok {
		return Measurement{}, ErrDataStartTimeout
	}

	var raw [5]byte
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			if _, ok := s.waitWhile(false, BitStartTimeout); !ok {
				return Measurement{}, fmt.Errorf("%w (byte %d bit %d)", ErrBitStartTimeout, i, bit)
			}
			width, ok := s.waitWhile(true, BitWidthTimeout)
			if !ok {
				return Measurement{}, fmt.Errorf("%w (byte %d bit %d)", ErrBitWidthTimeout, i, bit)
			}
			raw[i] <<= 1
			if width > OneThreshold {
				raw[i] |= 1
			}
		}
	}

	return Decode(raw)
}

// start sends the host start sequence and hands the line to the sensor.
func (s *Sensor) start() error {
	if err := s.line.Drive(false); err != nil {
		return fmt.Errorf("drive line low: %w", err)
	}
	s.clock.Sleep(StartLow)
	if err := s.line.Drive(true); err != nil {
		return fmt.Errorf("drive line high: %w", err)
	}
	s.clock.Sleep(StartHigh)
	if err := s.line.Release(); err != nil {
		return fmt.Errorf("release line: %w", err)
	}
	return nil
}

// waitWhile spins while the line reads level. It returns how long the level
// lasted, or false if it outlasted timeout.
func (s *Sensor) waitWhile(high bool, timeout time.Duration) (time.Duration, bool) {
	start := s.clock.Now()
	for s.line.High() == high {
		if s.clock.Now()-start > timeout {
			return 0, false
		}
	}
	return s.clock.Now() - start, true
}
