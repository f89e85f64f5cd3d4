// Package gpio provides the node's pin-level hardware access.
// Linux character-device lines (go-gpiocdev) carry the IR receiver edges,
// the DHT11 data line and the buzzer. periph.io provides the display
// button, an alternative DHT11 line and the I²C bus for the LCD.
// FakeLine allows testing the DHT11 protocol without hardware.
package gpio

import "time"

// Default line offsets on gpiochip0 (BCM numbering).
const (
	PinIR     = 17 // IR receiver output
	PinDHT    = 4  // DHT11 data
	PinBuzzer = 18 // piezo buzzer
)

// Default periph pin names.
const (
	ButtonPin = "GPIO27" // display-cycle push button
	I2CBus    = ""       // first available I²C bus
)

// EdgeHandler receives the kernel timestamp of each edge on a watched line.
// It runs on the edge-event goroutine and must not block.
type EdgeHandler func(ts time.Duration)

// Segment is a span of constant line level.
type Segment struct {
	High     bool
	Duration time.Duration
}
