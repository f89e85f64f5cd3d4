package dht

import (
	"time"

	"github.com/sweeney/climate-node/internal/gpio"
)

// Sensor-side pulse widths of a well-formed exchange.
const (
	responseLow  = 80 * time.Microsecond
	responseHigh = 80 * time.Microsecond
	bitLow       = 50 * time.Microsecond
	zeroHigh     = 26 * time.Microsecond
	oneHigh      = 70 * time.Microsecond
	// pullUpDelay is how long the line floats high before the sensor answers.
	pullUpDelay = 20 * time.Microsecond
)

// Waveform returns the line levels a DHT11 produces after the host releases
// the line, for the given raw frame. raw[4] is sent as-is, so a bad checksum
// can be simulated.
func Waveform(raw [5]byte) []gpio.Segment {
	segs := make([]gpio.Segment, 0, 3+2*40+1)
	segs = append(segs,
		gpio.Segment{High: true, Duration: pullUpDelay},
		gpio.Segment{High: false, Duration: responseLow},
		gpio.Segment{High: true, Duration: responseHigh},
	)
	for _, b := range raw {
		for bit := 7; bit >= 0; bit-- {
			high := zeroHigh
			if b&(1<<bit) != 0 {
				high = oneHigh
			}
			segs = append(segs,
				gpio.Segment{High: false, Duration: bitLow},
				gpio.Segment{High: true, Duration: high},
			)
		}
	}
	// End-of-frame low, then the pull-up takes over.
	return append(segs, gpio.Segment{High: false, Duration: bitLow})
}

// Frame builds a raw frame with a valid checksum from integral readings.
func Frame(humidity, celsius byte) [5]byte {
	return [5]byte{humidity, 0, celsius, 0, humidity + celsius}
}
