// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/climate-node/internal/ir"
	"github.com/sweeney/climate-node/internal/sensor"
)

// TopicReading is the MQTT topic for sensor readings.
const TopicReading = "climate/node/reading"

// TopicButton is the MQTT topic for remote key presses.
const TopicButton = "climate/node/button"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "climate/node/system"

// ErrNoMeasurement is returned when formatting a reading that holds no
// measurement.
var ErrNoMeasurement = errors.New("mqtt: reading has no measurement")

// Publisher publishes node events to MQTT.
type Publisher interface {
	// PublishReading sends a sensor reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishReading(r sensor.Reading) error

	// PublishButton sends a remote key press to the broker.
	PublishButton(event ButtonEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ButtonEvent is a decoded remote key press.
type ButtonEvent struct {
	Timestamp time.Time
	Button    ir.Button
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ReadingPayload is the MQTT message payload for a sensor reading.
type ReadingPayload struct {
	Reading ReadingInner `json:"reading"`
}

// ReadingInner contains the reading details.
type ReadingInner struct {
	Timestamp    string  `json:"timestamp"`
	TemperatureF float64 `json:"temperature_f"`
	Humidity     float64 `json:"humidity"`
}

// FormatReadingPayload creates the JSON payload for a reading.
func FormatReadingPayload(r sensor.Reading) ([]byte, error) {
	if !r.Valid() {
		return nil, ErrNoMeasurement
	}
	return json.Marshal(ReadingPayload{
		Reading: ReadingInner{
			Timestamp:    r.Timestamp.UTC().Format(time.RFC3339),
			TemperatureF: r.TemperatureF,
			Humidity:     r.Humidity,
		},
	})
}

// ButtonPayload is the MQTT message payload for a key press.
type ButtonPayload struct {
	Button ButtonInner `json:"button"`
}

// ButtonInner contains the key press details.
type ButtonInner struct {
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
	Command   string `json:"command"`
}

// FormatButtonPayload creates the JSON payload for a key press.
func FormatButtonPayload(event ButtonEvent) ([]byte, error) {
	return json.Marshal(ButtonPayload{
		Button: ButtonInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Name:      event.Button.String(),
			Command:   fmt.Sprintf("0x%02X", byte(event.Button)),
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
