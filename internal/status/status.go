// Package status provides a thread-safe status tracker for the climate-node daemon.
// It is read by the HTTP handlers and by MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/climate-node/internal/ir"
	"github.com/sweeney/climate-node/internal/sensor"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PeriodMs      int64
	MinIntervalMs int64
	HeartbeatMs   int64
	DHTBackend    string
	PinIR         int
	PinDHT        int
	Broker        string
	HTTPPort      string
	WSBroker      string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Climate       sensor.Snapshot
	IR            ir.Counts
	DisplayMode   string
	Chirps        uint32
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether a reading has been published.
func (s Snapshot) Ready() bool {
	return s.Climate.Current.Valid()
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the sensor, IR and display state.
// Called from runLoop on every tick.
func (t *Tracker) Update(climate sensor.Snapshot, counts ir.Counts, displayMode string, chirps uint32) {
	t.mu.Lock()
	t.snap.Climate = climate
	t.snap.IR = counts
	t.snap.DisplayMode = displayMode
	t.snap.Chirps = chirps
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
