package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Climate       ClimateJSON  `json:"climate"`
	IR            IRJSON       `json:"ir"`
	Display       string       `json:"display_mode"`
	Chirps        uint32       `json:"chirps"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ClimateJSON reports the sensor state. Values are null before the first
// successful read.
type ClimateJSON struct {
	TemperatureF *float64 `json:"temperature_f"`
	Humidity     *float64 `json:"humidity"`
	LastRead     string   `json:"last_read,omitempty"`
	Attempts     uint64   `json:"attempts"`
	Failures     uint64   `json:"failures"`
	History      int      `json:"history_len"`
}

// IRJSON is the JSON representation of decoder counters.
type IRJSON struct {
	Data       uint32 `json:"data"`
	Repeat     uint32 `json:"repeat"`
	Invalid    uint32 `json:"invalid"`
	Dropped    uint32 `json:"dropped"`
	Missed     uint32 `json:"missed_edges"`
	LastButton string `json:"last_button,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PeriodMs      int64  `json:"period_ms"`
	MinIntervalMs int64  `json:"min_interval_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	DHTBackend    string `json:"dht_backend"`
	PinIR         int    `json:"pin_ir"`
	PinDHT        int    `json:"pin_dht"`
	Broker        string `json:"broker"`
	HTTPPort      string `json:"http_port"`
	WSBroker      string `json:"ws_broker,omitempty"`
}

// Number returns v for JSON, or nil if v is NaN.
func Number(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Climate
	climate := ClimateJSON{
		TemperatureF: Number(c.Current.TemperatureF),
		Humidity:     Number(c.Current.Humidity),
		Attempts:     c.Attempts,
		Failures:     c.Failures,
		History:      c.HistoryLen,
	}
	if !c.LastSuccess.IsZero() {
		climate.LastRead = c.LastSuccess.UTC().Format(time.RFC3339)
	}

	return StatusInner{
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Climate:       climate,
		IR: IRJSON{
			Data:       snap.IR.Data,
			Repeat:     snap.IR.Repeat,
			Invalid:    snap.IR.Invalid,
			Dropped:    snap.IR.Dropped,
			Missed:     snap.IR.Missed,
			LastButton: snap.IR.LastButton,
		},
		Display: snap.DisplayMode,
		Chirps:  snap.Chirps,
		MQTT:    MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PeriodMs:      snap.Config.PeriodMs,
			MinIntervalMs: snap.Config.MinIntervalMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			DHTBackend:    snap.Config.DHTBackend,
			PinIR:         snap.Config.PinIR,
			PinDHT:        snap.Config.PinDHT,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
			WSBroker:      snap.Config.WSBroker,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
