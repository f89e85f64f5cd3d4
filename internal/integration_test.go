package internal

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/climate-node/internal/dht"
	"github.com/sweeney/climate-node/internal/display"
	"github.com/sweeney/climate-node/internal/gpio"
	"github.com/sweeney/climate-node/internal/ir"
	"github.com/sweeney/climate-node/internal/mqtt"
	"github.com/sweeney/climate-node/internal/notify"
	"github.com/sweeney/climate-node/internal/sensor"
	"github.com/sweeney/climate-node/internal/speaker"
	"github.com/sweeney/climate-node/internal/status"
)

// rig is the whole node built on fakes: a scripted DHT11 line, an LCD that
// keeps its text, a buzzer that records levels and an MQTT publisher that
// records messages. Remote keys enter through the capture path as edges.
type rig struct {
	line      *gpio.FakeLine
	screen    *display.FakeScreen
	buzzer    *gpio.FakeOutput
	publisher *mqtt.FakePublisher

	capture *ir.Capture
	decoder *ir.Decoder
	climate *sensor.Coordinator
	display *display.Display
	speaker *speaker.Speaker

	edgeTime time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func newRig(t *testing.T, raw [5]byte) *rig {
	t.Helper()
	r := &rig{
		line:      gpio.NewFakeLine(dht.Waveform(raw)),
		screen:    &display.FakeScreen{},
		buzzer:    &gpio.FakeOutput{},
		publisher: mqtt.NewFakePublisher(),
		capture:   ir.NewCapture(time.Hour),
	}

	updates := notify.NewHub()
	r.climate = sensor.NewCoordinator(dht.NewSensor(r.line, r.line), sensor.Config{
		Period: time.Hour,
		Retry:  dht.RetryPolicy{MaxAttempts: 1},
	}, updates)
	r.display = display.New(r.screen, r.climate, updates.Subscribe())
	r.speaker = speaker.New(r.buzzer)

	actions := ir.Actions{
		ReadNow:      r.climate.RequestRead,
		CycleDisplay: r.display.CycleMode,
		PlaySound:    r.speaker.Play,
	}
	r.decoder = ir.NewDecoder(r.capture, ir.HandlerFunc(func(b ir.Button) {
		actions.OnButtonPressed(b)
		r.publisher.PublishButton(mqtt.ButtonEvent{Timestamp: time.Now(), Button: b})
	}))

	readings := updates.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	tasks := []func(context.Context){
		r.decoder.Run,
		r.climate.Run,
		r.display.Run,
		r.speaker.Run,
		func(ctx context.Context) {
			for {
				select {
				case <-ctx.Done():
					return
				case <-readings.C():
					r.publisher.PublishReading(r.climate.Current())
				}
			}
		},
	}
	for _, task := range tasks {
		r.wg.Add(1)
		go func(task func(context.Context)) {
			defer r.wg.Done()
			task(ctx)
		}(task)
	}
	t.Cleanup(r.stop)
	return r
}

func (r *rig) stop() {
	r.cancel()
	r.wg.Wait()
	r.capture.Stop()
}

// press replays an NEC frame for key as receiver edges.
func (r *rig) press(key ir.Button) {
	r.edgeTime += time.Second
	r.capture.HandleEdge(r.edgeTime)
	for _, us := range ir.Encode(0x00, byte(key)) {
		r.edgeTime += time.Duration(us) * time.Microsecond
		r.capture.HandleEdge(r.edgeTime)
	}
	r.edgeTime += 50 * time.Millisecond
	r.capture.HandleEdge(r.edgeTime)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func topLine(s *display.FakeScreen) string {
	l, _ := s.Text()
	return l
}

// TestIntegrationRemoteDrivesNode exercises the complete flow from IR edges
// through the decoder to the sensor, display, speaker and MQTT.
func TestIntegrationRemoteDrivesNode(t *testing.T) {
	r := newRig(t, dht.Frame(60, 25))

	// Startup read
	waitFor(t, "first reading", func() bool { return len(r.publisher.Readings()) == 1 })
	waitFor(t, "temperature page", func() bool { return topLine(r.screen) == "Temp: 77.00 \xdfF" })

	// FORWARD reads now
	r.line.SetFrames(dht.Waveform(dht.Frame(40, 20)))
	r.press(ir.ButtonForward)
	waitFor(t, "second reading", func() bool { return len(r.publisher.Readings()) == 2 })
	got := r.publisher.Readings()[1]
	if got.TemperatureF != 68 || got.Humidity != 40 {
		t.Errorf("reading after FORWARD: %+v, want 68F 40%%", got)
	}

	// CYCLE moves to the humidity page
	r.press(ir.ButtonCycle)
	waitFor(t, "humidity page", func() bool { return topLine(r.screen) == "Hum: 40.00 %" })
	if r.display.Mode() != display.ModeHumidity {
		t.Errorf("mode: got %s, want HUM", r.display.Mode())
	}

	// EQ chirps
	r.press(ir.ButtonEQ)
	waitFor(t, "chirp", func() bool { return r.speaker.Played() == 1 })
	if levels := r.buzzer.Levels(); len(levels) == 0 || levels[len(levels)-1] {
		t.Error("buzzer left high")
	}

	buttons := r.publisher.Buttons()
	want := []ir.Button{ir.ButtonForward, ir.ButtonCycle, ir.ButtonEQ}
	if len(buttons) != len(want) {
		t.Fatalf("published %d buttons, want %d", len(buttons), len(want))
	}
	for i, b := range want {
		if buttons[i].Button != b {
			t.Errorf("button %d: got %s, want %s", i, buttons[i].Button, b)
		}
	}
	if c := r.decoder.Counts(); c.Data != 3 || c.Invalid != 0 || c.LastButton != "EQ" {
		t.Errorf("decoder counts: %+v", c)
	}
	if n := len(r.climate.History()); n != 2 {
		t.Errorf("history: got %d readings, want 2", n)
	}
}

// TestIntegrationUnboundKeyIsPublishedOnly verifies keys without an action
// still reach MQTT and change nothing else.
func TestIntegrationUnboundKeyIsPublishedOnly(t *testing.T) {
	r := newRig(t, dht.Frame(60, 25))
	waitFor(t, "first reading", func() bool { return len(r.publisher.Readings()) == 1 })

	r.press(ir.Button7)
	waitFor(t, "button", func() bool { return len(r.publisher.Buttons()) == 1 })

	if r.display.Mode() != display.ModeTemp {
		t.Errorf("mode changed to %s", r.display.Mode())
	}
	if r.speaker.Played() != 0 {
		t.Error("unexpected chirp")
	}
	if n := r.climate.Snapshot().Attempts; n != 1 {
		t.Errorf("attempts: got %d, want 1", n)
	}
}

// TestIntegrationFailedReadKeepsLastReading verifies a checksum failure is
// reported in the status payload while the last reading stays published.
func TestIntegrationFailedReadKeepsLastReading(t *testing.T) {
	r := newRig(t, dht.Frame(60, 25))
	waitFor(t, "first reading", func() bool { return len(r.publisher.Readings()) == 1 })

	bad := dht.Frame(41, 21)
	bad[4]++
	r.line.SetFrames(dht.Waveform(bad))
	r.press(ir.ButtonForward)
	waitFor(t, "failed cycle", func() bool { return r.climate.Snapshot().Failures == 1 })

	if cur := r.climate.Current(); cur.TemperatureF != 77 || cur.Humidity != 60 {
		t.Errorf("current after failure: %+v", cur)
	}
	if n := len(r.publisher.Readings()); n != 1 {
		t.Errorf("failed read was published: %d readings", n)
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker := status.NewTracker(start, status.Config{Broker: "tcp://localhost:1883"})
	tracker.Update(r.climate.Snapshot(), r.decoder.Counts(), r.display.Mode().String(), r.speaker.Played())
	snap := tracker.Snapshot()

	if err := r.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}); err != nil {
		t.Fatalf("publish heartbeat: %v", err)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(r.publisher.SystemPayloads()[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	c := parsed.Status.Climate
	if c.Attempts != 2 || c.Failures != 1 {
		t.Errorf("attempts/failures: got %d/%d, want 2/1", c.Attempts, c.Failures)
	}
	if c.TemperatureF == nil || *c.TemperatureF != 77 {
		t.Errorf("temperature_f: got %v, want 77", c.TemperatureF)
	}
	if parsed.Status.IR.LastButton != "FORWARD" {
		t.Errorf("last button: got %q", parsed.Status.IR.LastButton)
	}
}

// TestIntegrationStartupPayloadBeforeFirstReading verifies the STARTUP
// event carries null climate values when no read has completed.
func TestIntegrationStartupPayloadBeforeFirstReading(t *testing.T) {
	publisher := mqtt.NewFakePublisher()
	climate := sensor.NewCoordinator(sensor.NewFakeReader(dht.Frame(60, 25)), sensor.DefaultConfig, nil)

	tracker := status.NewTracker(time.Now(), status.Config{PeriodMs: 60000, Broker: "tcp://192.168.1.200:1883"})
	tracker.Update(climate.Snapshot(), ir.Counts{}, display.ModeTemp.String(), 0)
	snap := tracker.Snapshot()

	publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	})

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(publisher.SystemPayloads()[0], &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	st := raw["status"]
	if st["event"] != "STARTUP" || st["ready"] != false {
		t.Errorf("status: %v", st)
	}
	climateJSON := st["climate"].(map[string]interface{})
	if climateJSON["temperature_f"] != nil || climateJSON["humidity"] != nil {
		t.Errorf("climate before first read: %v", climateJSON)
	}
	if !publisher.SystemEvents()[0].Retained {
		t.Error("STARTUP should be retained")
	}
}

// TestIntegrationReadingPayload verifies the wire format of a reading taken
// through the real protocol decoder.
func TestIntegrationReadingPayload(t *testing.T) {
	r := newRig(t, dht.Frame(55, 30))
	waitFor(t, "first reading", func() bool { return len(r.publisher.Readings()) == 1 })

	reading := r.publisher.Readings()[0]
	reading.Timestamp = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)
	payload, err := mqtt.FormatReadingPayload(reading)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	expected := `{"reading":{"timestamp":"2026-02-02T22:18:12Z","temperature_f":86,"humidity":55}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}
