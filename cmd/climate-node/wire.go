package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"

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

// DHT11 line drivers.
const (
	backendCdev   = "cdev"
	backendPeriph = "periph"
	backendSim    = "sim"
)

// hardware holds the opened devices. In sim mode any of the physical
// devices that fail to open are replaced by in-memory ones.
type hardware struct {
	dht     *dht.Sensor
	capture *ir.Capture
	buzzer  speaker.Output
	screen  display.Screen
	button  pgpio.PinIO // nil when disabled
	closers []io.Closer
}

func openHardware(cfg config) (_ *hardware, err error) {
	hw := &hardware{capture: ir.NewCapture(ir.FrameTimeout)}
	defer func() {
		if err != nil {
			hw.Close()
		}
	}()
	sim := cfg.dhtBackend == backendSim

	periph := needsPeriph(cfg)
	if periph {
		if err := gpio.InitHost(); err != nil {
			if !sim {
				return nil, fmt.Errorf("init gpio: %w", err)
			}
			log.Printf("sim: %v, continuing without LCD or button", err)
			periph = false
		}
	}

	var chip *gpio.Chip
	if c, err := gpio.OpenChip(cfg.chip); err != nil {
		if !sim {
			return nil, fmt.Errorf("init gpio: %w", err)
		}
		log.Printf("sim: %v, continuing without IR receiver or buzzer", err)
	} else {
		chip = c
		hw.closers = append(hw.closers, c)
	}

	switch cfg.dhtBackend {
	case backendCdev:
		line, err := chip.DataLine(cfg.pinDHT)
		if err != nil {
			return nil, err
		}
		hw.closers = append(hw.closers, line)
		hw.dht = dht.NewSensor(line, dht.NewSystemClock())
	case backendPeriph:
		pin, err := gpio.PinByName(fmt.Sprintf("GPIO%d", cfg.pinDHT))
		if err != nil {
			return nil, err
		}
		hw.dht = dht.NewSensor(gpio.NewPinLine(pin), dht.NewSystemClock())
	case backendSim:
		hw.dht = simSensor(60, 25)
	default:
		return nil, fmt.Errorf("unknown dht backend %q", cfg.dhtBackend)
	}
	if cfg.printOnly {
		return hw, nil
	}

	if chip != nil {
		edges, err := chip.WatchEdges(cfg.pinIR, hw.capture.HandleEdge)
		if err != nil {
			return nil, err
		}
		hw.closers = append(hw.closers, edges)

		buzzer, err := chip.OutputLine(cfg.pinBuzzer)
		if err != nil {
			return nil, err
		}
		hw.closers = append(hw.closers, buzzer)
		hw.buzzer = buzzer
	} else {
		hw.buzzer = &gpio.FakeOutput{}
	}

	hw.screen = &display.FakeScreen{}
	if periph && cfg.lcdBus != "off" {
		bus, err := gpio.OpenI2C(cfg.lcdBus)
		if err != nil {
			return nil, err
		}
		hw.closers = append(hw.closers, bus)
		lcd, err := display.NewLCD(bus, uint8(cfg.lcdAddr))
		if err != nil {
			return nil, err
		}
		hw.screen = lcd
	}

	if periph && cfg.button != "off" {
		if hw.button, err = gpio.PinByName(cfg.button); err != nil {
			return nil, err
		}
	}
	return hw, nil
}

// needsPeriph reports whether cfg uses any periph device: the periph DHT
// line, the LCD or the display button.
func needsPeriph(cfg config) bool {
	if cfg.dhtBackend == backendPeriph {
		return true
	}
	if cfg.printOnly {
		return false
	}
	return cfg.lcdBus != "off" || cfg.button != "off"
}

// simSensor drives the real DHT11 decoder with a synthesized frame.
func simSensor(humidity, celsius byte) *dht.Sensor {
	line := gpio.NewFakeLine(dht.Waveform(dht.Frame(humidity, celsius)))
	return dht.NewSensor(line, line)
}

// Close releases devices in reverse order of opening.
func (hw *hardware) Close() error {
	hw.capture.Stop()
	var errs []error
	for i := len(hw.closers) - 1; i >= 0; i-- {
		if err := hw.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	hw.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// node is the set of running tasks.
type node struct {
	capture *ir.Capture
	decoder *ir.Decoder
	climate *sensor.Coordinator
	display *display.Display
	speaker *speaker.Speaker
	button  pgpio.PinIO

	publisher mqtt.Publisher
	readings  *notify.Signal
}

func newNode(hw *hardware, cfg sensor.Config, pub mqtt.Publisher) *node {
	updates := notify.NewHub()
	n := &node{
		capture:   hw.capture,
		button:    hw.button,
		publisher: pub,
		climate:   sensor.NewCoordinator(hw.dht, cfg, updates),
		speaker:   speaker.New(hw.buzzer),
		readings:  updates.Subscribe(),
	}
	n.display = display.New(hw.screen, n.climate, updates.Subscribe())
	n.decoder = ir.NewDecoder(hw.capture, publishButtons(pub, ir.Actions{
		ReadNow:      n.climate.RequestRead,
		CycleDisplay: n.display.CycleMode,
		PlaySound:    n.speaker.Play,
	}, time.Now))
	return n
}

// start launches every task. They stop when ctx is cancelled; wg tracks them.
func (n *node) start(ctx context.Context, wg *sync.WaitGroup) {
	tasks := []func(context.Context){
		n.decoder.Run,
		n.climate.Run,
		n.display.Run,
		n.speaker.Run,
		func(ctx context.Context) {
			relayReadings(ctx, n.readings, n.climate, n.publisher, n.speaker.Play)
		},
	}
	if n.button != nil {
		b := gpio.NewButton(n.button, n.display.CycleMode)
		tasks = append(tasks, func(ctx context.Context) {
			if err := b.Run(ctx); err != nil {
				log.Printf("gpio: button: %v", err)
			}
		})
	}

	for _, task := range tasks {
		wg.Add(1)
		go func(task func(context.Context)) {
			defer wg.Done()
			task(ctx)
		}(task)
	}
}

// report copies the task state into the status tracker.
func (n *node) report(tr *status.Tracker) {
	tr.Update(n.climate.Snapshot(), n.decoder.Counts(), n.display.Mode().String(), n.speaker.Played())
}

// publishButtons forwards each key to next, then publishes it.
func publishButtons(pub mqtt.Publisher, next ir.Handler, now func() time.Time) ir.Handler {
	return ir.HandlerFunc(func(b ir.Button) {
		next.OnButtonPressed(b)
		if err := pub.PublishButton(mqtt.ButtonEvent{Timestamp: now(), Button: b}); err != nil {
			log.Printf("mqtt: publish button %s: %v", b, err)
		}
	})
}

// relayReadings publishes the current reading each time updates fires and
// chirps once it is out.
func relayReadings(ctx context.Context, updates *notify.Signal, climate interface{ Current() sensor.Reading }, pub mqtt.Publisher, chirp func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates.C():
			r := climate.Current()
			if err := pub.PublishReading(r); err != nil {
				log.Printf("mqtt: publish reading: %v", err)
			}
			if chirp != nil {
				chirp()
			}
		}
	}
}
