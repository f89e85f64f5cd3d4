// Command climate-node reads a DHT11, shows it on an LCD, takes commands
// from an NEC infrared remote and publishes readings to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/climate-node/internal/dht"
	"github.com/sweeney/climate-node/internal/display"
	"github.com/sweeney/climate-node/internal/gpio"
	"github.com/sweeney/climate-node/internal/mqtt"
	"github.com/sweeney/climate-node/internal/sensor"
	"github.com/sweeney/climate-node/internal/status"
	"github.com/sweeney/climate-node/internal/web"
)

// config holds the parsed command line.
type config struct {
	chip        string
	pinIR       int
	pinDHT      int
	pinBuzzer   int
	button      string
	dhtBackend  string
	lcdBus      string
	lcdAddr     int
	broker      string
	wsBroker    string
	httpAddr    string
	heartbeat   time.Duration
	period      time.Duration
	minInterval time.Duration
	printOnly   bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.chip, "chip", "gpiochip0", "GPIO character device")
	flag.IntVar(&cfg.pinIR, "pin-ir", gpio.PinIR, "line offset of the IR receiver")
	flag.IntVar(&cfg.pinDHT, "pin-dht", gpio.PinDHT, "line offset of the DHT11 data pin")
	flag.IntVar(&cfg.pinBuzzer, "pin-buzzer", gpio.PinBuzzer, "line offset of the piezo buzzer")
	flag.StringVar(&cfg.button, "button", gpio.ButtonPin, `periph pin name of the display button ("off" disables)`)
	flag.StringVar(&cfg.dhtBackend, "dht-backend", backendCdev, "DHT11 line driver: cdev, periph or sim")
	flag.StringVar(&cfg.lcdBus, "lcd-bus", gpio.I2CBus, `I2C bus of the LCD ("" for the first bus, "off" disables)`)
	flag.IntVar(&cfg.lcdAddr, "lcd-addr", display.DefaultAddress, "I2C address of the LCD backpack")
	flag.StringVar(&cfg.broker, "broker", "tcp://192.168.1.200:1883", `MQTT broker address ("off" disables)`)
	flag.StringVar(&cfg.wsBroker, "ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	flag.StringVar(&cfg.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.DurationVar(&cfg.period, "period", sensor.DefaultConfig.Period, "interval between periodic sensor reads")
	flag.DurationVar(&cfg.minInterval, "min-interval", sensor.DefaultConfig.MinInterval, "minimum spacing between sensor reads")
	flag.BoolVar(&cfg.printOnly, "print-reading", false, "Read the sensor once, print the result and exit")

	flag.Parse()

	if cfg.broker == "off" {
		cfg.wsBroker = "off"
	}
	cfg.wsBroker = resolveWSBroker(cfg.wsBroker, cfg.broker)
	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config) error {
	hw, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer hw.Close()

	// Print reading mode
	if cfg.printOnly {
		m, err := hw.dht.ReadRetry(context.Background(), dht.DefaultRetryPolicy)
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		fmt.Printf("Temperature: %.2f F, Humidity: %.1f %%\n", m.Fahrenheit(), m.Humidity)
		return nil
	}

	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.broker != "off" {
		publisher = mqtt.NewRealPublisher(cfg.broker)
	}
	defer publisher.Close()

	sensorCfg := sensor.DefaultConfig
	sensorCfg.Period = cfg.period
	sensorCfg.MinInterval = cfg.minInterval
	n := newNode(hw, sensorCfg, publisher)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PeriodMs:      cfg.period.Milliseconds(),
		MinIntervalMs: cfg.minInterval.Milliseconds(),
		HeartbeatMs:   cfg.heartbeat.Milliseconds(),
		DHTBackend:    cfg.dhtBackend,
		PinIR:         cfg.pinIR,
		PinDHT:        cfg.pinDHT,
		Broker:        cfg.broker,
		HTTPPort:      cfg.httpAddr,
		WSBroker:      cfg.wsBroker,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	n.report(tracker)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	n.start(ctx, &wg)
	defer func() {
		cancel()
		wg.Wait()
	}()

	// Start HTTP status server
	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker, n.climate)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: dht=%s period=%v min-interval=%v broker=%s heartbeat=%v",
		cfg.dhtBackend, cfg.period, cfg.minInterval, cfg.broker, cfg.heartbeat)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(n, publisher, publisher, tracker, cfg.heartbeat, time.Now, ticker.C, sigCh)
}

// runLoop refreshes the status tracker on every tick, publishes heartbeats
// and returns after publishing SHUTDOWN when a signal arrives.
func runLoop(n *node, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastBeat := now()

	refresh := func() {
		n.report(tracker)
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			reason := signalName(s)
			refresh()
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     reason,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			refresh()

			if heartbeat <= 0 || t.Sub(lastBeat) < heartbeat {
				continue
			}
			lastBeat = t

			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := tracker.Snapshot()
			log.Printf("heartbeat: uptime=%v reads=%d failures=%d ir_frames=%d",
				snap.Uptime().Truncate(time.Second), snap.Climate.Attempts, snap.Climate.Failures, snap.IR.Data)

			hbEvent := mqtt.SystemEvent{
				Timestamp:  t,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
