package web

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/sweeney/climate-node/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"reading": func(v float64, format string) string {
		if math.IsNaN(v) {
			return "--"
		}
		return fmt.Sprintf(format, v)
	},
	"ago": func(t, now time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return fmt.Sprintf("%d secs ago", int64(now.Sub(t).Seconds()))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Climate Node</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.value { font-weight: bold; }
.stale { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Climate Node{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Climate</h2>
<table>
<tr><th>Temperature</th><td id="temperature" class="{{if .Ready}}value{{else}}stale{{end}}">{{reading .Climate.Current.TemperatureF "%.2f"}} &deg;F</td></tr>
<tr><th>Humidity</th><td id="humidity" class="{{if .Ready}}value{{else}}stale{{end}}">{{reading .Climate.Current.Humidity "%.1f"}} %</td></tr>
<tr><th>Last read</th><td id="last-read">{{ago .Climate.LastSuccess .Now}}</td></tr>
<tr><th>Reads / failures</th><td>{{.Climate.Attempts}} / {{.Climate.Failures}}</td></tr>
<tr><th>History</th><td><a href="/dht_history">{{.Climate.HistoryLen}} readings</a></td></tr>
<tr><th>Display</th><td>{{.DisplayMode}}</td></tr>
</table>

<h2>Remote</h2>
<table>
<tr><th>Last button</th><td id="last-button">{{if .IR.LastButton}}{{.IR.LastButton}}{{else}}none{{end}}</td></tr>
<tr><th>Frames</th><td>{{.IR.Data}}</td></tr>
<tr><th>Repeats</th><td>{{.IR.Repeat}}</td></tr>
<tr><th>Invalid</th><td>{{.IR.Invalid}}</td></tr>
<tr><th>Dropped</th><td>{{.IR.Dropped}}</td></tr>
<tr><th>Missed edges</th><td>{{.IR.Missed}}</td></tr>
<tr><th>Chirps</th><td>{{.Chirps}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sensor</th><td>{{.Config.DHTBackend}} on GPIO{{.Config.PinDHT}}, every {{.Config.PeriodMs}}ms (min {{.Config.MinIntervalMs}}ms)</td></tr>
<tr><th>IR receiver</th><td>GPIO{{.Config.PinIR}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/dht_data">Read now</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var dot = document.getElementById("live-dot");
  var tempEl = document.getElementById("temperature");
  var humEl = document.getElementById("humidity");
  var lastEl = document.getElementById("last-read");
  var buttonEl = document.getElementById("last-button");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(["climate/node/reading", "climate/node/button"]);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.reading) {
        tempEl.textContent = msg.reading.temperature_f.toFixed(2) + " °F";
        humEl.textContent = msg.reading.humidity.toFixed(1) + " %";
        tempEl.className = humEl.className = "value";
        lastEl.textContent = msg.reading.timestamp;
      }
      if (msg.button) {
        buttonEl.textContent = msg.button.name;
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
	}
	indexTmpl.Execute(w, data)
}
