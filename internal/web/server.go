// Package web provides an HTTP status server for the climate-node daemon.
package web

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/climate-node/internal/sensor"
	"github.com/sweeney/climate-node/internal/status"
)

// ReadWait is how long /dht_data waits after requesting a fresh read.
const ReadWait = 500 * time.Millisecond

// Climate is the slice of the sensor coordinator the HTTP handlers use.
type Climate interface {
	RequestRead()
	Current() sensor.Reading
	History() []sensor.Reading
}

// Server serves the status page and the sensor endpoints over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	climate    Climate
	readWait   time.Duration
}

// New creates a Server that reads node state from the tracker and sensor
// values from climate.
func New(addr string, tracker *status.Tracker, climate Climate) *Server {
	s := &Server{tracker: tracker, climate: climate, readWait: ReadWait}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/dht_data", s.handleData)
	mux.HandleFunc("/dht_history", s.handleHistory)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the request router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// DataJSON is the /dht_data response. Fields are null before the first
// successful read.
type DataJSON struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// HistoryJSON is the /dht_history response, oldest reading first.
type HistoryJSON struct {
	History []HistoryEntry `json:"history"`
}

// HistoryEntry is one stored reading. Timestamp is in Unix seconds.
type HistoryEntry struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   int64   `json:"timestamp"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	s.climate.RequestRead()

	t := time.NewTimer(s.readWait)
	select {
	case <-r.Context().Done():
		t.Stop()
		return
	case <-t.C:
	}

	cur := s.climate.Current()
	resp := DataJSON{
		Temperature: status.Number(round(cur.TemperatureF, 2)),
		Humidity:    status.Number(round(cur.Humidity, 1)),
	}
	writeJSON(w, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	readings := s.climate.History()
	resp := HistoryJSON{History: make([]HistoryEntry, 0, len(readings))}
	for _, rd := range readings {
		resp.History = append(resp.History, HistoryEntry{
			Temperature: round(rd.TemperatureF, 2),
			Humidity:    round(rd.Humidity, 1),
			Timestamp:   rd.Timestamp.Unix(),
		})
	}
	log.Printf("http: serving %d history readings", len(readings))
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// round keeps NaN as NaN.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
