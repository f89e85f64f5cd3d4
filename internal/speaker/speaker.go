// Package speaker plays a short chirp on a piezo buzzer by toggling a GPIO
// output from a dedicated goroutine.
package speaker

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/climate-node/internal/notify"
)

// Output is a digital output line.
type Output interface {
	Set(high bool) error
}

// Note is a square wave held for a duration.
type Note struct {
	Hz       int
	Duration time.Duration
}

// Chirp is the default two-tone sound.
var Chirp = []Note{
	{Hz: 2000, Duration: 60 * time.Millisecond},
	{Hz: 3000, Duration: 60 * time.Millisecond},
}

// Speaker owns the buzzer output.
type Speaker struct {
	out    Output
	tune   []Note
	play   *notify.Signal
	sleep  func(time.Duration)
	played atomic.Uint32
}

// New creates a Speaker that plays Chirp on out.
func New(out Output) *Speaker {
	return &Speaker{
		out:   out,
		tune:  Chirp,
		play:  notify.NewSignal(),
		sleep: time.Sleep,
	}
}

// Play requests the chirp. It never blocks; requests made while a chirp
// is pending collapse into one.
func (s *Speaker) Play() {
	s.play.Notify()
}

// Played returns how many chirps have completed.
func (s *Speaker) Played() uint32 {
	return s.played.Load()
}

// Run plays requested chirps until ctx is done.
func (s *Speaker) Run(ctx context.Context) {
	log.Printf("speaker: started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.play.C():
			if err := s.playTune(); err != nil {
				log.Printf("speaker: %v", err)
				continue
			}
			s.played.Add(1)
		}
	}
}

func (s *Speaker) playTune() error {
	defer s.out.Set(false)
	for _, n := range s.tune {
		if n.Hz <= 0 {
			s.sleep(n.Duration)
			continue
		}
		half := time.Second / time.Duration(2*n.Hz)
		cycles := int(n.Duration / (2 * half))
		for i := 0; i < cycles; i++ {
			if err := s.out.Set(true); err != nil {
				return fmt.Errorf("play %d Hz: %w", n.Hz, err)
			}
			s.sleep(half)
			if err := s.out.Set(false); err != nil {
				return fmt.Errorf("play %d Hz: %w", n.Hz, err)
			}
			s.sleep(half)
		}
	}
	return nil
}
