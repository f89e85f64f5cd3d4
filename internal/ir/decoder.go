package ir

import (
	"context"
	"log"
	"sync/atomic"
)

// noButton marks that no data frame has been decoded yet.
const noButton = 0x100

// Counts is a snapshot of decoder activity.
type Counts struct {
	Data       uint32
	Repeat     uint32
	Invalid    uint32
	Dropped    uint32
	Missed     uint32 // edges lost to a timeout flush
	LastButton string // empty until the first data frame
}

// Decoder turns bursts handed over by a Capture into key presses.
type Decoder struct {
	capture *Capture
	handler Handler

	data       atomic.Uint32
	repeat     atomic.Uint32
	invalid    atomic.Uint32
	lastButton atomic.Uint32
}

// NewDecoder creates a Decoder that dispatches keys to h.
func NewDecoder(c *Capture, h Handler) *Decoder {
	d := &Decoder{capture: c, handler: h}
	d.lastButton.Store(noButton)
	return d
}

// Run decodes bursts as the capture signals them until ctx is done.
func (d *Decoder) Run(ctx context.Context) {
	log.Printf("ir: decoder started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.capture.Ready():
			d.decodeNext()
		}
	}
}

// decodeNext decodes the burst currently held in the decode buffer, gives
// the buffer back, and dispatches the result. Each burst is decoded once.
func (d *Decoder) decodeNext() Frame {
	f := Decode(d.capture.Burst())
	d.capture.Release()

	switch f.Kind {
	case KindData:
		d.data.Add(1)
		b := ButtonFor(f.Command)
		d.lastButton.Store(uint32(b))
		log.Printf("ir: command received: %s (addr=0x%02X cmd=0x%02X)", b, f.Address, f.Command)
		if d.handler != nil {
			d.handler.OnButtonPressed(b)
		}
	case KindRepeat:
		d.repeat.Add(1)
		log.Printf("ir: repeat code")
	default:
		d.invalid.Add(1)
		log.Printf("ir: invalid frame")
	}
	return f
}

// Counts returns the decoder counters.
func (d *Decoder) Counts() Counts {
	c := Counts{
		Data:    d.data.Load(),
		Repeat:  d.repeat.Load(),
		Invalid: d.invalid.Load(),
		Dropped: d.capture.Dropped(),
		Missed:  d.capture.Missed(),
	}
	if b := d.lastButton.Load(); b != noButton {
		c.LastButton = Button(b).String()
	}
	return c
}
