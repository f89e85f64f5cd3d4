// Package ir captures and decodes NEC infrared remote frames.
//
// Edges from the receiver pin are framed into bursts by Capture, which owns
// a pair of fixed pulse buffers. At a burst boundary the filled buffer is
// handed to the Decoder by flipping an atomic index and raising a Signal;
// the Decoder hands it back with Release. Nothing on the edge path blocks
// or allocates.
package ir

import (
	"sync/atomic"
	"time"

	"github.com/sweeney/climate-node/internal/notify"
)

const (
	// BufferSize is the capacity of each pulse buffer, in samples.
	BufferSize = 128

	// LongGap is the idle interval, in microseconds, that ends a burst.
	LongGap = 15000

	// FrameTimeout closes a burst whose trailing gap never produced an edge.
	FrameTimeout = 100 * time.Millisecond
)

// Capture frames receiver edges into bursts.
//
// The fields under "edge state" are touched by HandleEdge and Expire only,
// and only by whichever of them holds busy. busy is a try-lock: neither
// caller ever waits for it.
type Capture struct {
	bufs       [2][BufferSize]uint32
	active     atomic.Uint32 // buffer the edge path writes
	decodeLen  atomic.Uint32
	decodeFree atomic.Bool // decoder has released the other buffer

	busy atomic.Bool

	// edge state
	idx      int
	lastEdge time.Duration
	armed    bool

	timeout time.Duration
	timer   *time.Timer
	ready   *notify.Signal

	dropped atomic.Uint32 // bursts discarded before reaching the decoder
	missed  atomic.Uint32 // edges that arrived while the guard was flushing
}

// NewCapture creates a Capture whose timeout guard fires after timeout
// without an edge.
func NewCapture(timeout time.Duration) *Capture {
	c := &Capture{
		timeout: timeout,
		ready:   notify.NewSignal(),
	}
	c.decodeFree.Store(true)
	c.timer = time.AfterFunc(timeout, c.Expire)
	c.timer.Stop()
	return c
}

// HandleEdge records a level change on the receiver pin. ts is a monotonic
// timestamp of the edge; only differences between timestamps are used.
func (c *Capture) HandleEdge(ts time.Duration) {
	c.timer.Reset(c.timeout)

	if !c.busy.CompareAndSwap(false, true) {
		// The guard is flushing the previous burst, so this edge can only be
		// the leading edge of a new one.
		c.missed.Add(1)
		return
	}
	defer c.busy.Store(false)

	if !c.armed {
		c.lastEdge = ts
		c.armed = true
		return
	}

	pulse := (ts - c.lastEdge).Microseconds()
	c.lastEdge = ts

	if pulse > LongGap {
		if c.idx > 0 {
			c.publish()
		}
		c.idx = 0
		return
	}

	if c.idx < BufferSize {
		c.bufs[c.active.Load()][c.idx] = uint32(pulse)
		c.idx++
		return
	}

	// Overflow: drop the burst and wait for a fresh baseline.
	c.dropped.Add(1)
	c.idx = 0
	c.armed = false
}

// Expire is the timeout guard. It delivers whatever the open burst holds and
// resets the edge state. A burst already delivered at its long gap leaves
// nothing behind, so the guard never swaps an empty buffer.
func (c *Capture) Expire() {
	if !c.busy.CompareAndSwap(false, true) {
		// An edge is in flight and has re-armed the timer.
		return
	}
	defer c.busy.Store(false)

	if c.idx > 0 {
		c.publish()
	}
	c.idx = 0
	c.armed = false
}

// publish hands the active buffer to the decoder. Caller holds busy.
func (c *Capture) publish() {
	if !c.decodeFree.CompareAndSwap(true, false) {
		// The decoder still holds the other buffer.
		c.dropped.Add(1)
		return
	}
	c.decodeLen.Store(uint32(c.idx))
	c.active.Store(1 - c.active.Load())
	c.ready.Notify()
}

// Ready is signalled each time a burst is handed to the decoder.
func (c *Capture) Ready() <-chan struct{} {
	return c.ready.C()
}

// Burst returns the burst most recently handed over. The slice aliases the
// decode buffer and is valid until Release.
func (c *Capture) Burst() []uint32 {
	n := c.decodeLen.Load()
	return c.bufs[1-c.active.Load()][:n]
}

// Release returns the decode buffer so the next burst can be handed over.
func (c *Capture) Release() {
	c.decodeFree.Store(true)
}

// Dropped returns the number of bursts discarded on overflow or because the
// decoder had not released its buffer.
func (c *Capture) Dropped() uint32 {
	return c.dropped.Load()
}

// Missed returns the number of edges lost to a concurrent guard flush.
func (c *Capture) Missed() uint32 {
	return c.missed.Load()
}

// Stop disarms the timeout guard.
func (c *Capture) Stop() {
	c.timer.Stop()
}
