//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "climate-node"

// Chip is a Linux GPIO character device.
type Chip struct {
	chip *gpiocdev.Chip
}

// OpenChip opens a GPIO chip by name, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Chip{chip: chip}, nil
}

// Close releases the chip. Lines requested from it stay valid until closed.
func (c *Chip) Close() error {
	return c.chip.Close()
}

// EdgeLine is an input line watched for both edges.
type EdgeLine struct {
	line *gpiocdev.Line
}

// WatchEdges requests offset as a pulled-up input and calls handle with the
// kernel timestamp of every rising and falling edge.
func (c *Chip) WatchEdges(offset int, handle EdgeHandler) (*EdgeLine, error) {
	line, err := c.chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			handle(evt.Timestamp)
		}))
	if err != nil {
		return nil, fmt.Errorf("request edge line %d: %w", offset, err)
	}
	return &EdgeLine{line: line}, nil
}

// Close stops edge delivery and releases the line.
func (l *EdgeLine) Close() error {
	return l.line.Close()
}

// DataLine is a bidirectional single-wire line with an external pull-up.
type DataLine struct {
	line   *gpiocdev.Line
	output bool
}

// DataLine requests offset as a pulled-up input.
func (c *Chip) DataLine(offset int) (*DataLine, error) {
	line, err := c.chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("request data line %d: %w", offset, err)
	}
	return &DataLine{line: line}, nil
}

// Drive switches the line to output at the given level.
func (l *DataLine) Drive(high bool) error {
	if l.output {
		return l.line.SetValue(level(high))
	}
	if err := l.line.Reconfigure(gpiocdev.AsOutput(level(high))); err != nil {
		return err
	}
	l.output = true
	return nil
}

// Release switches the line back to a pulled-up input.
func (l *DataLine) Release() error {
	if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		return err
	}
	l.output = false
	return nil
}

// High samples the line. A failed read reads as low.
func (l *DataLine) High() bool {
	v, err := l.line.Value()
	return err == nil && v == 1
}

// Close leaves the line as an input and releases it.
func (l *DataLine) Close() error {
	var errs []error
	if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure data line: %w", err))
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close data line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// OutputLine is a push-pull output, initially low.
type OutputLine struct {
	line *gpiocdev.Line
}

// OutputLine requests offset as an output driven low.
func (c *Chip) OutputLine(offset int) (*OutputLine, error) {
	line, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output line %d: %w", offset, err)
	}
	return &OutputLine{line: line}, nil
}

// Set drives the line.
func (l *OutputLine) Set(high bool) error {
	return l.line.SetValue(level(high))
}

// Close drives the line low and releases it.
func (l *OutputLine) Close() error {
	l.line.SetValue(0)
	return l.line.Close()
}

func level(high bool) int {
	if high {
		return 1
	}
	return 0
}
