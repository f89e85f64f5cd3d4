//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, errUnsupported
}

func (c *Chip) Close() error { return nil }

// EdgeLine is not available on non-Linux platforms.
type EdgeLine struct{}

func (c *Chip) WatchEdges(offset int, handle EdgeHandler) (*EdgeLine, error) {
	return nil, errUnsupported
}

func (l *EdgeLine) Close() error { return nil }

// DataLine is not available on non-Linux platforms.
type DataLine struct{}

func (c *Chip) DataLine(offset int) (*DataLine, error) {
	return nil, errUnsupported
}

func (l *DataLine) Drive(high bool) error { return errUnsupported }
func (l *DataLine) Release() error        { return errUnsupported }
func (l *DataLine) High() bool            { return false }
func (l *DataLine) Close() error          { return nil }

// OutputLine is not available on non-Linux platforms.
type OutputLine struct{}

func (c *Chip) OutputLine(offset int) (*OutputLine, error) {
	return nil, errUnsupported
}

func (l *OutputLine) Set(high bool) error { return errUnsupported }
func (l *OutputLine) Close() error        { return nil }
