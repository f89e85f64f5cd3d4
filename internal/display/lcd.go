package display

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"
)

// DefaultAddress is the usual PCF8574 backpack address.
const DefaultAddress = 0x27

// NewLCD configures a 16x2 HD44780 behind an I²C backpack.
func NewLCD(bus drivers.I2C, addr uint8) (*hd44780i2c.Device, error) {
	dev := hd44780i2c.New(bus, addr)
	if err := dev.Configure(hd44780i2c.Config{Width: Columns, Height: 2}); err != nil {
		return nil, fmt.Errorf("configure lcd at 0x%02X: %w", addr, err)
	}
	dev.BacklightOn(true)
	return &dev, nil
}
