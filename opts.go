// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdbackpack

import (
	"fmt"
	"time"
)

// Opts holds the configuration for the display.
type Opts struct {
	// Addr is the I²C slave address of the expander. PCF8574 backpacks
	// answer on 0x20-0x27, PCF8574A on 0x38-0x3f. Zero selects the common
	// default of 0x27.
	Addr uint16
	// Rows and Cols describe the LCD glass, e.g. 2x16 or 4x20.
	Rows int
	Cols int
	// Backlight sets the state of the backlight line for the lifetime of
	// the device. The control bit rides along with every byte written to
	// the expander; it is not toggled afterwards.
	Backlight bool
	// Font5x10 selects the 5x10 dot font on displays that have it. Most
	// glass is 5x8.
	Font5x10 bool
	// Cursor and Blink set the initial cursor appearance. Use Dev.Cursor
	// to change it later.
	Cursor bool
	Blink  bool
	// StrobeDelay is how long the enable line is held high for each
	// nibble. SettleDelay is how long to wait after the falling edge for
	// the controller to execute. Over-waiting is harmless; under-waiting
	// corrupts the display.
	StrobeDelay time.Duration
	SettleDelay time.Duration
	// PollBusy reads the controller's busy flag back through the expander
	// instead of sleeping for SettleDelay. Only works on backpacks that
	// connect the R/W line. The fixed-delay path is the default because it
	// works everywhere.
	PollBusy bool
	// Delay blocks the caller for at least the given duration. Nil means
	// time.Sleep.
	Delay func(time.Duration)
}

// DefaultOpts matches the ubiquitous 2x16 backpack module with the
// backlight on. The delays are the generous values the controller is known
// to tolerate from cold; they can be shortened on displays that keep up.
var DefaultOpts = Opts{
	Addr:        0x27,
	Rows:        2,
	Cols:        16,
	Backlight:   true,
	StrobeDelay: 1 * time.Millisecond,
	SettleDelay: 5 * time.Millisecond,
}

func (o *Opts) i2cAddr() (uint16, error) {
	switch {
	case o.Addr == 0:
		return 0x27, nil
	case o.Addr >= 0x20 && o.Addr <= 0x27: // PCF8574
		return o.Addr, nil
	case o.Addr >= 0x38 && o.Addr <= 0x3f: // PCF8574A
		return o.Addr, nil
	default:
		return 0, fmt.Errorf("address %#x not supported by device", o.Addr)
	}
}
