// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdbackpack controls HD44780 compatible character LCD displays
// connected through a PCF8574 style I²C backpack.
//
// These backpacks wire the expander's port to the LCD like so: the upper
// four port bits drive the display's D4-D7 data lines, and the lower four
// drive the control lines. The display therefore runs in 4-bit mode and
// every instruction or character is clocked in as two nibbles, each one
// framed by a pulse on the enable line. The expander gives no access to
// dedicated strobe timing, so each nibble costs two one-byte I²C writes:
// one with enable high and one with enable low. The controller latches the
// data lines on the falling edge.
//
// The R/W line is never asserted; by default the driver is write-only and
// uses fixed delays in place of busy-flag polling, which keeps it working
// on backpacks that don't connect R/W at all. Busy-flag polling can be
// enabled through Opts.PollBusy for backpacks that support read-back.
//
// The backlight control bit rides along with every byte written to the
// expander. Its state is chosen at construction time and held for the
// lifetime of the device.
//
// For development without hardware, the lcdsim subpackage provides an
// i2c.Bus that models the expander and the controller and renders the
// character matrix to a terminal.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
//
// A good description of the I2C LCD backpack usage can be found here:
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
package lcdbackpack
