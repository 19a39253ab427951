// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdbackpack

import (
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

const packageName = "lcdbackpack"

// HD44780 instruction set.
const (
	cmdClearDisplay   byte = 0x01
	cmdReturnHome     byte = 0x02
	cmdEntryMode      byte = 0x04
	cmdDisplayControl byte = 0x08
	cmdCursorShift    byte = 0x10
	cmdFunctionSet    byte = 0x20
	cmdCGRAMSet       byte = 0x40
	cmdDDRAMSet       byte = 0x80

	optIncrement  byte = 0x02 // cmdEntryMode
	optDisplayOn  byte = 0x04 // cmdDisplayControl
	optCursorOn   byte = 0x02 // cmdDisplayControl
	optBlinkOn    byte = 0x01 // cmdDisplayControl
	optShiftRight byte = 0x04 // cmdCursorShift
	optTwoLines   byte = 0x08 // cmdFunctionSet
	opt5x10Font   byte = 0x04 // cmdFunctionSet
)

// devState tracks the bring-up of the controller's interface. Transitions
// only go forward; a device that fails mid-initialization must be discarded
// and recreated, since the controller is back in an unknown state.
type devState int

const (
	stateUninitialized devState = iota
	stateEightBit               // converged to 8-bit mode by the wake-up nibbles
	stateFourBit                // switched to 4-bit mode, not yet configured
	stateReady
)

var (
	ErrNotImplemented = fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)

	errNotReady = errors.New("display not initialized")
)

// Return the DDRAM offset of a row, 1 based. Rows 3 and 4 continue rows 1
// and 2 in memory, so their offsets depend on the column count.
func rowOffset(row, cols int) byte {
	offsets := [4]byte{0, 0x40, byte(cols), 0x40 + byte(cols)}
	return offsets[row-1]
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// Dev is an HD44780 compatible character LCD behind a PCF8574 style I²C
// backpack.
//
// Implements conn.Resource, display.TextDisplay and display.DisplayBacklight.
type Dev struct {
	d    *i2c.Dev
	t    transport
	rows int
	cols int

	// The backlight line state, fixed for the lifetime of the device.
	backlight bool

	state  devState
	on     bool
	cursor bool
	blink  bool
}

// New creates a display driver on the given bus and runs the controller
// bring-up sequence. On return the display is cleared, configured, and
// ready for writes.
//
// Use default options if nil is used. The device claims exclusive ownership
// of the expander address until Halt is called; a second New on the same
// bus and address fails.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	addr, err := opts.i2cAddr()
	if err != nil {
		return nil, wrap(err)
	}
	rows := opts.Rows
	if rows == 0 {
		rows = DefaultOpts.Rows
	}
	cols := opts.Cols
	if cols == 0 {
		cols = DefaultOpts.Cols
	}
	// A single controller addresses at most 4 rows and 80 characters of
	// DDRAM; larger glass uses two controllers and is not supported.
	if rows < 1 || rows > 4 || cols < 1 || cols > 40 || rows*cols > 80 {
		return nil, wrap(fmt.Errorf("display geometry %dx%d not supported", rows, cols))
	}
	if err = claim(bus, addr); err != nil {
		return nil, wrap(err)
	}
	delay := opts.Delay
	if delay == nil {
		delay = time.Sleep
	}
	strobe := opts.StrobeDelay
	if strobe == 0 {
		strobe = DefaultOpts.StrobeDelay
	}
	settle := opts.SettleDelay
	if settle == 0 {
		settle = DefaultOpts.SettleDelay
	}

	dev := &Dev{
		d:         &i2c.Dev{Bus: bus, Addr: addr},
		rows:      rows,
		cols:      cols,
		backlight: opts.Backlight,
		cursor:    opts.Cursor,
		blink:     opts.Blink,
	}
	dev.t = transport{
		c:        dev.d,
		strobe:   strobe,
		settle:   settle,
		pollBusy: opts.PollBusy,
		delay:    delay,
	}
	if err = dev.init(opts); err != nil {
		release(bus, addr)
		return nil, wrap(err)
	}
	return dev, nil
}

// Perform the controller bring-up. The power-on interface state is unknown:
// the controller may be in 8-bit mode, in 4-bit mode waiting for a fresh
// instruction, or in 4-bit mode still holding half of a previous one.
// Sending the "function set 8-bit" high nibble three times collapses all
// three cases into 8-bit mode, after which a single 0x2 nibble switches to
// 4-bit operation. Only then can full bytes be clocked in as nibble pairs.
func (dev *Dev) init(opts *Opts) error {
	log.Debugf("%s: waking controller at %#x", packageName, dev.d.Addr)
	f := newFlags(false, dev.backlight)
	if err := dev.t.sendNibble(0x30, f); err != nil {
		return err
	}
	// The datasheet wants at least 4.1ms after the first wake-up call.
	dev.t.delay(4100 * time.Microsecond)
	if err := dev.t.sendNibble(0x30, f); err != nil {
		return err
	}
	if err := dev.t.sendNibble(0x30, f); err != nil {
		return err
	}
	dev.state = stateEightBit
	if err := dev.t.sendNibble(0x20, f); err != nil {
		return err
	}
	dev.state = stateFourBit

	function := cmdFunctionSet
	if dev.rows > 1 {
		function |= optTwoLines
	}
	if opts.Font5x10 {
		function |= opt5x10Font
	}
	if err := dev.sendByte(function, false); err != nil {
		return err
	}
	dev.on = true
	if err := dev.sendByte(dev.displayControl(), false); err != nil {
		return err
	}
	if err := dev.sendByte(cmdClearDisplay, false); err != nil {
		return err
	}
	if err := dev.sendByte(cmdEntryMode|optIncrement, false); err != nil {
		return err
	}
	dev.state = stateReady
	return nil
}

// sendByte clocks one instruction or character byte into the controller as
// two nibble transmissions, high nibble first. The order is mandatory:
// it is what the controller expects for multi-byte instructions in 4-bit
// mode. If the second transmission fails after the first succeeded the
// controller is left holding half a byte and the device must be discarded.
func (dev *Dev) sendByte(b byte, rs bool) error {
	f := newFlags(rs, dev.backlight)
	log.Debugf("%s: write %#02x %s", packageName, b, f)
	if err := dev.t.sendNibble(b&0xf0, f); err != nil {
		return err
	}
	return dev.t.sendNibble((b<<4)&0xf0, f)
}

// WriteCommand sends one instruction byte to the controller, e.g. cursor
// control, display mode, or an address set.
func (dev *Dev) WriteCommand(cmd byte) error {
	if dev.state != stateReady {
		return wrap(errNotReady)
	}
	return wrap(dev.sendByte(cmd, false))
}

// WriteData sends one character byte to the controller. It is displayed at
// the current cursor position.
func (dev *Dev) WriteData(b byte) error {
	if dev.state != stateReady {
		return wrap(errNotReady)
	}
	return wrap(dev.sendByte(b, true))
}

// displayControl composes the display on/off control instruction from the
// current cursor state.
func (dev *Dev) displayControl() byte {
	val := cmdDisplayControl
	if dev.on {
		val |= optDisplayOn
	}
	if dev.cursor {
		val |= optCursorOn
	}
	if dev.blink {
		val |= optBlinkOn
	}
	return val
}

// Not supported by this device. Returns display.ErrNotImplemented
func (dev *Dev) AutoScroll(enabled bool) error {
	return ErrNotImplemented
}

// Clear the display and move the cursor home.
func (dev *Dev) Clear() error {
	// Clear is one of the two slow instructions; the transport's settle
	// time covers its 1.52ms execution.
	return dev.WriteCommand(cmdClearDisplay)
}

// Return the number of columns the display supports
func (dev *Dev) Cols() int {
	return dev.cols
}

// Set the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (dev *Dev) Cursor(modes ...display.CursorMode) error {
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			dev.cursor = false
			dev.blink = false
		case display.CursorUnderline:
			dev.cursor = true
		case display.CursorBlink, display.CursorBlock:
			dev.cursor = true
			dev.blink = true
		default:
			return fmt.Errorf("%s: unexpected cursor: %d", packageName, mode)
		}
	}
	return dev.WriteCommand(dev.displayControl())
}

// Turn the display on / off
func (dev *Dev) Display(on bool) error {
	dev.on = on
	return dev.WriteCommand(dev.displayControl())
}

// Move the cursor home (MinRow(),MinCol())
func (dev *Dev) Home() error {
	return dev.WriteCommand(cmdReturnHome)
}

// Return the min column position.
func (dev *Dev) MinCol() int {
	return 1
}

// Return the min row position.
func (dev *Dev) MinRow() int {
	return 1
}

// Move the cursor forward or backward.
func (dev *Dev) Move(dir display.CursorDirection) error {
	val := cmdCursorShift
	switch dir {
	case display.Backward:
	case display.Forward:
		val |= optShiftRight
	case display.Down, display.Up:
		fallthrough
	default:
		return ErrNotImplemented
	}
	return dev.WriteCommand(val)
}

// Move the cursor to arbitrary position.
func (dev *Dev) MoveTo(row, col int) error {
	if row < dev.MinRow() || row > dev.rows || col < dev.MinCol() || col > dev.cols {
		return fmt.Errorf("%s.MoveTo(%d,%d) value out of range", packageName, row, col)
	}
	cmd := cmdDDRAMSet | (rowOffset(row, dev.cols) + byte(col-1))
	return dev.WriteCommand(cmd)
}

// Return the number of rows the display supports.
func (dev *Dev) Rows() int {
	return dev.rows
}

func (dev *Dev) String() string {
	return fmt.Sprintf("%s{%s} Rows: %d Cols: %d", packageName, dev.d, dev.rows, dev.cols)
}

// Write a set of bytes to the display as characters. On error, the number
// of bytes fully transmitted is returned; the controller may be left
// mid-instruction and the device should be discarded.
func (dev *Dev) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := dev.WriteData(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Write a string output to the display.
func (dev *Dev) WriteString(text string) (int, error) {
	return dev.Write([]byte(text))
}

// Turn the display on or off. The backlight line itself is fixed for the
// lifetime of the device (see Opts.Backlight), so intensity only maps to
// the display on/off instruction.
func (dev *Dev) Backlight(intensity display.Intensity) error {
	return dev.Display(intensity > 0)
}

// Halt clears the display, turns it off, and releases the claim on the
// expander address so a new device can be created on it.
func (dev *Dev) Halt() error {
	_ = dev.Clear()
	_ = dev.Display(false)
	release(dev.d.Bus, dev.d.Addr)
	return nil
}

var _ conn.Resource = &Dev{}
var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
