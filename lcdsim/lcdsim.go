// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim implements an i2c.Bus that behaves like an HD44780
// character LCD behind a PCF8574 style backpack, and renders the character
// matrix to a terminal using ANSI color codes.
//
// Useful while you are waiting for your LCD module to come by mail, and as
// a reference model of the controller's 4-bit interface: the simulator
// tracks the expander's output latch, detects enable strobes, reassembles
// nibble pairs, and can start from any of the ambiguous interface states a
// real controller can power on in.
package lcdsim

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Port bit assignment of the simulated backpack. Matches the lcdbackpack
// wire format: data on the upper nibble, controls on the lower.
const (
	pinRW        byte = 0x01
	pinRS        byte = 0x02
	pinEnable    byte = 0x04
	pinBacklight byte = 0x08
)

// PowerOnState is the interface state the simulated controller starts in.
// A real controller can be in any of these when the host comes up, which
// is exactly why the wake-up sequence sends the same nibble three times.
type PowerOnState int

const (
	// EightBit is a controller fresh from power-on reset.
	EightBit PowerOnState = iota
	// FourBitIdle is a controller left in 4-bit mode, waiting for the
	// first half of an instruction.
	FourBitIdle
	// FourBitSplit is a controller left in 4-bit mode holding the first
	// half of an instruction, waiting for the trailing nibble.
	FourBitSplit
)

// Opts configures the simulator.
type Opts struct {
	// Addr is the I²C address the simulator answers on. Zero means 0x27.
	Addr uint16
	// Rows and Cols describe the simulated glass. Zero means 2x16. Values
	// are clamped to what a single controller can address: at most 4 rows,
	// 40 columns and 80 characters.
	Rows int
	Cols int
	// State is the controller's interface state at power-on.
	State PowerOnState
	// Pending is the half-received high nibble when State is FourBitSplit.
	Pending byte
	// W receives Render output. Nil means a colorable stdout.
	W io.Writer
	// Palette is the ANSI palette used by Render. Nil means
	// ansi256.Default.
	Palette *ansi256.Palette
}

// Sim is a simulated LCD backpack. It implements i2c.Bus.
type Sim struct {
	addr    uint16
	rows    int
	cols    int
	w       io.Writer
	palette ansi256.Palette

	mu         sync.Mutex
	port       byte // expander output latch
	fourBit    bool
	hasPending bool
	pending    byte
	ac         byte // address counter
	inCGRAM    bool
	increment  bool
	displayOn  bool
	cursorOn   bool
	blinkOn    bool
	writes     int
	ddram      [128]byte
	cgram      [64]byte
	buf        bytes.Buffer
}

// New returns a simulated display bus.
func New(opts *Opts) *Sim {
	if opts == nil {
		opts = &Opts{}
	}
	addr := opts.Addr
	if addr == 0 {
		addr = 0x27
	}
	rows := opts.Rows
	if rows <= 0 {
		rows = 2
	} else if rows > 4 {
		rows = 4
	}
	cols := opts.Cols
	if cols <= 0 {
		cols = 16
	} else if cols > 40 {
		cols = 40
	}
	if rows*cols > 80 {
		cols = 80 / rows
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	s := &Sim{
		addr:      addr,
		rows:      rows,
		cols:      cols,
		w:         w,
		palette:   *p,
		increment: true,
	}
	switch opts.State {
	case FourBitIdle:
		s.fourBit = true
	case FourBitSplit:
		s.fourBit = true
		s.hasPending = true
		s.pending = opts.Pending & 0xf0
	}
	for i := range s.ddram {
		s.ddram[i] = ' '
	}
	return s
}

func (s *Sim) String() string {
	return fmt.Sprintf("lcdsim(%dx%d@%#x)", s.rows, s.cols, s.addr)
}

// SetSpeed is a no-op; the simulator keeps up with any bus clock.
func (s *Sim) SetSpeed(f physic.Frequency) error {
	return nil
}

// Tx applies writes to the expander latch byte by byte. Reads return the
// latch with the busy flag clear; the simulator executes instantly so it
// is never busy.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	if addr != s.addr {
		return fmt.Errorf("lcdsim: no device at %#x", addr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range w {
		s.write(b)
	}
	for i := range r {
		r[i] = s.port &^ 0x80
	}
	return nil
}

func (s *Sim) write(b byte) {
	prev := s.port
	s.port = b
	s.writes++
	if prev&pinEnable != 0 && b&pinEnable == 0 && prev&pinRW == 0 {
		// Falling edge on enable with R/W low. The controller's setup
		// time was met while enable was high, so it samples the lines as
		// they were then, not as they are after the edge. Strobes with
		// R/W high clock data out (busy-flag reads) and latch nothing.
		s.latch(prev)
	}
}

func (s *Sim) latch(b byte) {
	nibble := b & 0xf0
	rs := b&pinRS != 0
	if !s.fourBit {
		// In 8-bit mode only D4-D7 are wired; the low lines float low.
		s.execute(nibble, rs)
		return
	}
	if !s.hasPending {
		s.pending = nibble
		s.hasPending = true
		return
	}
	s.hasPending = false
	s.execute(s.pending|nibble>>4, rs)
}

func (s *Sim) execute(b byte, rs bool) {
	if rs {
		s.writeRAM(b)
		return
	}
	switch {
	case b&0x80 != 0: // set DDRAM address
		s.ac = b & 0x7f
		s.inCGRAM = false
	case b&0x40 != 0: // set CGRAM address
		s.ac = b & 0x3f
		s.inCGRAM = true
	case b&0x20 != 0: // function set
		s.fourBit = b&0x10 == 0
		s.hasPending = false
	case b&0x10 != 0: // cursor/display shift; display shift not modeled
		if b&0x08 == 0 {
			if b&0x04 != 0 {
				s.ac = (s.ac + 1) & 0x7f
			} else {
				s.ac = (s.ac - 1) & 0x7f
			}
		}
	case b&0x08 != 0: // display control
		s.displayOn = b&0x04 != 0
		s.cursorOn = b&0x02 != 0
		s.blinkOn = b&0x01 != 0
	case b&0x04 != 0: // entry mode
		s.increment = b&0x02 != 0
	case b&0x02 != 0: // return home
		s.ac = 0
		s.inCGRAM = false
	case b&0x01 != 0: // clear display
		for i := range s.ddram {
			s.ddram[i] = ' '
		}
		s.ac = 0
		s.inCGRAM = false
		s.increment = true
	}
}

func (s *Sim) writeRAM(b byte) {
	step := byte(1)
	if !s.increment {
		step = 0xff
	}
	if s.inCGRAM {
		s.cgram[s.ac&0x3f] = b
		s.ac = (s.ac + step) & 0x3f
		return
	}
	s.ddram[s.ac&0x7f] = b
	s.ac = (s.ac + step) & 0x7f
}

// FourBitMode reports whether the controller interface is in 4-bit mode
// with no half-received nibble outstanding.
func (s *Sim) FourBitMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fourBit && !s.hasPending
}

// DisplayOn reports whether the display is switched on.
func (s *Sim) DisplayOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayOn
}

// BacklightOn reports the state of the backlight line on the expander.
func (s *Sim) BacklightOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port&pinBacklight != 0
}

// Writes returns the number of bytes written to the expander so far.
func (s *Sim) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Sim) rowOffset(row int) int {
	offsets := [4]int{0, 0x40, s.cols, 0x40 + s.cols}
	return offsets[row]
}

func (s *Sim) line(row int) string {
	off := s.rowOffset(row)
	return string(s.ddram[off : off+s.cols])
}

// Line returns the characters of one display row, 0 based. Rows outside
// the glass return an empty string.
func (s *Sim) Line(row int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row < 0 || row >= s.rows {
		return ""
	}
	return s.line(row)
}

// Screen returns all display rows.
func (s *Sim) Screen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, s.rows)
	for row := 0; row < s.rows; row++ {
		lines[row] = s.line(row)
	}
	return lines
}

// Glyph returns the CGRAM contents of a custom character slot 0-7. Slots
// outside that range return an empty glyph.
func (s *Sim) Glyph(slot int) [8]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var g [8]byte
	if slot < 0 || slot > 7 {
		return g
	}
	for i := range g {
		g[i] = s.cgram[slot*8+i] & 0x1f
	}
	return g
}

// Render draws the current character matrix to the configured writer. The
// flanking blocks take the backlight color, green when lit and near black
// when not, like the common green-glass modules.
func (s *Sim) Render() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bl := color.NRGBA{16, 16, 16, 255}
	if s.port&pinBacklight != 0 {
		bl = color.NRGBA{64, 208, 64, 255}
	}
	// This code is designed to minimize the amount of memory allocated
	// per call.
	s.buf.Reset()
	block := s.palette.Block(bl)
	for row := 0; row < s.rows; row++ {
		line := s.line(row)
		if !s.displayOn {
			line = strings.Repeat(" ", s.cols)
		}
		_, _ = s.buf.WriteString(block)
		_, _ = s.buf.WriteString("\033[0m")
		_, _ = s.buf.WriteString(line)
		_, _ = s.buf.WriteString(block)
		_, _ = s.buf.WriteString("\033[0m\n")
	}
	_, err := s.buf.WriteTo(s.w)
	return err
}

var _ i2c.Bus = &Sim{}
var _ fmt.Stringer = &Sim{}
