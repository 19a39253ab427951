// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdbackpack

import (
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
)

// Port bit assignment of the expander. The upper nibble of every byte
// written carries the display's D4-D7 data lines, the lower nibble the
// control lines.
const (
	pinRW        byte = 0x01 // low for write; only raised while polling the busy flag
	pinRS        byte = 0x02
	pinEnable    byte = 0x04
	pinBacklight byte = 0x08
)

// flags is the control-line state multiplexed into the low nibble of every
// transmitted byte. A fresh value is composed for each transmission.
type flags byte

func newFlags(rs, backlight bool) flags {
	var f flags
	if rs {
		f |= flags(pinRS)
	}
	if backlight {
		f |= flags(pinBacklight)
	}
	return f
}

func (f flags) rs() bool {
	return byte(f)&pinRS != 0
}

func (f flags) enable() bool {
	return byte(f)&pinEnable != 0
}

func (f flags) backlight() bool {
	return byte(f)&pinBacklight != 0
}

func (f flags) String() string {
	s := "cmd"
	if f.rs() {
		s = "data"
	}
	if f.backlight() {
		s += "+bl"
	}
	if f.enable() {
		s += "+en"
	}
	return s
}

// transport clocks 4-bit nibbles into the controller through the expander.
//
// Each nibble costs two one-byte bus writes: the first presents the nibble
// with the enable line high, the second drops enable. The controller
// latches the data lines on the falling edge, so the second write only
// needs to carry the control flags. The write pair is followed either by a
// fixed settle delay or, when pollBusy is set, by polling the controller's
// busy flag through the expander.
type transport struct {
	c        *i2c.Dev
	strobe   time.Duration
	settle   time.Duration
	pollBusy bool
	delay    func(time.Duration)
}

// sendNibble transmits the upper four bits of nibble along with the control
// flags. On return the controller has latched the nibble and finished
// executing. Bus errors are returned unchanged; no retry is attempted.
func (t *transport) sendNibble(nibble byte, f flags) error {
	w := []byte{nibble&0xf0 | byte(f) | pinEnable}
	if err := t.c.Tx(w, nil); err != nil {
		return err
	}
	// Minimum enable pulse width. The controller needs the line held high
	// long enough to recognize the strobe before the falling edge.
	t.delay(t.strobe)
	w[0] = byte(f)
	if err := t.c.Tx(w, nil); err != nil {
		return err
	}
	if t.pollBusy {
		t.waitForFree(f)
		return nil
	}
	t.delay(t.settle)
	return nil
}

// waitForFree reads the busy flag until the controller reports idle. The
// data lines must be driven high before the expander can read them back,
// and R/W raised. Reads are a little wonky on some backpacks, so this makes
// a best effort, is time bounded, and ignores errors; the worst case is an
// extra poll cycle of waiting.
func (t *transport) waitForFree(f flags) {
	base := byte(f)&pinBacklight | pinRW | 0xf0
	r := make([]byte, 1)
	tLimit := time.Now().Add(3 * time.Millisecond)
	for time.Now().Before(tLimit) {
		// First strobe exposes BF and the top address bits.
		if err := t.c.Tx([]byte{base | pinEnable}, nil); err != nil {
			return
		}
		err := t.c.Tx(nil, r)
		busy := err != nil || r[0]&0x80 != 0
		_ = t.c.Tx([]byte{base}, nil)
		// Second strobe clocks out the low address nibble, which we discard.
		_ = t.c.Tx([]byte{base | pinEnable}, nil)
		_ = t.c.Tx([]byte{base}, nil)
		if !busy {
			return
		}
		t.delay(100 * time.Microsecond)
	}
	log.Debugf("lcdbackpack: busy flag still set after %s", 3*time.Millisecond)
}
