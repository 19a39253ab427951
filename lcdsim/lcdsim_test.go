// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"strings"
	"testing"
)

const addr uint16 = 0x27

// nibble clocks the upper four bits of n into the simulator the way the
// driver does: one write with enable high, one with the flags alone.
func nibble(t *testing.T, s *Sim, n, flags byte) {
	t.Helper()
	if err := s.Tx(addr, []byte{n&0xf0 | flags | pinEnable}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Tx(addr, []byte{flags}, nil); err != nil {
		t.Fatal(err)
	}
}

func sendByte(t *testing.T, s *Sim, b byte, rs bool) {
	t.Helper()
	flags := pinBacklight
	if rs {
		flags |= pinRS
	}
	nibble(t, s, b&0xf0, flags)
	nibble(t, s, (b<<4)&0xf0, flags)
}

// bringUp replays the canonical wake-up and configuration sequence.
func bringUp(t *testing.T, s *Sim) {
	t.Helper()
	for i := 0; i < 3; i++ {
		nibble(t, s, 0x30, pinBacklight)
	}
	nibble(t, s, 0x20, pinBacklight)
	sendByte(t, s, 0x28, false) // function set: 4-bit, 2 lines
	sendByte(t, s, 0x0c, false) // display on
	sendByte(t, s, 0x01, false) // clear
	sendByte(t, s, 0x06, false) // entry mode: increment
}

func TestWrongAddress(t *testing.T) {
	s := New(nil)
	if err := s.Tx(0x20, []byte{0x00}, nil); err == nil {
		t.Error("a write to an unoccupied address should fail")
	}
}

func TestBringUpAndWrite(t *testing.T) {
	s := New(nil)
	bringUp(t, s)
	if !s.FourBitMode() {
		t.Fatal("expected 4-bit mode after bring-up")
	}
	if !s.DisplayOn() {
		t.Fatal("expected the display on after bring-up")
	}
	for _, c := range []byte("Hi") {
		sendByte(t, s, c, true)
	}
	if got := s.Line(0); !strings.HasPrefix(got, "Hi") {
		t.Errorf("line 0 = %q", got)
	}
	if got := s.Line(1); got != strings.Repeat(" ", 16) {
		t.Errorf("line 1 should be blank, got %q", got)
	}
}

// The wake-up sequence converges from every power-on state, including a
// controller still holding half of a previous instruction.
func TestConvergence(t *testing.T) {
	opts := []Opts{
		{State: EightBit},
		{State: FourBitIdle},
		{State: FourBitSplit, Pending: 0x80},
		{State: FourBitSplit, Pending: 0x20},
		{State: FourBitSplit, Pending: 0x40},
	}
	for _, opt := range opts {
		opt := opt
		s := New(&opt)
		bringUp(t, s)
		if !s.FourBitMode() {
			t.Errorf("state %d pending %#x: did not converge to 4-bit mode",
				opt.State, opt.Pending)
		}
	}
}

func TestSecondLineAddressing(t *testing.T) {
	s := New(nil)
	bringUp(t, s)
	sendByte(t, s, 0x80|0x42, false) // DDRAM address: row 2, column 3
	sendByte(t, s, 'X', true)
	if got := s.Line(1); got[2] != 'X' {
		t.Errorf("line 1 = %q", got)
	}
}

func TestEntryModeDecrement(t *testing.T) {
	s := New(nil)
	bringUp(t, s)
	sendByte(t, s, 0x04, false)      // entry mode: decrement
	sendByte(t, s, 0x80|0x05, false) // DDRAM address 5
	sendByte(t, s, 'b', true)
	sendByte(t, s, 'a', true)
	if got := s.Line(0); got[5] != 'b' || got[4] != 'a' {
		t.Errorf("line 0 = %q", got)
	}
}

func TestBusyRead(t *testing.T) {
	s := New(nil)
	r := make([]byte, 1)
	if err := s.Tx(addr, []byte{0xfd}, r); err != nil {
		t.Fatal(err)
	}
	if r[0]&0x80 != 0 {
		t.Error("the simulator should never report busy")
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	s := New(&Opts{W: &buf})
	bringUp(t, s)
	for _, c := range []byte("Hello") {
		sendByte(t, s, c, true)
	}
	if err := s.Render(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Hello") {
		t.Errorf("render output missing text: %q", out)
	}
	if got := strings.Count(out, "\n"); got != 2 {
		t.Errorf("expected 2 rendered rows, got %d", got)
	}

	// With the display switched off the characters are hidden.
	buf.Reset()
	sendByte(t, s, 0x08, false)
	if err := s.Render(); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Hello") {
		t.Error("render should blank a switched-off display")
	}
}

// Geometry beyond a single controller is clamped, and row accessors
// tolerate rows beyond the glass.
func TestGeometryClamp(t *testing.T) {
	s := New(&Opts{Rows: 9, Cols: 99})
	if got := s.Line(3); len(got) != 20 {
		t.Errorf("expected a 4x20 glass, got row length %d", len(got))
	}
	if got := s.Line(4); got != "" {
		t.Errorf("row beyond the glass should be empty, got %q", got)
	}
	if got := s.Line(-1); got != "" {
		t.Errorf("negative row should be empty, got %q", got)
	}
	if got := s.Glyph(8); got != ([8]byte{}) {
		t.Errorf("slot beyond CGRAM should be empty, got %#v", got)
	}
	if got := len(s.Screen()); got != 4 {
		t.Errorf("expected 4 rows, got %d", got)
	}
}

func TestString(t *testing.T) {
	s := New(nil)
	if len(s.String()) == 0 {
		t.Error("String() returned nothing")
	}
}
