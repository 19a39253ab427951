// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdbackpack_test

import (
	"log"
	"time"

	"golang.org/x/image/font/basicfont"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/lcdbackpack"
	"periph.io/x/host/v3"
)

// Drive a 2x16 display on the first available I²C bus using the default
// backpack address of 0x27.
func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Open default I²C bus.
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer bus.Close()

	dev, err := lcdbackpack.New(bus, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = dev.Halt() }()

	_, _ = dev.WriteString("Hello")
	_ = dev.MoveTo(2, 1)
	_, _ = dev.WriteString("from periph.io")
	time.Sleep(5 * time.Second)
}

// Store a custom character rasterized from a font face and display it.
func ExampleDev_CreateChar() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer bus.Close()

	opts := lcdbackpack.DefaultOpts
	opts.Rows, opts.Cols = 4, 20
	dev, err := lcdbackpack.New(bus, &opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = dev.Halt() }()

	// The HD44780 character ROM has no degree sign; build one.
	if err := dev.CreateChar(0, lcdbackpack.GlyphFromFace(basicfont.Face7x13, '°')); err != nil {
		log.Fatal(err)
	}
	_, _ = dev.WriteString("21.4")
	_ = dev.WriteData(0) // the custom glyph in slot 0
	_, _ = dev.WriteString("C")
	time.Sleep(5 * time.Second)
}
