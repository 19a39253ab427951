// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdbackpack

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	glyphRows = 8
	glyphCols = 5
)

// Glyph is a 5x8 custom character bitmap. Each entry is one pixel row, the
// five low bits are the columns with bit 4 leftmost. The controller stores
// up to eight of these in CGRAM, displayed as character codes 0-7.
type Glyph [glyphRows]byte

// CreateChar stores a custom character in CGRAM slot 0-7. The character can
// then be displayed by writing its slot number as a data byte. Addressing
// is pointed back at the display afterwards, so the cursor ends up at the
// home position.
func (dev *Dev) CreateChar(slot int, g Glyph) error {
	if slot < 0 || slot > 7 {
		return fmt.Errorf("%s: CGRAM slot %d out of range", packageName, slot)
	}
	if err := dev.WriteCommand(cmdCGRAMSet | byte(slot)<<3); err != nil {
		return err
	}
	for _, row := range g {
		if err := dev.WriteData(row & 0x1f); err != nil {
			return err
		}
	}
	return dev.WriteCommand(cmdDDRAMSet)
}

// GlyphFromImage converts an image to a glyph by thresholding luminance.
// Pixels brighter than half scale are set. The image is read from its
// bounds origin and clipped to 5x8.
func GlyphFromImage(img image.Image) Glyph {
	var g Glyph
	min := img.Bounds().Min
	for y := 0; y < glyphRows; y++ {
		for x := 0; x < glyphCols; x++ {
			c := color.GrayModel.Convert(img.At(min.X+x, min.Y+y)).(color.Gray)
			if c.Y >= 0x80 {
				g[y] |= 1 << (glyphCols - 1 - x)
			}
		}
	}
	return g
}

// GlyphFromFace rasterizes a rune through a font face into a glyph. Faces
// taller than 8 pixels are clipped from the baseline up, so small faces
// work best. Useful for putting the odd symbol a character ROM lacks on
// the display.
func GlyphFromFace(face font.Face, r rune) Glyph {
	img := image.NewGray(image.Rect(0, 0, glyphCols, glyphRows))
	d := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, glyphRows-1),
	}
	d.DrawString(string(r))
	return GlyphFromImage(img)
}
