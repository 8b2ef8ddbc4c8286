// go-easytag
// Copyright (c) 2026 The Aintinksmart Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-easytag.
//
// go-easytag is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-easytag is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-easytag; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package easytag

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for the image formats the quantizer accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// Mode selects the color classes the quantizer produces.
type Mode string

const (
	// ModeBW classifies pixels as black or white.
	ModeBW Mode = "bw"
	// ModeBWR additionally detects red pixels for two-plane panels.
	ModeBWR Mode = "bwr"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBW, ModeBWR:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// luminance below this is black; red channel above it qualifies for red.
const colorThreshold = 128

// BitPlane is a flat row-major bit array over the padded canvas. Index
// row*Width+col marks whether the pixel belongs to the plane's color class.
type BitPlane []bool

// Bitmap holds the two color planes of a quantized image plus the padded
// canvas dimensions. Black and Red have the same length and are mutually
// exclusive at every index; both false means white.
type Bitmap struct {
	Black  BitPlane
	Red    BitPlane
	Width  int
	Height int
}

// Quantize decodes an image (PNG, JPEG, GIF or BMP) and classifies every
// pixel into the black and red planes. Dimensions are padded up to the next
// multiple of 8; padding pixels stay white.
//
// In ModeBW a pixel is black when its mean luminance is below 128. ModeBWR
// first applies the red heuristic (R > 2G, R > 2B and R > 128) and falls
// back to the luminance test.
func Quantize(data []byte, mode Mode) (*Bitmap, error) {
	if mode != ModeBW && mode != ModeBWR {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	paddedWidth, paddedHeight := roundUp8(width), roundUp8(height)

	bm := &Bitmap{
		Black:  make(BitPlane, paddedWidth*paddedHeight),
		Red:    make(BitPlane, paddedWidth*paddedHeight),
		Width:  paddedWidth,
		Height: paddedHeight,
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r16, g16, b16, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			r, g, b := int(r16>>8), int(g16>>8), int(b16>>8)
			lum := (r + g + b) / 3

			idx := y*paddedWidth + x
			switch {
			case mode == ModeBWR && r > 2*g && r > 2*b && r > colorThreshold:
				bm.Red[idx] = true
			case lum < colorThreshold:
				bm.Black[idx] = true
			}
		}
	}
	return bm, nil
}

// roundUp8 rounds n up to the nearest multiple of 8.
func roundUp8(n int) int {
	return (n + 7) &^ 7
}
