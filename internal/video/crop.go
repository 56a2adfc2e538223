// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Crop geometry related constructs.

package video

import (
	"fmt"
	"strconv"
	"strings"
)

// Crop defines a crop rectangle in ffmpeg crop filter geometry: width and
// height of the kept region plus top-left offset relative to full frame.
type Crop struct {
	Width  int
	Height int
	X      int
	Y      int
}

// String renders crop in ffmpeg crop filter W:H:X:Y form.
func (c Crop) String() string {
	return fmt.Sprintf("%d:%d:%d:%d", c.Width, c.Height, c.X, c.Y)
}

// FitsWithin checks that crop rectangle lies fully inside given frame.
func (c Crop) FitsWithin(m Metadata) bool {
	if c.Width <= 0 || c.Height <= 0 || c.X < 0 || c.Y < 0 {
		return false
	}
	return c.X+c.Width <= m.Width && c.Y+c.Height <= m.Height
}

// ParseCrop parses colon separated crop geometry e.g. "1920:800:0:140".
//
// Values are raw at this point: depending on magnitude the quad may later
// be reinterpreted as HandBrake style T:B:L:R, see NormalizeCrop.
func ParseCrop(s string) (Crop, error) {
	var c Crop

	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return c, fmt.Errorf("invalid crop geometry %q: want 4 colon separated values", s)
	}

	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return c, fmt.Errorf("invalid crop geometry %q: %w", s, err)
		}
		if v < 0 {
			return c, fmt.Errorf("invalid crop geometry %q: negative value", s)
		}
		vals[i] = v
	}

	c = Crop{Width: vals[0], Height: vals[1], X: vals[2], Y: vals[3]}
	return c, nil
}

// NormalizeCrop converts a HandBrake style T:B:L:R crop quad into ffmpeg
// W:H:X:Y geometry relative to given frame metadata.
//
// Heuristic carried over from legacy tooling: when all four values fall
// within a quarter of the corresponding frame dimension, the quad is
// interpreted as T:B:L:R margins. Otherwise crop is already in W:H:X:Y
// form and is returned unchanged.
func NormalizeCrop(c Crop, m Metadata) Crop {
	top, bottom, left, right := c.Width, c.Height, c.X, c.Y

	maxX := m.Width / 4
	maxY := m.Height / 4
	if left <= maxX && right <= maxX && top <= maxY && bottom <= maxY {
		return Crop{
			Width:  m.Width - (left + right),
			Height: m.Height - (top + bottom),
			X:      left,
			Y:      top,
		}
	}

	return c
}
