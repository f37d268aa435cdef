package heatmap

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Levels is the number of activity buckets GitHub reports (0 = none).
const Levels = 5

// Palette maps each activity level to a CSS hex colour.
type Palette [Levels]string

// DefaultPalette is the data-toned blue ramp used across the page.
var DefaultPalette = Palette{"#eef2f7", "#cfe3ff", "#8bbcff", "#3d86ff", "#0A66C2"}

// ParsePalette validates hex colours and expands them to a full ramp. A
// single colour is rejected; two to four colours are treated as stops and
// the missing shades are blended in Lab space. An empty list yields the
// default palette.
func ParsePalette(colors []string) (Palette, error) {
	if len(colors) == 0 {
		return DefaultPalette, nil
	}
	if len(colors) < 2 || len(colors) > Levels {
		return Palette{}, fmt.Errorf("palette needs 2 to %d colours, got %d", Levels, len(colors))
	}

	stops := make([]colorful.Color, len(colors))
	for i, raw := range colors {
		c, err := colorful.Hex(strings.TrimSpace(raw))
		if err != nil {
			return Palette{}, fmt.Errorf("palette colour %d: %w", i, err)
		}
		stops[i] = c
	}

	var p Palette
	if len(stops) == Levels {
		for i, raw := range colors {
			p[i] = strings.TrimSpace(raw)
		}
		return p, nil
	}

	segments := float64(len(stops) - 1)
	for i := range p {
		pos := float64(i) / float64(Levels-1) * segments
		lo := int(pos)
		if lo >= len(stops)-1 {
			p[i] = stops[len(stops)-1].Hex()
			continue
		}
		if pos == float64(lo) {
			p[i] = stops[lo].Hex()
			continue
		}
		p[i] = stops[lo].BlendLab(stops[lo+1], pos-float64(lo)).Clamped().Hex()
	}
	return p, nil
}

// Color returns the colour for an activity level, clamping out of range
// levels.
func (p Palette) Color(level int) string {
	if level < 0 {
		level = 0
	}
	if level >= Levels {
		level = Levels - 1
	}
	return p[level]
}
