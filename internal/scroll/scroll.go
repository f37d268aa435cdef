// Package scroll turns the viewport scroll position into the cosmetic
// background parameters used by the page.
package scroll

import (
	"fmt"
	"math"
)

const (
	PositionMin = 30.0
	PositionMax = 58.0
	TintMin     = 0.82
	TintMax     = 0.94
)

// Sample is one reading of the scroll position. Max is the scrollable
// distance (document height minus viewport height) and may be <= 0 when the
// content is shorter than the viewport.
type Sample struct {
	Offset float64 `json:"offset"`
	Max    float64 `json:"max"`
}

// Params are the two values driven by scroll progress. They always move
// together and stay inside [PositionMin, PositionMax] and [TintMin, TintMax].
type Params struct {
	PositionOffset float64 `json:"positionOffset"`
	TintIntensity  float64 `json:"tintIntensity"`
}

// FromViewport builds a Sample from the raw geometry the browser reports.
func FromViewport(scrollY, scrollHeight, innerHeight float64) Sample {
	return Sample{Offset: scrollY, Max: scrollHeight - innerHeight}
}

// Progress returns the normalised scroll position in [0, 1]. Non-finite
// input reads as the top of the page.
func Progress(s Sample) float64 {
	if !finite(s.Offset) || !finite(s.Max) {
		return 0
	}
	return clamp(s.Offset/math.Max(s.Max, 1), 0, 1)
}

// Derive computes the background parameters for a sample.
func Derive(s Sample) Params {
	return at(Progress(s))
}

// Keyframes samples Derive at n evenly spaced progress values from 0 to 1
// so the client can interpolate without a round trip per scroll event.
func Keyframes(n int) []Params {
	if n < 2 {
		n = 2
	}
	out := make([]Params, n)
	for i := range out {
		out[i] = at(float64(i) / float64(n-1))
	}
	return out
}

// Background renders the page background for these parameters.
func (p Params) Background() string {
	return fmt.Sprintf(
		"linear-gradient(180deg, rgba(241,246,252,%.3f), rgba(235,242,248,%.3f)), "+
			"radial-gradient(900px 520px at 15%% 10%%, rgba(10,102,194,0.18), rgba(10,102,194,0) 60%%), "+
			"radial-gradient(900px 520px at 85%% 20%%, rgba(61,134,255,0.12), rgba(61,134,255,0) 55%%)",
		p.TintIntensity, p.TintIntensity-0.08)
}

func at(p float64) Params {
	return Params{
		PositionOffset: clamp(PositionMin+p*(PositionMax-PositionMin), PositionMin, PositionMax),
		TintIntensity:  clamp(TintMax-p*(TintMax-TintMin), TintMin, TintMax),
	}
}

func clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
