// Package media picks which preview a project card shows.
package media

import "strings"

// Asset points at externally hosted media. Alternate is usually an
// animated preview shown while the card is hovered; either may be empty.
type Asset struct {
	Primary   string `yaml:"image" json:"image"`
	Alternate string `yaml:"preview_gif,omitempty" json:"preview_gif,omitempty"`
}

// Resolve returns the locator to display. The second result is false when
// the asset has nothing to show and the caller should render a placeholder.
func Resolve(a Asset, hovered bool) (string, bool) {
	primary := strings.TrimSpace(a.Primary)
	alt := strings.TrimSpace(a.Alternate)
	if hovered && alt != "" {
		return alt, true
	}
	if primary != "" {
		return primary, true
	}
	return "", false
}

// HoverHint is the caption under the preview.
func (a Asset) HoverHint() string {
	if strings.TrimSpace(a.Alternate) != "" {
		return "Hover: GIF"
	}
	return "Hover: zoom"
}

// Preview is what the card template needs to draw the media block.
type Preview struct {
	Src         string
	Alt         string
	Hovered     bool
	Placeholder bool
	Scale       float64
	Hint        string
}

// NewPreview resolves a for the given hover state.
func NewPreview(a Asset, alt string, hovered bool) Preview {
	src, ok := Resolve(a, hovered)
	scale := 1.0
	if hovered {
		scale = 1.03
	}
	return Preview{
		Src:         src,
		Alt:         alt,
		Hovered:     hovered,
		Placeholder: !ok,
		Scale:       scale,
		Hint:        a.HoverHint(),
	}
}
