package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%f", fps))
	return fb
}

// Crop adds a crop filter
func (fb *FilterBuilder) Crop(width, height, x, y int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("crop=%d:%d:%d:%d", width, height, x, y))
	return fb
}

// HFlip mirrors the picture horizontally
func (fb *FilterBuilder) HFlip() *FilterBuilder {
	fb.filters = append(fb.filters, "hflip")
	return fb
}

// Reverse plays the video stream backwards
func (fb *FilterBuilder) Reverse() *FilterBuilder {
	fb.filters = append(fb.filters, "reverse")
	return fb
}

// AudioReverse plays the audio stream backwards
func (fb *FilterBuilder) AudioReverse() *FilterBuilder {
	fb.filters = append(fb.filters, "areverse")
	return fb
}

// SetPTS rescales video timestamps for speed changes. factor > 1
// speeds up playback.
func (fb *FilterBuilder) SetPTS(factor float64) *FilterBuilder {
	if factor <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("setpts=PTS/%f", factor))
	return fb
}

// AudioTempo changes audio speed. atempo only accepts factors in
// [0.5, 2.0], so factors outside that range are applied as a cascade.
func (fb *FilterBuilder) AudioTempo(factor float64) *FilterBuilder {
	if factor <= 0 {
		return fb
	}
	for factor > 2.0 {
		fb.filters = append(fb.filters, "atempo=2.000000")
		factor /= 2.0
	}
	for factor < 0.5 {
		fb.filters = append(fb.filters, "atempo=0.500000")
		factor /= 0.5
	}
	fb.filters = append(fb.filters, fmt.Sprintf("atempo=%f", factor))
	return fb
}

// AudioVolume adjusts audio volume
func (fb *FilterBuilder) AudioVolume(volumeDB float64) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf("volume=%fdB", volumeDB))
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// BuildAll returns all filters as a slice
func (fb *FilterBuilder) BuildAll() []string {
	return fb.filters
}
