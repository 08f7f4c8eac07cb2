package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"sliceview/pkg/volume"
)

// Marker is a measured point on a slice, such as a cortical thickness
// sample, drawn as a small colored disc.
type Marker struct {
	// Col and Row are the slice pixel of the marker
	Col, Row int

	// Value selects the palette entry
	Value float64
}

// MarkerOverlay holds markers per slice index of one orientation.
type MarkerOverlay struct {
	// Palette colors markers; entry round(Value*Scale), clamped
	Palette color.Palette

	// Scale converts marker values to palette positions
	Scale float64

	// Radius of the marker disc in slice pixels
	Radius int

	bySlice map[int][]Marker
}

// NewMarkerOverlay returns an empty overlay.
func NewMarkerOverlay(palette color.Palette, scale float64, radius int) *MarkerOverlay {
	return &MarkerOverlay{
		Palette: palette,
		Scale:   scale,
		Radius:  radius,
		bySlice: make(map[int][]Marker),
	}
}

// Set replaces the markers of one slice.
func (o *MarkerOverlay) Set(slice int, markers []Marker) {
	o.bySlice[slice] = markers
}

// Markers returns the markers of one slice.
func (o *MarkerOverlay) Markers(slice int) []Marker {
	return o.bySlice[slice]
}

// colorFor picks the palette entry for a marker value.
func (o *MarkerOverlay) colorFor(value float64) color.NRGBA {
	if len(o.Palette) == 0 {
		return color.NRGBA{R: 255, A: 255}
	}
	i := int(math.Round(value * o.Scale))
	i = max(0, min(i, len(o.Palette)-1))
	return color.NRGBAModel.Convert(o.Palette[i]).(color.NRGBA)
}

// drawMarkers paints the markers of the given slice into the image buffer,
// placed through the same layout as the scalar pixels.
func (r *Renderer) drawMarkers(sl *volume.Slice, slice int) {
	if r.markers == nil {
		return
	}
	rad := r.markers.Radius
	for _, mk := range r.markers.Markers(slice) {
		c := r.markers.colorFor(mk.Value)
		for dy := -rad; dy <= rad; dy++ {
			for dx := -rad; dx <= rad; dx++ {
				if dx*dx+dy*dy > rad*rad {
					continue
				}
				col, row := mk.Col+dx, mk.Row+dy
				if col < 0 || col >= sl.Width || row < 0 || row >= sl.Height {
					continue
				}
				bc, br := r.layout.BufferPixel(col, row, sl.Width, sl.Height)
				r.image.SetNRGBA(bc, br, c)
			}
		}
	}
}

// GradientPalette returns n opaque colors running linearly from one color
// to another.
func GradientPalette(from, to color.NRGBA, n int) color.Palette {
	p := make(color.Palette, n)
	for i := range p {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		mix := func(a, b uint8) uint8 {
			return uint8(math.Round(float64(a)*(1-t) + float64(b)*t))
		}
		p[i] = color.NRGBA{R: mix(from.R, to.R), G: mix(from.G, to.G), B: mix(from.B, to.B), A: 255}
	}
	return p
}

// ParseHexColor parses "#rrggbb" or "rrggbb" into an opaque color.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
