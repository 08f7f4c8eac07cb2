package render

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"sliceview/pkg/orientation"
)

// crosshair colors per orientation: vertical line, horizontal line
var crosshairColors = [...][2]color.NRGBA{
	orientation.Sagittal: {{G: 255, A: 77}, {B: 255, A: 77}},
	orientation.Coronal:  {{R: 255, A: 77}, {B: 255, A: 77}},
	orientation.Axial:    {{R: 255, A: 77}, {G: 255, A: 77}},
}

const navigatorLineHeight = 15

// DrawNavigator overlays a crosshair through canvas point (x, y) and a
// readout of the RAS position, the scalar value and the label under it. It
// returns the mapping so the caller can move the other planes with
// Volume.SetIndex. Nothing is drawn when the point is off the slice.
func (r *Renderer) DrawNavigator(dst draw.Image, x, y int) (Mapping, bool) {
	m, ok := r.MapScreenToVolume(float64(x), float64(y))
	if !ok {
		return m, false
	}

	b := dst.Bounds()
	cols := crosshairColors[r.orient]
	vertical := image.NewUniform(cols[0])
	horizontal := image.NewUniform(cols[1])

	// leave the cursor pixel itself clear
	draw.Draw(dst, image.Rect(x, b.Min.Y, x+1, y), vertical, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(x, y+1, x+1, b.Max.Y), vertical, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(b.Min.X, y, x, y+1), horizontal, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(x+1, y, b.Max.X, y+1), horizontal, image.Point{}, draw.Over)

	for i, line := range r.readout(m) {
		d := font.Drawer{
			Dst:  dst,
			Src:  image.White,
			Face: basicfont.Face7x13,
			Dot:  fixed.P(b.Min.X, b.Min.Y+i*navigatorLineHeight+basicfont.Face7x13.Ascent),
		}
		d.DrawString(line)
	}
	return m, true
}

// readout formats the navigator text lines for a mapping.
func (r *Renderer) readout(m Mapping) []string {
	lines := []string{
		fmt.Sprintf("RAS: %.2f, %.2f, %.2f", m.World.X, m.World.Y, m.World.Z),
	}

	value := "undefined"
	if v, err := r.vol.ValueAt(m.Local); err == nil {
		value = fmt.Sprintf("%g", v)
	}
	lines = append(lines, fmt.Sprintf("Background:  %s (%d, %d, %d)",
		value, m.Local[0], m.Local[1], m.Local[2]))

	if lm := r.vol.Labelmap; lm != nil {
		label := "undefined"
		if id, err := r.vol.LabelAt(m.Local); err == nil {
			label = fmt.Sprintf("%s (%d)", lm.Name(id), id)
		}
		lines = append(lines, "Labelmap:  "+label)
	}
	return lines
}
