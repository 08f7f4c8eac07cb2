package volume

import (
	"fmt"
	"image/color"
)

// Labelmap is a categorical volume drawn as a colored overlay on the scalar
// slices. IDs use the same voxel layout as the scalar data.
type Labelmap struct {
	// IDs holds one label id per voxel, 0 for background
	IDs []int

	// Colors is the color table; ids missing from it are transparent
	Colors map[int]color.NRGBA

	// Names gives optional human readable names per id
	Names map[int]string

	// Visible toggles drawing of the overlay
	Visible bool

	// Opacity scales the overlay alpha, 0-1
	Opacity float64

	showOnly    color.NRGBA
	hasShowOnly bool
}

// NewLabelmap returns a visible, opaque labelmap.
func NewLabelmap(ids []int, colors map[int]color.NRGBA, names map[int]string) *Labelmap {
	return &Labelmap{
		IDs:     ids,
		Colors:  colors,
		Names:   names,
		Visible: true,
		Opacity: 1,
	}
}

// ShowOnly restricts the overlay to the label with the given id.
func (l *Labelmap) ShowOnly(id int) error {
	c, ok := l.Colors[id]
	if !ok {
		return fmt.Errorf("label %d has no color", id)
	}
	l.showOnly = c
	l.hasShowOnly = true
	return nil
}

// ShowAll removes the show-only filter.
func (l *Labelmap) ShowAll() {
	l.showOnly = color.NRGBA{}
	l.hasShowOnly = false
}

// Filter returns the show-only color and whether a filter is set.
func (l *Labelmap) Filter() (color.NRGBA, bool) {
	return l.showOnly, l.hasShowOnly
}

// Name returns the display name of a label id.
func (l *Labelmap) Name(id int) string {
	if n, ok := l.Names[id]; ok {
		return n
	}
	return fmt.Sprintf("label %d", id)
}

// rgba expands the ids through the color table
func (l *Labelmap) rgba() []uint8 {
	out := make([]uint8, 4*len(l.IDs))
	for i, id := range l.IDs {
		c, ok := l.Colors[id]
		if !ok {
			continue
		}
		out[4*i] = c.R
		out[4*i+1] = c.G
		out[4*i+2] = c.B
		out[4*i+3] = c.A
	}
	return out
}
