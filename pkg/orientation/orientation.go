// Package orientation defines the three anatomical planes a 2D slice
// renderer can display and the fixed pixel layout used to draw each of them.
//
// The Layout table is the single place where the per-orientation mirroring
// and rotation live. The compositor uses it to place pixels in its buffers
// and the coordinate mapper uses its inverse to recover slice pixels from
// the screen, so both always agree on which voxel a pixel shows.
package orientation

import (
	"errors"
	"fmt"
	"strings"
)

// Orientation identifies an anatomical plane. Its value is also the index of
// the volume axis the slice stack runs along.
type Orientation int

const (
	// Sagittal slices are stacked along X.
	Sagittal Orientation = iota
	// Coronal slices are stacked along Y.
	Coronal
	// Axial slices are stacked along Z.
	Axial
)

// ErrInvalidOrientation is returned for anything that is not one of the
// three planes.
var ErrInvalidOrientation = errors.New("invalid orientation")

// All lists the orientations in axis order.
var All = []Orientation{Sagittal, Coronal, Axial}

// Parse accepts x, y, z, sagittal, coronal or axial in any case.
func Parse(s string) (Orientation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X", "SAGITTAL":
		return Sagittal, nil
	case "Y", "CORONAL":
		return Coronal, nil
	case "Z", "AXIAL":
		return Axial, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOrientation, s)
}

// Valid reports whether o is one of the three planes.
func (o Orientation) Valid() bool {
	return o >= Sagittal && o <= Axial
}

func (o Orientation) String() string {
	switch o {
	case Sagittal:
		return "sagittal"
	case Coronal:
		return "coronal"
	case Axial:
		return "axial"
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// Letter returns the axis letter X, Y or Z.
func (o Orientation) Letter() string {
	switch o {
	case Sagittal:
		return "X"
	case Coronal:
		return "Y"
	case Axial:
		return "Z"
	}
	return "?"
}

// Axis returns the volume axis (0=X, 1=Y, 2=Z) that indexes the slice stack.
func (o Orientation) Axis() int {
	return int(o)
}

// PlaneAxes returns the volume axes running along the slice width and the
// slice height.
func (o Orientation) PlaneAxes() (width, height int) {
	switch o {
	case Sagittal:
		return 1, 2
	case Coronal:
		return 0, 2
	default:
		return 0, 1
	}
}

// Layout describes where a slice pixel lands in the display buffer and how
// the buffer is turned when drawn.
type Layout struct {
	// MirrorCols reverses the column order within each row.
	MirrorCols bool
	// MirrorRows reverses the row order.
	MirrorRows bool
	// Rotate draws the buffer turned 90 degrees clockwise.
	Rotate bool
}

var layouts = [...]Layout{
	Sagittal: {Rotate: true},
	Coronal:  {MirrorCols: true},
	Axial:    {MirrorCols: true, MirrorRows: true},
}

// Layout returns the pixel layout of o. It panics if o is not valid.
func (o Orientation) Layout() Layout {
	if !o.Valid() {
		panic(fmt.Sprintf("orientation: no layout for %v", o))
	}
	return layouts[o]
}

// BufferPixel maps slice pixel (c, r) of a w×h slice to its buffer pixel.
func (l Layout) BufferPixel(c, r, w, h int) (int, int) {
	if l.MirrorCols {
		c = w - 1 - c
	}
	if l.MirrorRows {
		r = h - 1 - r
	}
	return c, r
}

// SlicePoint is the continuous inverse of BufferPixel: a point inside buffer
// pixel (bc, br) maps to a point inside the slice pixel that BufferPixel
// sends there.
func (l Layout) SlicePoint(bx, by float64, w, h int) (float64, float64) {
	if l.MirrorCols {
		bx = float64(w) - bx
	}
	if l.MirrorRows {
		by = float64(h) - by
	}
	return bx, by
}
