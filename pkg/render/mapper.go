package render

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mapping is the volume location under a canvas point.
type Mapping struct {
	// Index is the slice index along X, Y and Z nearest to the point,
	// clamped to each stack. Writing it back to the volume moves all three
	// planes to the point.
	Index [3]int

	// Local is the voxel containing the point, floored from the slice's
	// index matrix.
	Local [3]int

	// World is the point in RAS coordinates.
	World r3.Vec
}

// MapScreenToVolume returns the volume location under canvas point (x, y).
// It reports false when no volume is attached or the point is off the slice.
// It reads the current slice, camera and viewport and changes nothing.
func (r *Renderer) MapScreenToVolume(x, y float64) (Mapping, bool) {
	if r.vol == nil {
		return Mapping{}, false
	}
	sl, _ := r.vol.ActiveSlice(r.orient)
	if sl == nil {
		return Mapping{}, false
	}

	var inv mat.Dense
	if err := inv.Inverse(r.bufferToScreen(sl, r.viewport, r.cam.View())); err != nil {
		return Mapping{}, false
	}
	bx := inv.At(0, 0)*x + inv.At(0, 1)*y + inv.At(0, 2)
	by := inv.At(1, 0)*x + inv.At(1, 1)*y + inv.At(1, 2)

	w, h := float64(sl.Width), float64(sl.Height)
	if !(bx > 0 && bx < w && by > 0 && by < h) {
		return Mapping{}, false
	}

	col, row := r.layout.SlicePoint(bx, by, sl.Width, sl.Height)
	xy := mat.NewVecDense(4, []float64{
		sl.WMin() + col*sl.WidthSpacing,
		sl.HMin() + row*sl.HeightSpacing,
		sl.Z(),
		1,
	})

	var ijk, ras mat.VecDense
	ijk.MulVec(sl.XYToIJK, xy)
	ras.MulVec(sl.XYToRAS, xy)

	var m Mapping
	m.World = r3.Vec{X: ras.AtVec(0), Y: ras.AtVec(1), Z: ras.AtVec(2)}
	for a, axis := range r.vol.Axes {
		m.Local[a] = int(math.Floor(ijk.AtVec(a)))

		idx := int(math.Round(axis.Distance(m.World) / axis.Spacing))
		m.Index[a] = max(0, min(idx, axis.Len()-1))
	}
	return m, true
}
