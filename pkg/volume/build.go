package volume

import (
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"sliceview/pkg/orientation"
)

// ijkToRAS maps continuous voxel indices to world coordinates. Voxel centres
// sit at half-integer indices.
func (v *Volume) ijkToRAS() *mat.Dense {
	sp := v.Spacing
	return mat.NewDense(4, 4, []float64{
		sp[0], 0, 0, v.Origin.X - sp[0]/2,
		0, sp[1], 0, v.Origin.Y - sp[1]/2,
		0, 0, sp[2], v.Origin.Z - sp[2]/2,
		0, 0, 0, 1,
	})
}

// xyToIJK maps the XY space of an orientation's slices onto voxel indices.
// XY is physical: x runs along the width axis, y along the height axis and z
// along the stack axis, all starting at the volume corner.
func (v *Volume) xyToIJK(o orientation.Orientation) *mat.Dense {
	wa, ha := o.PlaneAxes()
	na := o.Axis()
	m := mat.NewDense(4, 4, nil)
	m.Set(wa, 0, 1/v.Spacing[wa])
	m.Set(ha, 1, 1/v.Spacing[ha])
	m.Set(na, 2, 1/v.Spacing[na])
	m.Set(3, 3, 1)
	return m
}

// cutAxis builds the slice stack of orientation o. Slices are cut in
// parallel, each worker taking a contiguous range of indices.
func (v *Volume) cutAxis(o orientation.Orientation, normalized, labels []uint8, workers int) *Axis {
	na := o.Axis()
	count := v.Dimensions[na]

	xyToIJK := v.xyToIJK(o)
	var xyToRAS mat.Dense
	xyToRAS.Mul(v.ijkToRAS(), xyToIJK)

	normal := r3.Vec{}
	switch na {
	case 0:
		normal.X = 1
	case 1:
		normal.Y = 1
	default:
		normal.Z = 1
	}
	axis := &Axis{
		Slices:  make([]*Slice, count),
		Normal:  normal,
		OriginD: -r3.Dot(normal, v.Origin),
		Spacing: v.Spacing[na],
	}

	if workers > count {
		workers = count
	}
	perWorker := (count + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > count {
			end = count
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for s := start; s < end; s++ {
				axis.Slices[s] = v.cutSlice(o, s, normalized, labels, xyToIJK, &xyToRAS)
			}
		}(start, end)
	}
	wg.Wait()

	return axis
}

// cutSlice extracts slice s of orientation o. Pixel (c, r) of the slice is
// the voxel at c along the width axis and r along the height axis.
func (v *Volume) cutSlice(o orientation.Orientation, s int, normalized, labels []uint8, xyToIJK, xyToRAS *mat.Dense) *Slice {
	wa, ha := o.PlaneAxes()
	na := o.Axis()
	width, height := v.Dimensions[wa], v.Dimensions[ha]
	ws, hs := v.Spacing[wa], v.Spacing[ha]
	z := (float64(s) + 0.5) * v.Spacing[na]

	sl := &Slice{
		Index:         s,
		Width:         width,
		Height:        height,
		WidthSpacing:  ws,
		HeightSpacing: hs,
		BBox:          [6]float64{0, float64(width) * ws, 0, float64(height) * hs, z, z},
		XYToIJK:       xyToIJK,
		XYToRAS:       xyToRAS,
		Data:          make([]uint8, width*height),
	}
	if labels != nil {
		sl.Label = make([]uint8, 4*width*height)
	}

	var ijk [3]int
	ijk[na] = s
	for r := 0; r < height; r++ {
		ijk[ha] = r
		for c := 0; c < width; c++ {
			ijk[wa] = c
			src := v.voxel(ijk)
			dst := r*width + c
			sl.Data[dst] = normalized[src]
			if labels != nil {
				copy(sl.Label[4*dst:4*dst+4], labels[4*src:4*src+4])
			}
		}
	}

	return sl
}
