// Package volume holds 3D scalar volumes prepared for 2D slice display: one
// stack of normalized slices per anatomical axis, the slice geometry, the
// display state (thresholds, window, current indices) and an optional
// labelmap.
package volume

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"sliceview/pkg/orientation"
)

var (
	// ErrDimensions is returned when data does not fit the given dimensions.
	ErrDimensions = errors.New("volume dimensions do not match data")

	// ErrIndexRange is returned for voxel lookups outside the volume.
	ErrIndexRange = errors.New("voxel index out of range")

	// ErrNonFinite is returned when the data holds NaN or infinite values.
	ErrNonFinite = errors.New("volume data is not finite")
)

// Params holds the geometry of a volume.
type Params struct {
	// Dimensions are the voxel counts along X, Y and Z
	Dimensions [3]int

	// Spacing is the voxel size in mm along X, Y and Z. Zero means 1.
	Spacing [3]float64

	// Origin is the world position of the centre of voxel (0, 0, 0)
	Origin r3.Vec

	// Labels is an optional labelmap with the same dimensions
	Labels *Labelmap

	// NumCores bounds the number of goroutines used to cut slices.
	// Zero means all available CPUs.
	NumCores int
}

// Volume is a scalar volume cut into slice stacks for display.
//
// The exported display fields are owned by whoever drives the viewer
// (sliders, mouse handlers). Renderers only read them.
type Volume struct {
	// Dimensions are the voxel counts along X, Y and Z
	Dimensions [3]int

	// Spacing is the voxel size in mm
	Spacing [3]float64

	// Origin is the world position of voxel (0, 0, 0)
	Origin r3.Vec

	// Min and Max are the scalar range of the data
	Min, Max float64

	// MinColor and MaxColor are the RGB endpoints (0-1) of the gray ramp
	MinColor, MaxColor [3]float64

	// LowerThreshold and UpperThreshold gate visible intensities, inclusive
	LowerThreshold, UpperThreshold float64

	// WindowLow and WindowHigh define the contrast window
	WindowLow, WindowHigh float64

	// Index is the current slice index along X, Y and Z
	Index [3]int

	// Axes are the slice stacks indexed by orientation
	Axes [3]*Axis

	// Labelmap is nil when the volume has no labels
	Labelmap *Labelmap

	data []float64
}

// New cuts data, laid out as z*W*H + y*W + x, into slice stacks along all
// three axes.
func New(data []float64, p Params) (*Volume, error) {
	dims := p.Dimensions
	for a, n := range dims {
		if n <= 0 {
			return nil, fmt.Errorf("%w: axis %d has size %d", ErrDimensions, a, n)
		}
	}
	if len(data) != dims[0]*dims[1]*dims[2] {
		return nil, fmt.Errorf("%w: %d values for %dx%dx%d",
			ErrDimensions, len(data), dims[0], dims[1], dims[2])
	}
	for i, x := range data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: value %g at offset %d", ErrNonFinite, x, i)
		}
	}
	if p.Labels != nil && len(p.Labels.IDs) != len(data) {
		return nil, fmt.Errorf("%w: labelmap has %d values, volume has %d",
			ErrDimensions, len(p.Labels.IDs), len(data))
	}

	spacing := p.Spacing
	for a := range spacing {
		if spacing[a] <= 0 {
			spacing[a] = 1
		}
	}

	v := &Volume{
		Dimensions: dims,
		Spacing:    spacing,
		Origin:     p.Origin,
		Min:        floats.Min(data),
		Max:        floats.Max(data),
		MaxColor:   [3]float64{1, 1, 1},
		Labelmap:   p.Labels,
		data:       data,
	}
	v.LowerThreshold = v.Min
	v.UpperThreshold = v.Max
	v.WindowLow = v.Min
	v.WindowHigh = v.Max
	for a := range v.Index {
		v.Index[a] = dims[a] / 2
	}

	workers := p.NumCores
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	normalized := v.normalize()
	var labels []uint8
	if v.Labelmap != nil {
		labels = v.Labelmap.rgba()
	}
	for _, o := range orientation.All {
		v.Axes[o] = v.cutAxis(o, normalized, labels, workers)
	}

	return v, nil
}

// normalize maps the scalars onto 0-255 over [Min, Max]
func (v *Volume) normalize() []uint8 {
	out := make([]uint8, len(v.data))
	span := v.Max - v.Min
	if span == 0 {
		return out
	}
	for i, x := range v.data {
		out[i] = uint8(math.Round((x - v.Min) / span * 255))
	}
	return out
}

// voxel returns the flat offset of voxel (i, j, k)
func (v *Volume) voxel(ijk [3]int) int {
	return ijk[2]*v.Dimensions[0]*v.Dimensions[1] + ijk[1]*v.Dimensions[0] + ijk[0]
}

func (v *Volume) inside(ijk [3]int) bool {
	for a, n := range ijk {
		if n < 0 || n >= v.Dimensions[a] {
			return false
		}
	}
	return true
}

// ValueAt returns the scalar at voxel ijk.
func (v *Volume) ValueAt(ijk [3]int) (float64, error) {
	if !v.inside(ijk) {
		return 0, fmt.Errorf("%w: %v", ErrIndexRange, ijk)
	}
	return v.data[v.voxel(ijk)], nil
}

// LabelAt returns the label id at voxel ijk.
func (v *Volume) LabelAt(ijk [3]int) (int, error) {
	if v.Labelmap == nil {
		return 0, errors.New("volume has no labelmap")
	}
	if !v.inside(ijk) {
		return 0, fmt.Errorf("%w: %v", ErrIndexRange, ijk)
	}
	return v.Labelmap.IDs[v.voxel(ijk)], nil
}

// ActiveSlice returns the current slice of orientation o and its index, or
// nil when the current index is outside the stack.
func (v *Volume) ActiveSlice(o orientation.Orientation) (*Slice, int) {
	axis := v.Axes[o]
	idx := v.Index[o.Axis()]
	if axis == nil || idx < 0 || idx >= axis.Len() {
		return nil, idx
	}
	return axis.Slices[idx], idx
}

// SetIndex moves all three slice indices at once, clamping each to its stack.
func (v *Volume) SetIndex(idx [3]int) {
	for a := range idx {
		v.Index[a] = clamp(idx[a], 0, v.Dimensions[a]-1)
	}
}

// Scroll steps the slice index of orientation o by one.
func (v *Volume) Scroll(o orientation.Orientation, up bool) {
	a := o.Axis()
	step := -1
	if up {
		step = 1
	}
	v.Index[a] = clamp(v.Index[a]+step, 0, v.Dimensions[a]-1)
}

// AdjustWindowLevel applies a window/level drag as reported by the camera.
// Each unit of dWindow or dLevel moves the window by 1/15 of its current
// width, changes are truncated to whole units and always at least one unit,
// and the result is clamped to the scalar range.
func (v *Volume) AdjustWindowLevel(dWindow, dLevel float64) {
	oldWindow := v.WindowHigh - v.WindowLow
	oldLevel := oldWindow / 2

	newWindow := math.Trunc(oldWindow + (oldWindow/15)*-dWindow)
	newLevel := math.Trunc(oldLevel + (oldLevel/15)*dLevel)

	// always move at least one unit
	if oldWindow == newWindow {
		newWindow++
	}
	if oldLevel == newLevel {
		newLevel++
	}

	levelShift := math.Trunc(oldLevel - newLevel)
	windowShift := math.Trunc(oldWindow - newWindow)

	v.WindowLow -= levelShift
	v.WindowLow -= windowShift
	v.WindowLow = math.Max(v.WindowLow, v.Min)
	v.WindowHigh -= levelShift
	v.WindowHigh += windowShift
	v.WindowHigh = math.Min(v.WindowHigh, v.Max)
}

// ResetWindow opens the window to the full scalar range.
func (v *Volume) ResetWindow() {
	v.WindowLow = v.Min
	v.WindowHigh = v.Max
}

// AutoWindow sets the window to the given quantiles (0-1) of the scalars.
func (v *Volume) AutoWindow(low, high float64) error {
	if low < 0 || high > 1 || low >= high {
		return fmt.Errorf("invalid quantile range [%g, %g]", low, high)
	}
	sorted := make([]float64, len(v.data))
	copy(sorted, v.data)
	sort.Float64s(sorted)

	v.WindowLow = stat.Quantile(low, stat.Empirical, sorted, nil)
	v.WindowHigh = stat.Quantile(high, stat.Empirical, sorted, nil)
	if v.WindowHigh <= v.WindowLow {
		v.ResetWindow()
	}
	return nil
}

// Stats returns the mean and standard deviation of the scalars.
func (v *Volume) Stats() (mean, std float64) {
	return stat.MeanStdDev(v.data, nil)
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
