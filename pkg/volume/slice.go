package volume

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Slice is a single 2D cross-section of a volume along one axis
type Slice struct {
	// Index is the position of this slice in its axis stack
	Index int

	// Width and Height are the pixel counts of the slice
	Width  int
	Height int

	// WidthSpacing and HeightSpacing are the physical pixel sizes in mm
	WidthSpacing  float64
	HeightSpacing float64

	// BBox is the slice extent in its own XY space:
	// wmin, wmax, hmin, hmax, zmin, zmax
	BBox [6]float64

	// XYToIJK maps homogeneous slice XY points to continuous volume indices.
	// Voxel i covers [i, i+1) along each axis.
	XYToIJK *mat.Dense

	// XYToRAS maps homogeneous slice XY points to world (RAS) coordinates
	XYToRAS *mat.Dense

	// Data holds the scalars normalized to 0-255, row-major, Width*Height long
	Data []uint8

	// Label holds RGBA label colors, 4*Width*Height long, or nil without a labelmap
	Label []uint8
}

// WMin returns the smallest in-plane x coordinate of the slice
func (s *Slice) WMin() float64 { return s.BBox[0] }

// HMin returns the smallest in-plane y coordinate of the slice
func (s *Slice) HMin() float64 { return s.BBox[2] }

// Z returns the through-plane coordinate of the slice in its XY space
func (s *Slice) Z() float64 { return s.BBox[4] }

// Axis is the ordered slice stack of one orientation together with the plane
// geometry needed to turn a world point back into a slice number.
type Axis struct {
	// Slices are ordered by index
	Slices []*Slice

	// Normal is the unit plane normal in RAS space
	Normal r3.Vec

	// OriginD is the signed offset so that Normal·p + OriginD is the distance
	// of p from the centre of slice 0
	OriginD float64

	// Spacing is the distance between consecutive slices in mm
	Spacing float64
}

// Len returns the number of slices on the axis.
func (a *Axis) Len() int { return len(a.Slices) }

// Distance returns the signed distance of a world point from slice 0.
func (a *Axis) Distance(p r3.Vec) float64 {
	return r3.Dot(a.Normal, p) + a.OriginD
}
