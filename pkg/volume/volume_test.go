package volume

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"sliceview/pkg/orientation"
)

// createRamp creates a volume whose voxel values equal their flat offset
func createRamp(t *testing.T, dims [3]int, spacing [3]float64) *Volume {
	t.Helper()
	data := make([]float64, dims[0]*dims[1]*dims[2])
	for i := range data {
		data[i] = float64(i)
	}
	v, err := New(data, Params{Dimensions: dims, Spacing: spacing, Origin: r3.Vec{X: -10, Y: 5, Z: 2}, NumCores: 3})
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	return v
}

func TestNewValidatesDimensions(t *testing.T) {
	_, err := New(make([]float64, 10), Params{Dimensions: [3]int{2, 2, 2}})
	if !errors.Is(err, ErrDimensions) {
		t.Errorf("Expected ErrDimensions, got %v", err)
	}
	_, err = New(nil, Params{Dimensions: [3]int{0, 2, 2}})
	if !errors.Is(err, ErrDimensions) {
		t.Errorf("Expected ErrDimensions for empty axis, got %v", err)
	}
	labels := NewLabelmap(make([]int, 3), nil, nil)
	_, err = New(make([]float64, 8), Params{Dimensions: [3]int{2, 2, 2}, Labels: labels})
	if !errors.Is(err, ErrDimensions) {
		t.Errorf("Expected ErrDimensions for short labelmap, got %v", err)
	}
}

func TestNewRejectsNonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		data := []float64{0, 1, 2, 3, 4, 5, 6, 7}
		data[5] = bad
		if _, err := New(data, Params{Dimensions: [3]int{2, 2, 2}}); !errors.Is(err, ErrNonFinite) {
			t.Errorf("Expected ErrNonFinite for %g, got %v", bad, err)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	v := createRamp(t, [3]int{4, 5, 6}, [3]float64{})

	if v.Min != 0 || v.Max != 119 {
		t.Errorf("Expected range [0, 119], got [%g, %g]", v.Min, v.Max)
	}
	if v.WindowLow != v.Min || v.WindowHigh != v.Max {
		t.Errorf("Expected window to span the data, got [%g, %g]", v.WindowLow, v.WindowHigh)
	}
	if v.LowerThreshold != v.Min || v.UpperThreshold != v.Max {
		t.Errorf("Expected thresholds to span the data, got [%g, %g]", v.LowerThreshold, v.UpperThreshold)
	}
	if v.Index != [3]int{2, 2, 3} {
		t.Errorf("Expected centre indices, got %v", v.Index)
	}
	if v.Spacing != [3]float64{1, 1, 1} {
		t.Errorf("Expected unit spacing, got %v", v.Spacing)
	}
}

// TestSliceStacks verifies slice sizes per axis and that each slice pixel
// holds the voxel named by the plane axes.
func TestSliceStacks(t *testing.T) {
	dims := [3]int{4, 5, 6}
	v := createRamp(t, dims, [3]float64{1, 2, 3})

	for _, o := range orientation.All {
		axis := v.Axes[o]
		if axis.Len() != dims[o.Axis()] {
			t.Fatalf("%v: expected %d slices, got %d", o, dims[o.Axis()], axis.Len())
		}
		wa, ha := o.PlaneAxes()
		for s, sl := range axis.Slices {
			if sl.Width != dims[wa] || sl.Height != dims[ha] {
				t.Fatalf("%v: expected %dx%d slice, got %dx%d", o, dims[wa], dims[ha], sl.Width, sl.Height)
			}
			if sl.WidthSpacing != v.Spacing[wa] || sl.HeightSpacing != v.Spacing[ha] {
				t.Errorf("%v: wrong spacing %g x %g", o, sl.WidthSpacing, sl.HeightSpacing)
			}
			var ijk [3]int
			ijk[o.Axis()] = s
			for r := 0; r < sl.Height; r++ {
				for c := 0; c < sl.Width; c++ {
					ijk[wa], ijk[ha] = c, r
					want := v.normalize()[v.voxel(ijk)]
					if got := sl.Data[r*sl.Width+c]; got != want {
						t.Fatalf("%v slice %d pixel (%d, %d): expected %d, got %d", o, s, c, r, want, got)
					}
				}
			}
		}
	}
}

// TestSliceMatrices checks that a pixel centre maps to the voxel centre in
// both index and world space.
func TestSliceMatrices(t *testing.T) {
	v := createRamp(t, [3]int{4, 5, 6}, [3]float64{0.5, 2, 3})

	for _, o := range orientation.All {
		wa, ha := o.PlaneAxes()
		sl := v.Axes[o].Slices[2]
		c, r := 1, 3
		xy := mat.NewVecDense(4, []float64{
			sl.WMin() + (float64(c)+0.5)*sl.WidthSpacing,
			sl.HMin() + (float64(r)+0.5)*sl.HeightSpacing,
			sl.Z(),
			1,
		})

		var ijk, ras mat.VecDense
		ijk.MulVec(sl.XYToIJK, xy)
		ras.MulVec(sl.XYToRAS, xy)

		var want [3]float64
		want[wa], want[ha], want[o.Axis()] = float64(c)+0.5, float64(r)+0.5, 2.5
		got := []float64{ijk.AtVec(0), ijk.AtVec(1), ijk.AtVec(2)}
		if !floats.EqualApprox(got, want[:], 1e-9) {
			t.Errorf("%v: expected ijk %v, got %v", o, want, got)
		}

		origin := []float64{v.Origin.X, v.Origin.Y, v.Origin.Z}
		wantRAS := make([]float64, 3)
		for a := range wantRAS {
			wantRAS[a] = origin[a] + (want[a]-0.5)*v.Spacing[a]
		}
		gotRAS := []float64{ras.AtVec(0), ras.AtVec(1), ras.AtVec(2)}
		if !floats.EqualApprox(gotRAS, wantRAS, 1e-9) {
			t.Errorf("%v: expected ras %v, got %v", o, wantRAS, gotRAS)
		}

		p := r3.Vec{X: gotRAS[0], Y: gotRAS[1], Z: gotRAS[2]}
		if d := v.Axes[o].Distance(p) / v.Axes[o].Spacing; !scalar.EqualWithinAbs(d, 2, 1e-9) {
			t.Errorf("%v: expected plane distance of 2 slices, got %g", o, d)
		}
	}
}

func TestNavigation(t *testing.T) {
	v := createRamp(t, [3]int{4, 5, 6}, [3]float64{})

	v.SetIndex([3]int{-3, 1, 99})
	if v.Index != [3]int{0, 1, 5} {
		t.Errorf("Expected clamped index [0 1 5], got %v", v.Index)
	}

	v.Scroll(orientation.Axial, true)
	if v.Index[2] != 5 {
		t.Errorf("Expected scroll to stop at the last slice, got %d", v.Index[2])
	}
	v.Scroll(orientation.Axial, false)
	v.Scroll(orientation.Coronal, true)
	if v.Index != [3]int{0, 2, 4} {
		t.Errorf("Expected [0 2 4], got %v", v.Index)
	}

	sl, idx := v.ActiveSlice(orientation.Coronal)
	if sl == nil || idx != 2 || sl.Index != 2 {
		t.Errorf("Expected coronal slice 2, got %v (%d)", sl, idx)
	}
	v.Index[0] = 17
	if sl, _ := v.ActiveSlice(orientation.Sagittal); sl != nil {
		t.Error("Expected no slice for an out of range index")
	}
}

func TestValueAndLabelLookup(t *testing.T) {
	v := createRamp(t, [3]int{4, 5, 6}, [3]float64{})
	val, err := v.ValueAt([3]int{1, 2, 3})
	if err != nil {
		t.Fatalf("ValueAt failed: %v", err)
	}
	if val != float64(3*20+2*4+1) {
		t.Errorf("Expected %d, got %g", 3*20+2*4+1, val)
	}
	if _, err := v.ValueAt([3]int{4, 0, 0}); !errors.Is(err, ErrIndexRange) {
		t.Errorf("Expected ErrIndexRange, got %v", err)
	}
	if _, err := v.LabelAt([3]int{0, 0, 0}); err == nil {
		t.Error("Expected error for a volume without labelmap")
	}
}

func TestAdjustWindowLevel(t *testing.T) {
	v := createRamp(t, [3]int{10, 10, 10}, [3]float64{})
	v.WindowLow, v.WindowHigh = 400, 600

	v.AdjustWindowLevel(1, 0)
	if v.WindowLow != 387 || v.WindowHigh != 615 {
		t.Errorf("Expected window [387, 615], got [%g, %g]", v.WindowLow, v.WindowHigh)
	}

	v.WindowLow, v.WindowHigh = 0, 999
	for i := 0; i < 20; i++ {
		v.AdjustWindowLevel(1, 0)
	}
	if v.WindowLow < v.Min || v.WindowHigh > v.Max {
		t.Errorf("Expected window clamped to [%g, %g], got [%g, %g]", v.Min, v.Max, v.WindowLow, v.WindowHigh)
	}

	v.ResetWindow()
	if v.WindowLow != 0 || v.WindowHigh != 999 {
		t.Errorf("Expected reset window [0, 999], got [%g, %g]", v.WindowLow, v.WindowHigh)
	}
}

func TestAutoWindow(t *testing.T) {
	v := createRamp(t, [3]int{10, 10, 10}, [3]float64{})
	if err := v.AutoWindow(0.1, 0.9); err != nil {
		t.Fatalf("AutoWindow failed: %v", err)
	}
	if v.WindowLow < 90 || v.WindowLow > 110 || v.WindowHigh < 890 || v.WindowHigh > 910 {
		t.Errorf("Expected window near [100, 900], got [%g, %g]", v.WindowLow, v.WindowHigh)
	}
	if err := v.AutoWindow(0.9, 0.1); err == nil {
		t.Error("Expected error for inverted quantiles")
	}

	mean, std := v.Stats()
	if !scalar.EqualWithinAbs(mean, 499.5, 1e-9) || std <= 0 {
		t.Errorf("Unexpected stats mean=%g std=%g", mean, std)
	}
}

func TestFromImages(t *testing.T) {
	images := make([]image.Image, 3)
	for z := range images {
		img := image.NewGray16(image.Rect(0, 0, 4, 2))
		for y := 0; y < 2; y++ {
			for x := 0; x < 4; x++ {
				img.SetGray16(x, y, color.Gray16{Y: uint16(z * 20000)})
			}
		}
		images[z] = img
	}

	v, err := FromImages(images, Params{NumCores: 2})
	if err != nil {
		t.Fatalf("FromImages failed: %v", err)
	}
	if v.Dimensions != [3]int{4, 2, 3} {
		t.Errorf("Expected dimensions [4 2 3], got %v", v.Dimensions)
	}
	val, _ := v.ValueAt([3]int{3, 1, 2})
	if !scalar.EqualWithinAbs(val, 40000.0/65535.0, 1e-9) {
		t.Errorf("Expected %g, got %g", 40000.0/65535.0, val)
	}

	images[1] = image.NewGray16(image.Rect(0, 0, 3, 2))
	if _, err := FromImages(images, Params{}); !errors.Is(err, ErrDimensions) {
		t.Errorf("Expected ErrDimensions for mixed sizes, got %v", err)
	}
}

func TestPhantomLabels(t *testing.T) {
	v, err := Phantom(Params{Dimensions: [3]int{20, 18, 16}, Spacing: [3]float64{1, 1, 2}})
	if err != nil {
		t.Fatalf("Phantom failed: %v", err)
	}
	if v.Labelmap == nil {
		t.Fatal("Expected a labelmap")
	}
	id, err := v.LabelAt([3]int{9, 10, 8})
	if err != nil {
		t.Fatalf("LabelAt failed: %v", err)
	}
	if id != PhantomCore {
		t.Errorf("Expected core label at the sphere centre, got %d", id)
	}
	if v.Labelmap.Name(PhantomShell) != "shell" || v.Labelmap.Name(42) != "label 42" {
		t.Error("Unexpected label names")
	}

	sl, _ := v.ActiveSlice(orientation.Axial)
	if len(sl.Label) != 4*sl.Width*sl.Height {
		t.Errorf("Expected %d label bytes, got %d", 4*sl.Width*sl.Height, len(sl.Label))
	}

	if err := v.Labelmap.ShowOnly(PhantomShell); err != nil {
		t.Fatalf("ShowOnly failed: %v", err)
	}
	if c, ok := v.Labelmap.Filter(); !ok || c.G != 200 {
		t.Errorf("Expected shell filter, got %v %v", c, ok)
	}
	if err := v.Labelmap.ShowOnly(99); err == nil {
		t.Error("Expected error for unknown label")
	}
	v.Labelmap.ShowAll()
	if _, ok := v.Labelmap.Filter(); ok {
		t.Error("Expected no filter after ShowAll")
	}
}
