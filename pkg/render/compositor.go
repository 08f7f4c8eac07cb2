package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"sliceview/pkg/volume"
)

// Snapshot is the display state the cached buffers were computed from. The
// buffers are valid exactly when the stored snapshot equals the current one.
type Snapshot struct {
	Slice          int
	LowerThreshold float64
	UpperThreshold float64
	WindowLow      float64
	WindowHigh     float64

	// LabelFilter is the show-only color, meaningful when Filtered is set
	LabelFilter color.NRGBA
	Filtered    bool
}

// snapshot reads the current display state of the volume.
func (r *Renderer) snapshot(slice int) Snapshot {
	v := r.vol
	s := Snapshot{
		Slice:          slice,
		LowerThreshold: v.LowerThreshold,
		UpperThreshold: v.UpperThreshold,
		WindowLow:      v.WindowLow,
		WindowHigh:     v.WindowHigh,
	}
	if v.Labelmap != nil {
		s.LabelFilter, s.Filtered = v.Labelmap.Filter()
	}
	return s
}

// ensureFresh brings the buffers up to date with the active slice and
// returns it, or returns nil when there is nothing to draw.
func (r *Renderer) ensureFresh() *volume.Slice {
	if r.vol == nil {
		return nil
	}
	sl, idx := r.vol.ActiveSlice(r.orient)
	if sl == nil {
		Logger().Warn("slice index outside stack",
			"orientation", r.orient, "index", idx)
		return nil
	}

	if r.image == nil || r.image.Rect.Dx() != sl.Width || r.image.Rect.Dy() != sl.Height {
		bounds := image.Rect(0, 0, sl.Width, sl.Height)
		r.image = image.NewNRGBA(bounds)
		r.label = image.NewNRGBA(bounds)
		r.Invalidate()
		Logger().Info("slice buffers allocated",
			"orientation", r.orient, "width", sl.Width, "height", sl.Height)
	}

	snap := r.snapshot(idx)
	if snap == r.last {
		return sl
	}
	r.composite(sl, snap)
	r.last = snap
	return sl
}

// shader turns normalized slice bytes into display colors.
type shader struct {
	min, max     float64
	span         float64
	lower, upper float64
	windowLow    float64
	window       float64
	minColor     [3]float64
	maxColor     [3]float64
	filter       color.NRGBA
	filtered     bool
}

func newShader(v *volume.Volume, snap Snapshot) shader {
	return shader{
		min:       v.Min,
		max:       v.Max,
		span:      v.Max - v.Min,
		lower:     snap.LowerThreshold,
		upper:     snap.UpperThreshold,
		windowLow: snap.WindowLow,
		window:    snap.WindowHigh - snap.WindowLow,
		minColor:  v.MinColor,
		maxColor:  v.MaxColor,
		filter:    snap.LabelFilter,
		filtered:  snap.Filtered,
	}
}

// intensity undoes the 0-255 normalization. The ends map to the exact scalar
// range so default thresholds keep the extreme voxels; multiplying first
// keeps whole intensities exact.
func (s *shader) intensity(raw uint8) float64 {
	switch raw {
	case 0:
		return s.min
	case 255:
		return s.max
	}
	return float64(raw)*s.span/255 + s.min
}

// windowed maps an intensity through the window onto 0-255. An empty window
// is a step at its low end.
func (s *shader) windowed(intensity float64) float64 {
	if s.window <= 0 {
		if intensity < s.windowLow {
			return 0
		}
		return 255
	}
	level := s.windowLow + s.window/2
	switch {
	case intensity < level-s.window/2:
		return 0
	case intensity > level+s.window/2:
		return 255
	}
	return 255 * (intensity - (level - s.window/2)) / s.window
}

// inside reports whether an intensity passes the threshold gate. Both bounds
// are inclusive.
func (s *shader) inside(intensity float64) bool {
	return intensity >= s.lower && intensity <= s.upper
}

// color blends the gray ramp endpoints by the windowed intensity.
func (s *shader) color(raw uint8) (color.NRGBA, bool) {
	in := s.intensity(raw)
	if !s.inside(in) {
		return color.NRGBA{}, false
	}
	w := s.windowed(in)
	var rgb [3]uint8
	for ch := range rgb {
		rgb[ch] = uint8(math.Floor(s.maxColor[ch]*w + s.minColor[ch]*(255-w)))
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, true
}

// label returns the label color to show for a label pixel.
func (s *shader) label(px []uint8) color.NRGBA {
	c := color.NRGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
	if s.filtered && c != s.filter {
		return color.NRGBA{}
	}
	return c
}

// composite recomputes both buffers for sl. The buffers must already have
// the slice size.
func (r *Renderer) composite(sl *volume.Slice, snap Snapshot) {
	w, h := sl.Width, sl.Height
	if len(sl.Data) != w*h {
		panic(fmt.Sprintf("render: slice %d has %d scalars for %dx%d pixels", sl.Index, len(sl.Data), w, h))
	}
	labels := sl.Label
	if r.vol.Labelmap == nil {
		labels = nil
	}
	if labels != nil && len(labels) != 4*w*h {
		panic(fmt.Sprintf("render: slice %d has %d label bytes for %dx%d pixels", sl.Index, len(labels), w, h))
	}

	sh := newShader(r.vol, snap)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := row*w + col
			px, ok := sh.color(sl.Data[i])
			var lb color.NRGBA
			if ok && labels != nil {
				lb = sh.label(labels[4*i : 4*i+4])
			}

			bc, br := r.layout.BufferPixel(col, row, w, h)
			r.image.SetNRGBA(bc, br, px)
			r.label.SetNRGBA(bc, br, lb)
		}
	}

	r.drawMarkers(sl, snap.Slice)
	r.recomputes++
	Logger().Debug("slice buffers recomputed",
		"orientation", r.orient, "slice", snap.Slice, "pixels", w*h)
}
