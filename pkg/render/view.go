package render

import (
	"image"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"

	"sliceview/pkg/camera"
	"sliceview/pkg/volume"
)

func translation(x, y float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, x,
		0, 1, y,
		0, 0, 1,
	})
}

func scaling(sx, sy float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		sx, 0, 0,
		0, sy, 0,
		0, 0, 1,
	})
}

// quarterTurn rotates by 90 degrees clockwise on a y-down canvas.
var quarterTurn = mat.NewDense(3, 3, []float64{
	0, -1, 0,
	1, 0, 0,
	0, 0, 1,
})

// bufferToScreen returns the affine map from buffer pixel coordinates to
// canvas coordinates. The slice is sized by its physical spacing, centred,
// turned if the layout says so, panned and finally zoomed about the centre
// of the viewport. Camera pan has y up, the canvas has y down.
//
// The blit draws with this map and the mapper inverts it, so a canvas pixel
// and its query result always refer to the same buffer pixel.
func (r *Renderer) bufferToScreen(sl *volume.Slice, viewport image.Rectangle, view camera.View) *mat.Dense {
	s := view.EffectiveScale()
	cx := float64(viewport.Min.X) + float64(viewport.Dx())/2
	cy := float64(viewport.Min.Y) + float64(viewport.Dy())/2
	w := float64(sl.Width) * sl.WidthSpacing
	h := float64(sl.Height) * sl.HeightSpacing

	factors := []mat.Matrix{
		translation(cx, cy),
		scaling(s, s),
		translation(view.PanX, -view.PanY),
	}
	if r.layout.Rotate {
		factors = append(factors, quarterTurn)
	}
	factors = append(factors,
		translation(-w/2, -h/2),
		scaling(sl.WidthSpacing, sl.HeightSpacing),
	)

	var m mat.Dense
	m.Product(factors...)
	return &m
}

// toAff3 drops the constant last row.
func toAff3(m *mat.Dense) f64.Aff3 {
	return f64.Aff3{
		m.At(0, 0), m.At(0, 1), m.At(0, 2),
		m.At(1, 0), m.At(1, 1), m.At(1, 2),
	}
}
