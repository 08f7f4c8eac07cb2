// Package render draws one orientation of a volume into a 2D canvas and maps
// canvas pixels back to volume and world coordinates.
//
// A Renderer keeps an off-screen image buffer and label buffer for the
// current slice. Each frame it compares a Snapshot of the display state with
// the one the buffers were built from and only recomputes pixels when they
// differ; the buffers are then drawn with the camera's pan and zoom.
//
// A Renderer is not safe for concurrent use. Several renderers may share one
// volume as long as frames are rendered from one goroutine.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"sliceview/pkg/camera"
	"sliceview/pkg/orientation"
	"sliceview/pkg/volume"
)

// ViewSource supplies the pan/zoom transform for each frame.
type ViewSource interface {
	View() camera.View
}

// Renderer draws slices of one orientation.
type Renderer struct {
	orient orientation.Orientation
	layout orientation.Layout

	vol      *volume.Volume
	cam      ViewSource
	viewport image.Rectangle

	image *image.NRGBA
	label *image.NRGBA
	last  Snapshot

	markers *MarkerOverlay

	// number of full pixel passes, for tests
	recomputes int
}

// New returns a renderer for orientation o viewed through cam.
func New(o orientation.Orientation, cam ViewSource) (*Renderer, error) {
	if cam == nil {
		return nil, errors.New("render: nil camera")
	}
	r := &Renderer{cam: cam}
	if err := r.SetOrientation(o); err != nil {
		return nil, err
	}
	return r, nil
}

// Orientation returns the plane this renderer shows.
func (r *Renderer) Orientation() orientation.Orientation {
	return r.orient
}

// SetOrientation switches the plane and drops the cached buffers.
func (r *Renderer) SetOrientation(o orientation.Orientation) error {
	if !o.Valid() {
		return fmt.Errorf("render: %w: %d", orientation.ErrInvalidOrientation, int(o))
	}
	r.orient = o
	r.layout = o.Layout()
	r.Invalidate()
	return nil
}

// Attach sets the volume to draw; nil detaches.
func (r *Renderer) Attach(v *volume.Volume) {
	r.vol = v
	r.Invalidate()
}

// Volume returns the attached volume.
func (r *Renderer) Volume() *volume.Volume {
	return r.vol
}

// SetMarkers installs a marker overlay (nil removes it). Call it again after
// changing the overlay so the buffers are rebuilt.
func (r *Renderer) SetMarkers(m *MarkerOverlay) {
	r.markers = m
	r.Invalidate()
}

// Invalidate forces a full recomputation on the next frame.
func (r *Renderer) Invalidate() {
	r.last = Snapshot{Slice: -1}
}

// Resize sets the viewport used by coordinate queries before the next
// Render call.
func (r *Renderer) Resize(width, height int) {
	r.viewport = image.Rect(0, 0, width, height)
}

// Viewport returns the canvas rectangle of the last frame.
func (r *Renderer) Viewport() image.Rectangle {
	return r.viewport
}

// Render draws the current slice into dst. The bounds of dst become the
// viewport. Without a volume or active slice dst is only cleared.
func (r *Renderer) Render(dst draw.Image) {
	r.viewport = dst.Bounds()
	draw.Draw(dst, r.viewport, image.Transparent, image.Point{}, draw.Src)

	sl := r.ensureFresh()
	if sl == nil {
		return
	}
	r.blit(dst, sl, r.cam.View())
}

// blit draws the image buffer and, when the labelmap is shown, the label
// buffer on top of it.
func (r *Renderer) blit(dst draw.Image, sl *volume.Slice, view camera.View) {
	m := toAff3(r.bufferToScreen(sl, r.viewport, view))
	draw.NearestNeighbor.Transform(dst, m, r.image, r.image.Bounds(), draw.Over, nil)

	lm := r.vol.Labelmap
	if lm == nil || !lm.Visible || sl.Label == nil || lm.Opacity <= 0 {
		return
	}
	var opts *draw.Options
	if lm.Opacity < 1 {
		opts = &draw.Options{
			SrcMask: image.NewUniform(color.Alpha16{A: uint16(lm.Opacity * 0xffff)}),
		}
	}
	draw.NearestNeighbor.Transform(dst, m, r.label, r.label.Bounds(), draw.Over, opts)
}

// AutoScale returns the zoom that fits the current slice into the viewport.
// It returns 0 without an active slice.
func (r *Renderer) AutoScale() float64 {
	if r.vol == nil {
		return 0
	}
	sl, _ := r.vol.ActiveSlice(r.orient)
	if sl == nil || r.viewport.Empty() {
		return 0
	}
	w := float64(sl.Width) * sl.WidthSpacing
	h := float64(sl.Height) * sl.HeightSpacing
	if r.layout.Rotate {
		w, h = h, w
	}
	return min(float64(r.viewport.Dx())/w, float64(r.viewport.Dy())/h)
}

// ResetView clears pan, fits the slice to the viewport and opens the window
// to the full scalar range.
func (r *Renderer) ResetView(cam *camera.Camera) {
	cam.Reset()
	if s := r.AutoScale(); s > 0 {
		cam.SetScale(s)
	}
	if r.vol != nil {
		r.vol.ResetWindow()
	}
}
