// Package visualization exports rendered slices of a volume as image files.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"sliceview/pkg/camera"
	"sliceview/pkg/orientation"
	"sliceview/pkg/render"
	"sliceview/pkg/volume"
)

// Viewer renders the slices of one orientation onto fixed size frames
type Viewer struct {
	vol      *volume.Volume
	renderer *render.Renderer
	cam      *camera.Camera

	width  int
	height int
	format string

	// Background fills the frame behind the slice
	Background color.Color
}

// NewViewer creates a viewer for orientation o of v. The camera starts
// centred with the slice fitted to the frame. Format is jpg or png.
func NewViewer(v *volume.Volume, o orientation.Orientation, width, height int, format string) (*Viewer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	format = strings.ToLower(format)
	if format != "jpg" && format != "png" {
		return nil, fmt.Errorf("invalid format: %s (must be jpg or png)", format)
	}

	cam := camera.New()
	r, err := render.New(o, cam)
	if err != nil {
		return nil, err
	}
	r.Attach(v)
	r.Resize(width, height)
	if s := r.AutoScale(); s > 0 {
		cam.SetScale(s)
	}

	return &Viewer{
		vol:        v,
		renderer:   r,
		cam:        cam,
		width:      width,
		height:     height,
		format:     format,
		Background: color.Black,
	}, nil
}

// Renderer returns the renderer behind the viewer
func (v *Viewer) Renderer() *render.Renderer {
	return v.renderer
}

// Camera returns the camera behind the viewer
func (v *Viewer) Camera() *camera.Camera {
	return v.cam
}

// Render draws the current slice onto a new frame
func (v *Viewer) Render() *image.RGBA {
	bounds := image.Rect(0, 0, v.width, v.height)
	layer := image.NewRGBA(bounds)
	v.renderer.Render(layer)

	frame := image.NewRGBA(bounds)
	draw.Draw(frame, bounds, image.NewUniform(v.Background), image.Point{}, draw.Src)
	draw.Draw(frame, bounds, layer, image.Point{}, draw.Over)
	return frame
}

// RenderSlice moves the viewer's orientation to position and renders it.
// The volume keeps the new index.
func (v *Viewer) RenderSlice(position int) (*image.RGBA, error) {
	o := v.renderer.Orientation()
	axis := o.Axis()
	if position < 0 || position >= v.vol.Dimensions[axis] {
		return nil, fmt.Errorf("%w: %s position %d outside [0, %d)",
			volume.ErrIndexRange, o, position, v.vol.Dimensions[axis])
	}

	idx := v.vol.Index
	idx[axis] = position
	v.vol.SetIndex(idx)
	return v.Render(), nil
}

// SaveSlice saves a frame as JPEG or PNG, chosen by the file extension
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return png.Encode(file, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return fmt.Errorf("unsupported image extension: %s", filepath.Ext(filename))
	}
}

// SaveSliceSequence renders and saves every slice of the viewer's
// orientation. The volume's slice index is restored afterwards.
func (v *Viewer) SaveSliceSequence(outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	o := v.renderer.Orientation()
	saved := v.vol.Index
	defer v.vol.SetIndex(saved)

	count := v.vol.Dimensions[o.Axis()]
	files := make([]string, 0, count)
	for pos := 0; pos < count; pos++ {
		img, err := v.RenderSlice(pos)
		if err != nil {
			return files, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", strings.ToLower(o.Letter()), pos, v.format))
		if err := v.SaveSlice(img, filename); err != nil {
			return files, err
		}
		files = append(files, filename)
	}

	return files, nil
}
