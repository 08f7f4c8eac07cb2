package visualization

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"sliceview/pkg/orientation"
	"sliceview/pkg/volume"
)

// createTestVolume builds a volume whose value grows along Z
func createTestVolume(t *testing.T) *volume.Volume {
	t.Helper()
	width, height, depth := 10, 8, 5
	data := make([]float64, width*height*depth)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[z*width*height+y*width+x] = float64(z) / float64(depth-1)
			}
		}
	}
	v, err := volume.New(data, volume.Params{Dimensions: [3]int{width, height, depth}, NumCores: 2})
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	return v
}

// TestNewViewer verifies parameter checks and the initial fit
func TestNewViewer(t *testing.T) {
	v := createTestVolume(t)

	if _, err := NewViewer(v, orientation.Axial, 0, 10, "png"); err == nil {
		t.Error("Expected error for empty frame")
	}
	if _, err := NewViewer(v, orientation.Axial, 10, 10, "gif"); err == nil {
		t.Error("Expected error for unknown format")
	}
	if _, err := NewViewer(v, orientation.Orientation(7), 10, 10, "png"); !errors.Is(err, orientation.ErrInvalidOrientation) {
		t.Errorf("Expected ErrInvalidOrientation, got %v", err)
	}

	viewer, err := NewViewer(v, orientation.Axial, 100, 40, "PNG")
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}
	// 10x8 slice in a 100x40 frame
	if s := viewer.Camera().View().Scale; s != 5 {
		t.Errorf("Expected scale 5, got %g", s)
	}
	if viewer.Renderer().Orientation() != orientation.Axial {
		t.Errorf("Expected axial renderer, got %v", viewer.Renderer().Orientation())
	}
}

// TestRenderSlice verifies frame size, background and slice content
func TestRenderSlice(t *testing.T) {
	v := createTestVolume(t)
	viewer, err := NewViewer(v, orientation.Axial, 100, 40, "png")
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	for z := 0; z < 5; z++ {
		img, err := viewer.RenderSlice(z)
		if err != nil {
			t.Fatalf("Failed to render slice %d: %v", z, err)
		}
		if img.Bounds() != image.Rect(0, 0, 100, 40) {
			t.Fatalf("Expected 100x40 frame, got %v", img.Bounds())
		}
		if v.Index[2] != z {
			t.Errorf("Expected axial index %d, got %d", z, v.Index[2])
		}

		// the slice covers x 25-75, so the left edge is background
		if bg := img.RGBAAt(2, 20); bg != (color.RGBA{A: 255}) {
			t.Errorf("Expected black background, got %v", bg)
		}
		want := 255 * z / 4
		if px := img.RGBAAt(50, 20); int(px.R) < want-1 || int(px.R) > want+1 || px.A != 255 {
			t.Errorf("Slice %d: expected gray %d, got %v", z, want, px)
		}
	}

	if _, err := viewer.RenderSlice(5); !errors.Is(err, volume.ErrIndexRange) {
		t.Errorf("Expected ErrIndexRange, got %v", err)
	}
	if _, err := viewer.RenderSlice(-1); err == nil {
		t.Error("Expected error for negative position")
	}
}

// TestSaveSlice verifies PNG and JPEG encoding
func TestSaveSlice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "viewer_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	viewer, err := NewViewer(createTestVolume(t), orientation.Coronal, 32, 24, "png")
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}
	img := viewer.Render()

	pngFile := filepath.Join(tempDir, "frame.png")
	if err := viewer.SaveSlice(img, pngFile); err != nil {
		t.Fatalf("Failed to save PNG: %v", err)
	}
	f, err := os.Open(pngFile)
	if err != nil {
		t.Fatalf("Failed to open PNG: %v", err)
	}
	decoded, err := png.Decode(f)
	f.Close()
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("Expected bounds %v, got %v", img.Bounds(), decoded.Bounds())
	}

	jpgFile := filepath.Join(tempDir, "frame.jpg")
	if err := viewer.SaveSlice(img, jpgFile); err != nil {
		t.Fatalf("Failed to save JPEG: %v", err)
	}
	f, err = os.Open(jpgFile)
	if err != nil {
		t.Fatalf("Failed to open JPEG: %v", err)
	}
	if _, err := jpeg.Decode(f); err != nil {
		t.Errorf("Failed to decode JPEG: %v", err)
	}
	f.Close()

	if err := viewer.SaveSlice(img, filepath.Join(tempDir, "frame.bmp")); err == nil {
		t.Error("Expected error for unsupported extension")
	}
}

// TestSaveSliceSequence verifies that every slice is written and the index
// is restored
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "viewer_sequence_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	v := createTestVolume(t)
	before := v.Index

	tests := []struct {
		o     orientation.Orientation
		count int
		first string
	}{
		{orientation.Sagittal, 10, "slice_x_000.jpg"},
		{orientation.Coronal, 8, "slice_y_000.jpg"},
		{orientation.Axial, 5, "slice_z_000.jpg"},
	}
	for _, tt := range tests {
		viewer, err := NewViewer(v, tt.o, 40, 40, "jpg")
		if err != nil {
			t.Fatalf("Failed to create viewer: %v", err)
		}
		outDir := filepath.Join(tempDir, tt.o.Letter())
		files, err := viewer.SaveSliceSequence(outDir)
		if err != nil {
			t.Fatalf("Failed to save %v sequence: %v", tt.o, err)
		}
		if len(files) != tt.count {
			t.Errorf("%v: expected %d files, got %d", tt.o, tt.count, len(files))
		}
		if _, err := os.Stat(filepath.Join(outDir, tt.first)); err != nil {
			t.Errorf("%v: expected %s: %v", tt.o, tt.first, err)
		}
		if v.Index != before {
			t.Errorf("%v: expected index %v restored, got %v", tt.o, before, v.Index)
		}
	}
}
