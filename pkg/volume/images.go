package volume

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"
)

// FromImages stacks equally sized 2D images along Z. Intensities are taken
// from the red channel and scaled to 0-1. p.Dimensions is filled in from the
// images.
func FromImages(images []image.Image, p Params) (*Volume, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no images", ErrDimensions)
	}
	bounds := images[0].Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	for i, img := range images {
		if img.Bounds().Dx() != width || img.Bounds().Dy() != height {
			return nil, fmt.Errorf("%w: image %d is %dx%d, expected %dx%d",
				ErrDimensions, i, img.Bounds().Dx(), img.Bounds().Dy(), width, height)
		}
	}

	p.Dimensions = [3]int{width, height, len(images)}
	size := width * height
	data := make([]float64, size*len(images))

	numCores := p.NumCores
	if numCores <= 0 {
		numCores = runtime.NumCPU()
	}
	perCore := (len(images) + numCores - 1) / numCores

	var wg sync.WaitGroup
	for c := 0; c < numCores; c++ {
		start := c * perCore
		end := start + perCore
		if end > len(images) {
			end = len(images)
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				img := images[i]
				origin := img.Bounds().Min
				for y := 0; y < height; y++ {
					for x := 0; x < width; x++ {
						r, _, _, _ := img.At(origin.X+x, origin.Y+y).RGBA()
						// 16-bit channel to 0-1
						data[i*size+y*width+x] = float64(r) / 65535.0
					}
				}
			}
		}(start, end)
	}
	wg.Wait()

	return New(data, p)
}

// Phantom labels
const (
	PhantomCore  = 1
	PhantomShell = 2
)

// Phantom builds a synthetic head-like test volume: a bright sphere with a
// smooth falloff, a labelled core and a labelled shell. The sphere is
// shifted off centre so that flips are visible. Any labelmap in p is
// replaced by the phantom's own.
func Phantom(p Params) (*Volume, error) {
	dims := p.Dimensions
	for a, n := range dims {
		if n <= 0 {
			return nil, fmt.Errorf("%w: axis %d has size %d", ErrDimensions, a, n)
		}
	}
	images := make([]image.Image, dims[2])
	ids := make([]int, dims[0]*dims[1]*dims[2])

	cx := float64(dims[0]) * 0.45
	cy := float64(dims[1]) * 0.55
	cz := float64(dims[2]) * 0.5
	radius := math.Min(float64(dims[0]), math.Min(float64(dims[1]), float64(dims[2]))) / 3

	for z := 0; z < dims[2]; z++ {
		img := image.NewGray16(image.Rect(0, 0, dims[0], dims[1]))
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				dx := float64(x) - cx
				dy := float64(y) - cy
				dz := float64(z) - cz
				dist := math.Sqrt(dx*dx + dy*dy + dz*dz)

				// inside: high values, smooth edge, faint gradient background
				value := 1.0 / (1.0 + math.Exp(2*(dist-radius)))
				value = 0.1*float64(x)/float64(dims[0]) + 0.9*value
				img.SetGray16(x, y, color.Gray16{Y: uint16(value * 65535)})

				idx := z*dims[0]*dims[1] + y*dims[0] + x
				switch {
				case dist < radius*0.5:
					ids[idx] = PhantomCore
				case dist < radius:
					ids[idx] = PhantomShell
				}
			}
		}
		images[z] = img
	}

	labels := NewLabelmap(ids,
		map[int]color.NRGBA{
			PhantomCore:  {R: 255, A: 255},
			PhantomShell: {G: 200, B: 80, A: 255},
		},
		map[int]string{
			PhantomCore:  "core",
			PhantomShell: "shell",
		})

	p.Labels = labels
	return FromImages(images, p)
}
