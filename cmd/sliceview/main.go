package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sliceview/pkg/config"
	"sliceview/pkg/orientation"
	"sliceview/pkg/render"
	"sliceview/pkg/visualization"
	"sliceview/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "sliceview.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	outputDir := flag.String("output", "", "Directory for rendered frames (overrides config)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (overrides config)")
	format := flag.String("format", "", "Frame format, jpg or png (overrides config)")
	sequence := flag.Bool("sequence", false, "Save every slice of each orientation instead of the current one")
	probe := flag.String("probe", "", "Canvas point \"x,y\" to probe on the first orientation")
	verbose := flag.Bool("verbose", false, "Log renderer activity")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *format != "" {
		cfg.Output.Format = strings.ToLower(*format)
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	render.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var probeX, probeY int
	hasProbe := *probe != ""
	if hasProbe {
		probeX, probeY, err = parsePoint(*probe)
		if err != nil {
			log.Fatalf("Invalid probe point: %v", err)
		}
	}

	fmt.Println("================================")
	fmt.Println("SLICE VIEW: COMPOSITED ORTHOGONAL SLICES OF A VOLUME")
	fmt.Println("================================")

	startTime := time.Now()
	v, err := volume.Phantom(volume.Params{
		Dimensions: cfg.Volume.Dimensions,
		Spacing:    cfg.Volume.Spacing,
		NumCores:   cfg.Processing.NumCores,
	})
	if err != nil {
		log.Fatalf("Failed to build volume: %v", err)
	}
	if err := applyDisplay(cfg, v); err != nil {
		log.Fatalf("Failed to apply display settings: %v", err)
	}
	fmt.Printf("Volume %dx%dx%d built in %.2f seconds\n",
		v.Dimensions[0], v.Dimensions[1], v.Dimensions[2], time.Since(startTime).Seconds())

	mean, std := v.Stats()
	fmt.Printf("\nScalar statistics:\n")
	fmt.Printf("- Range: [%.3f, %.3f]\n", v.Min, v.Max)
	fmt.Printf("- Mean: %.3f, standard deviation: %.3f\n", mean, std)
	fmt.Printf("- Thresholds: [%.3f, %.3f]\n", v.LowerThreshold, v.UpperThreshold)
	fmt.Printf("- Window: [%.3f, %.3f]\n\n", v.WindowLow, v.WindowHigh)

	orients, err := cfg.Orientations()
	if err != nil {
		log.Fatalf("Invalid orientations: %v", err)
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	for i, o := range orients {
		viewer, err := visualization.NewViewer(v, o, cfg.Render.Width, cfg.Render.Height, cfg.Output.Format)
		if err != nil {
			log.Fatalf("Failed to create %s viewer: %v", o, err)
		}
		if cfg.Overlay.Enabled {
			markers, err := shellMarkers(cfg, v, o)
			if err != nil {
				log.Fatalf("Failed to build markers: %v", err)
			}
			viewer.Renderer().SetMarkers(markers)
		}

		// the probe moves the shared index before any frame is saved
		var frame *image.RGBA
		if i == 0 && hasProbe {
			frame = viewer.Render()
			m, ok := placePoint(viewer, v, frame, probeX, probeY, cfg.Render.Navigators)
			if ok {
				fmt.Printf("Probe (%d, %d) on %s: voxel %v, RAS (%.2f, %.2f, %.2f)\n",
					probeX, probeY, o, m.Local, m.World.X, m.World.Y, m.World.Z)
			} else {
				fmt.Printf("Probe (%d, %d) on %s is outside the slice\n", probeX, probeY, o)
			}
		}

		if *sequence {
			dir := filepath.Join(cfg.Output.Dir, o.String())
			fmt.Printf("Saving %s slices to: %s\n", o, dir)
			files, err := viewer.SaveSliceSequence(dir)
			if err != nil {
				log.Printf("Warning: Failed to save %s slices: %v", o, err)
				continue
			}
			fmt.Printf("- %d frames written\n", len(files))
			continue
		}
		if frame == nil {
			frame = viewer.Render()
		}

		filename := filepath.Join(cfg.Output.Dir, fmt.Sprintf("%s.%s", o, cfg.Output.Format))
		if err := viewer.SaveSlice(frame, filename); err != nil {
			log.Fatalf("Failed to save %s frame: %v", o, err)
		}
		fmt.Printf("Saved %s slice %d to: %s\n", o, v.Index[o.Axis()], filename)
	}

	fmt.Printf("\nCompleted in %.2f seconds\n", time.Since(startTime).Seconds())
}

// applyDisplay sets colors, thresholds, window and label opacity from cfg
func applyDisplay(cfg *config.Config, v *volume.Volume) error {
	for _, c := range []struct {
		hex string
		dst *[3]float64
	}{
		{cfg.Render.MinColor, &v.MinColor},
		{cfg.Render.MaxColor, &v.MaxColor},
	} {
		rgb, err := render.ParseHexColor(c.hex)
		if err != nil {
			return err
		}
		*c.dst = [3]float64{float64(rgb.R) / 255, float64(rgb.G) / 255, float64(rgb.B) / 255}
	}

	span := v.Max - v.Min
	v.LowerThreshold = v.Min + cfg.Volume.LowerThreshold*span
	v.UpperThreshold = v.Min + cfg.Volume.UpperThreshold*span

	q := cfg.Volume.WindowQuantiles
	if err := v.AutoWindow(q[0], q[1]); err != nil {
		return err
	}

	if v.Labelmap != nil {
		v.Labelmap.Opacity = cfg.Render.LabelOpacity
		v.Labelmap.Visible = cfg.Render.LabelOpacity > 0
	}
	return nil
}

// shellMarkers places a marker on every fourth row of each slice where the
// phantom's shell meets the background, valued by the scalar there. Volumes
// without labels get an empty overlay.
func shellMarkers(cfg *config.Config, v *volume.Volume, o orientation.Orientation) (*render.MarkerOverlay, error) {
	from, err := render.ParseHexColor(cfg.Overlay.GradientStart)
	if err != nil {
		return nil, err
	}
	to, err := render.ParseHexColor(cfg.Overlay.GradientEnd)
	if err != nil {
		return nil, err
	}
	palette := render.GradientPalette(from, to, cfg.Overlay.Steps)
	overlay := render.NewMarkerOverlay(palette, cfg.Overlay.ValueScale, cfg.Overlay.Radius)
	if v.Labelmap == nil {
		return overlay, nil
	}

	wa, ha := o.PlaneAxes()
	na := o.Axis()
	span := v.Max - v.Min
	for s := 0; s < v.Dimensions[na]; s++ {
		var markers []render.Marker
		var ijk [3]int
		ijk[na] = s
		for r := 0; r < v.Dimensions[ha]; r += 4 {
			ijk[ha] = r
			prev := 0
			for c := 0; c < v.Dimensions[wa]; c++ {
				ijk[wa] = c
				id, err := v.LabelAt(ijk)
				if err != nil {
					return nil, err
				}
				if id == volume.PhantomShell && prev == 0 {
					value, err := v.ValueAt(ijk)
					if err != nil {
						return nil, err
					}
					if span > 0 {
						value = (value - v.Min) / span
					}
					markers = append(markers, render.Marker{Col: c, Row: r, Value: value})
				}
				prev = id
			}
		}
		if len(markers) > 0 {
			overlay.Set(s, markers)
		}
	}
	return overlay, nil
}

// placePoint maps canvas point (x, y) of a rendered frame to the volume and
// moves every plane through it. With navigators the crosshair is drawn on
// frame. It reports false and leaves the index alone when the point is off
// the slice.
func placePoint(viewer *visualization.Viewer, v *volume.Volume, frame draw.Image, x, y int, navigators bool) (render.Mapping, bool) {
	var m render.Mapping
	var ok bool
	if navigators {
		m, ok = viewer.Renderer().DrawNavigator(frame, x, y)
	} else {
		m, ok = viewer.Renderer().MapScreenToVolume(float64(x), float64(y))
	}
	if ok {
		v.SetIndex(m.Index)
	}
	return m, ok
}

// parsePoint parses "x,y"
func parsePoint(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y: %w", err)
	}
	return x, y, nil
}
