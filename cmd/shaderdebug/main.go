// Shader debug tool - steps a simulation for N frames and writes the last
// frame to a PNG file for inspection.
//
// Usage: go run ./cmd/shaderdebug -sim metaballs -frames 60 -out debug.png
//
// With -reference the passes run on the CPU reference device instead of
// the GPU, which makes the output comparable with the GL rendering.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math/rand/v2"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/config"
	"github.com/pthm-cable/slimefield/gpu"
	"github.com/pthm-cable/slimefield/gpu/glgpu"
	"github.com/pthm-cable/slimefield/gpu/softgpu"
	"github.com/pthm-cable/slimefield/metaballs"
	"github.com/pthm-cable/slimefield/physarum"
	"github.com/pthm-cable/slimefield/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	simName := flag.String("sim", metaballs.Name, "Simulation to render: physarum or metaballs")
	outPath := flag.String("out", "debug.png", "Output PNG path")
	width := flag.Int("width", 512, "Render width")
	height := flag.Int("height", 512, "Render height")
	frames := flag.Int("frames", 60, "Frames to step before capturing")
	seed := flag.Uint64("seed", 1, "RNG seed")
	reference := flag.Bool("reference", false, "Run the passes on the CPU reference device")
	pressX := flag.Float64("press-x", -1, "Hold the pointer at this normalized x (negative = no pointer)")
	pressY := flag.Float64("press-y", 0.5, "Normalized y of the held pointer")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		fail("failed to load config", err)
	}
	cfg := config.Cfg()

	var dev gpu.Device
	if *reference {
		dev = softgpu.New()
	} else {
		// Initialize raylib with hidden window for the GL context
		rl.SetConfigFlags(rl.FlagWindowHidden)
		rl.InitWindow(int32(*width), int32(*height), "Shader Debug")
		defer rl.CloseWindow()

		gl, err := glgpu.New()
		if err != nil {
			fail("failed to create device", err)
		}
		defer gl.Close()
		dev = gl
	}

	s, err := newSimulation(*simName, dev, cfg, rand.New(rand.NewPCG(*seed, 1)))
	if err != nil {
		fail("failed to create simulation", err)
	}
	defer s.Dispose()

	ok, err := s.Init(*width, *height)
	if err != nil {
		fail("failed to initialize simulation", err)
	}
	if !ok {
		fail("device cannot run the simulation", gpu.ErrUnsupported)
	}

	pointer := mgl32.Vec2{float32(*pressX), float32(*pressY)}
	for range *frames {
		if *pressX >= 0 {
			s.OnPointerEvent(pointer, true)
		}
		if err := s.Step(1000.0 / 60); err != nil {
			fail("step failed", err)
		}
	}

	data, err := dev.Download(s.Frame())
	if err != nil {
		fail("failed to read frame", err)
	}

	// Export through raylib to PNG
	img := rl.NewImageFromImage(toImage(data, *width, *height))
	if !rl.ExportImage(*img, *outPath) {
		fail("failed to export image", fmt.Errorf("writing %s", *outPath))
	}
	fmt.Printf("%s rendered to: %s (%dx%d, %d frames)\n", *simName, *outPath, *width, *height, *frames)
}

func newSimulation(name string, dev gpu.Device, cfg *config.Config, rng *rand.Rand) (sim.Simulation, error) {
	switch name {
	case physarum.Name:
		return physarum.New(dev, cfg.Physarum, rng)
	case metaballs.Name:
		return metaballs.New(dev, cfg.Metaballs, rng)
	}
	return nil, fmt.Errorf("unknown simulation %q", name)
}

// toImage converts a bottom-left-origin RGBA float frame into an image
// with the usual top-left origin. Channels are clamped to [0, 1].
func toImage(data []float32, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		row := h - 1 - y
		for x := range w {
			i := (row*w + x) * 4
			img.SetRGBA(x, y, color.RGBA{
				R: channel(data[i]),
				G: channel(data[i+1]),
				B: channel(data[i+2]),
				A: 255,
			})
		}
	}
	return img
}

func channel(v float32) uint8 {
	return uint8(max(0, min(1, v))*255 + 0.5)
}

func fail(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
