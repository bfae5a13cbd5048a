// Shader debug tool - runs the particle compute kernel next to the host
// emulation and reports how far the two drift apart.
//
// Usage: go run -tags opengl43 ./cmd/shaderdebug -particles 65536 -steps 30
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fountain/particles"
	"github.com/pthm-cable/fountain/renderer"
	"github.com/pthm-cable/fountain/sim"
)

func main() {
	shaderPath := flag.String("shader", "", "Compute shader override (empty = embedded)")
	count := flag.Int("particles", 65536, "Particle count")
	steps := flag.Int("steps", 30, "Dispatches to run")
	localSize := flag.Int("local-size", 256, "Work group size")
	tolerance := flag.Float64("tolerance", 1e-3, "Max position difference counted as a match")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Initialize raylib with hidden window for the GL context
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(64, 64, "Shader Debug")
	defer rl.CloseWindow()

	gpu := renderer.NewComputeDevice(*localSize, *shaderPath, logger)
	if !gpu.Probe() {
		fmt.Fprintln(os.Stderr, "compute device unavailable (needs OpenGL 4.3 and -tags opengl43)")
		os.Exit(1)
	}
	defer gpu.Close()

	host := sim.NewEmulatedDevice(particles.NewRandSource(1))
	defer host.Close()

	params := sim.DefaultParams()
	store := particles.NewStore()
	if err := store.Resize(*count, particles.MinAlignment); err != nil {
		fmt.Fprintf(os.Stderr, "allocating particles: %v\n", err)
		os.Exit(1)
	}
	store.SpawnAll(params.SpawnRule(), particles.NewRandSource(7), 0)

	for _, dev := range []sim.Device{gpu, host} {
		if err := load(dev, store); err != nil {
			fmt.Fprintf(os.Stderr, "loading device: %v\n", err)
			os.Exit(1)
		}
	}

	const dt = 1.0 / 60
	for i := 0; i < *steps; i++ {
		args := sim.DispatchArgs{DT: dt, Elapsed: float32(i) * dt, Params: params, Count: *count, Seed: uint32(i + 1)}
		if err := gpu.Dispatch(args); err != nil {
			fmt.Fprintf(os.Stderr, "gpu dispatch %d: %v\n", i, err)
			os.Exit(1)
		}
		if err := host.Dispatch(args); err != nil {
			fmt.Fprintf(os.Stderr, "host dispatch %d: %v\n", i, err)
			os.Exit(1)
		}
	}

	gpuPos := make([]particles.Vec4, *count)
	hostPos := make([]particles.Vec4, *count)
	if err := gpu.DownloadPositions(gpuPos); err != nil {
		fmt.Fprintf(os.Stderr, "gpu download: %v\n", err)
		os.Exit(1)
	}
	if err := host.DownloadPositions(hostPos); err != nil {
		fmt.Fprintf(os.Stderr, "host download: %v\n", err)
		os.Exit(1)
	}

	// Respawned particles draw from different random streams and never match
	var matched, belowGround int
	var maxDiff float32
	for i := range gpuPos {
		d := distance(gpuPos[i], hostPos[i])
		if d <= float32(*tolerance) {
			matched++
			maxDiff = math32.Max(maxDiff, d)
		}
		if gpuPos[i].Y < 0 {
			belowGround++
		}
	}

	fmt.Printf("particles: %d  steps: %d\n", *count, *steps)
	fmt.Printf("matched:   %d (%.1f%%), max diff among matched %.2e\n",
		matched, 100*float64(matched)/float64(*count), maxDiff)
	fmt.Printf("below ground on gpu: %d\n", belowGround)
	if belowGround > 0 {
		os.Exit(1)
	}
}

func load(dev sim.Device, store *particles.Store) error {
	if err := dev.Allocate(store.Len()); err != nil {
		return err
	}
	if err := dev.UploadPositions(store.Positions); err != nil {
		return err
	}
	return dev.UploadVelocities(store.Velocities)
}

func distance(a, b particles.Vec4) float32 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math32.Sqrt(dx*dx + dy*dy + dz*dz)
}
