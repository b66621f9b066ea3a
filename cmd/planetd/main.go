// Command planetd runs the voxel planet engine as a standalone host loop,
// the way a real game process would drive it: load config, build the
// engine, move a simulated viewpoint, and tick the chunk streamer until
// interrupted.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/config"
	"github.com/kvossen/planetforge/internal/coord"
	"github.com/kvossen/planetforge/internal/engine"
)

func main() {
	cfg := config.Default()

	var (
		configPath = flag.String("config", "", "path to a JSON config file; defaults are used if empty or missing")
		savePath   = flag.String("save-config", "", "if set, write the effective config to this path after loading")
		seed       = flag.Int("seed", int(cfg.Seed), "world seed")
		radius     = flag.Float64("radius", float64(cfg.Planet.Radius), "planet radius in world units")
		orbitSpeed = flag.Float64("orbit-speed", 0.05, "radians/second the simulated viewpoint orbits the planet")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *configPath != "" {
		if err := config.Load(*configPath, cfg); err != nil {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
	}
	cfg.Seed = int32(*seed)
	cfg.Planet.Radius = float32(*radius)

	if *savePath != "" {
		if err := config.Save(*savePath, cfg, log); err != nil {
			log.Error("save config", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	run(ctx, log, cfg, float32(*orbitSpeed))
}

func run(ctx context.Context, log *slog.Logger, cfg *config.Config, orbitSpeed float32) {
	meshCount := 0
	e, err := engine.New(cfg, log,
		func(c coord.ChunkCoord, m engine.MeshData) {
			meshCount++
			log.Debug("chunk mesh ready", "chunk", c, "triangles", len(m.Indices)/3)
		},
		func(c coord.ChunkCoord) {
			meshCount--
			log.Debug("chunk mesh cleared", "chunk", c)
		},
	)
	if err != nil {
		log.Error("build engine", "error", err)
		os.Exit(1)
	}

	log.Info("planetd started",
		"seed", cfg.Seed,
		"radius", cfg.Planet.Radius,
		"chunkSize", cfg.Chunk.Size,
		"resolution", cfg.Chunk.Resolution,
	)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	orbitRadius := cfg.Planet.Radius + cfg.Stream.LoadDistance*0.5

	for {
		select {
		case <-ctx.Done():
			log.Info("planetd shutting down")
			return
		case tick := <-ticker.C:
			elapsed := float32(tick.Sub(start).Seconds())
			angle := elapsed * orbitSpeed
			viewpoint := cfg.Planet.Center.Add(mgl32.Vec3{
				orbitRadius * float32(math.Cos(float64(angle))),
				0,
				orbitRadius * float32(math.Sin(float64(angle))),
			})
			e.SetViewpoint(viewpoint)
			e.Tick(ctx)

			stats := e.Stats()
			log.Info("tick",
				"active", stats.Active,
				"pending", stats.Pending,
				"inProgress", stats.InProgress,
				"meshQueue", stats.MeshQueue,
				"meshesLoaded", meshCount,
			)
		}
	}
}
