package stream

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/boundary"
	"github.com/kvossen/planetforge/internal/coord"
)

type sphereEval struct{ radius float32 }

func (s sphereEval) Evaluate(p mgl32.Vec3) float32 {
	return s.radius - p.Len()
}

func testConfig() Config {
	return Config{
		ChunkSize:        16,
		Resolution:       8,
		LoadDistance:     80,
		UnloadDistance:   120,
		ChunksPerFrame:   64,
		MeshesPerFrame:   64,
		MaxTerrainHeight: 10,
		MaxTerrainDepth:  10,
		PlanetRadius:     40,
	}
}

func newTestStreamer(cfg Config) *Streamer {
	density := sphereEval{radius: cfg.PlanetRadius}
	store := boundary.New(cfg.Resolution, cfg.ChunkSize/float32(cfg.Resolution), density)
	log := slog.New(slog.DiscardHandler)
	return New(cfg, density, store, log, 4, nil, nil)
}

func tickUntilDrained(t *testing.T, s *Streamer, maxTicks int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < maxTicks; i++ {
		s.Tick(ctx)
		stats := s.Stats()
		if stats.Pending == 0 && stats.InProgress == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("streamer did not drain pending/in-progress within %d ticks: %+v", maxTicks, s.Stats())
}

func TestSearchSweepLoadsChunksWithinDistance(t *testing.T) {
	s := newTestStreamer(testConfig())
	s.SetViewpoint(mgl32.Vec3{0, 0, 0})
	tickUntilDrained(t, s, 200)

	stats := s.Stats()
	if stats.Active == 0 {
		t.Fatal("expected at least one active chunk after sweep")
	}
}

func TestHysteresisChunkStaysLoadedBetweenLoadAndUnloadDistance(t *testing.T) {
	cfg := testConfig()
	s := newTestStreamer(cfg)
	s.SetViewpoint(mgl32.Vec3{0, 0, 0})
	tickUntilDrained(t, s, 200)

	before := s.Stats().Active

	// Move the viewpoint so some chunk centers now exceed load distance but
	// stay under unload distance: they must remain active.
	s.SetViewpoint(mgl32.Vec3{0, 0, 90})
	s.Tick(context.Background())

	after := s.Stats()
	if after.Active == 0 {
		t.Fatal("all chunks unloaded on a move within the hysteresis band")
	}
	_ = before
}

func TestModifyTerrainReturnsFalseWithNoActiveChunks(t *testing.T) {
	s := newTestStreamer(testConfig())
	ok := s.ModifyTerrain(mgl32.Vec3{1000, 1000, 1000}, 5, -10, false)
	if ok {
		t.Fatal("ModifyTerrain() = true with no active chunks in range, want false")
	}
}

func TestIsChunkLoadedReflectsActiveSet(t *testing.T) {
	s := newTestStreamer(testConfig())
	c := coord.ChunkCoord{}
	if s.IsChunkLoaded(c) {
		t.Fatal("IsChunkLoaded() = true before any sweep")
	}
	s.SetViewpoint(mgl32.Vec3{0, 0, 0})
	tickUntilDrained(t, s, 200)
	if !s.IsChunkLoaded(c) {
		t.Fatal("IsChunkLoaded() = false for the chunk containing the viewpoint after a sweep")
	}
}
