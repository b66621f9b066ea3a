package engine

import (
	"log/slog"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/config"
	"github.com/kvossen/planetforge/internal/coord"
)

func bareSphereConfig() *config.Config {
	cfg := config.Default()
	cfg.Seed = 1
	cfg.Planet.Radius = 50
	cfg.Planet.MaxTerrainHeight = 20
	cfg.Planet.MaxTerrainDepth = 20
	cfg.Chunk.Size = 16
	cfg.Chunk.Resolution = 16
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := New(cfg, slog.New(slog.DiscardHandler), nil, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return e
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Planet.Radius = -1
	if _, err := New(cfg, slog.New(slog.DiscardHandler), nil, nil); err == nil {
		t.Fatal("New() with invalid config returned nil error")
	}
}

func TestQuerySurfaceBareSphereMatchesRadius(t *testing.T) {
	e := newTestEngine(t, bareSphereConfig())

	sp := e.QuerySurface(mgl32.Vec3{1, 0, 0})
	got := sp.Position.Sub(e.cfg.Planet.Center).Len()
	// Bare sphere: the surface sits exactly at the configured radius.
	want := float32(50)
	if math.Abs(float64(got-want)) > 0.5 {
		t.Fatalf("QuerySurface radial distance = %f, want ~%f", got, want)
	}
}

func TestQuerySurfaceNormalPointsOutward(t *testing.T) {
	e := newTestEngine(t, bareSphereConfig())
	dir := mgl32.Vec3{0, 1, 0}
	sp := e.QuerySurface(dir)
	if sp.Normal.Dot(dir) <= 0 {
		t.Fatalf("QuerySurface normal %v does not point outward along %v", sp.Normal, dir)
	}
}

func TestGetChunkReturnsNilBeforeStreamed(t *testing.T) {
	e := newTestEngine(t, bareSphereConfig())
	if ch := e.GetChunk(coord.ChunkCoord{X: 0, Y: 0, Z: 0}); ch != nil {
		t.Fatal("GetChunk() before any Tick returned non-nil")
	}
	if e.IsChunkLoaded(coord.ChunkCoord{}) {
		t.Fatal("IsChunkLoaded() before any Tick returned true")
	}
}

func TestModifyTerrainWithoutActiveChunksReturnsFalse(t *testing.T) {
	e := newTestEngine(t, bareSphereConfig())
	if e.ModifyTerrain(mgl32.Vec3{60, 0, 0}, 3, -10, false) {
		t.Fatal("ModifyTerrain() returned true with no active chunks")
	}
}

func TestQuerySurfaceRayMissesWhenDensityNeverChangesSign(t *testing.T) {
	e := newTestEngine(t, bareSphereConfig())
	// A ray fired entirely within the solid interior of the planet never
	// crosses the surface.
	_, hit := e.QuerySurfaceRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, 10)
	if hit {
		t.Fatal("QuerySurfaceRay() reported a hit for a ray confined to the solid interior")
	}
}

func TestQuerySurfaceRayHitsBareSphere(t *testing.T) {
	e := newTestEngine(t, bareSphereConfig())
	origin := mgl32.Vec3{0, 0, 0}
	dir := mgl32.Vec3{1, 0, 0}
	sp, hit := e.QuerySurfaceRay(origin, dir, 80)
	if !hit {
		t.Fatal("QuerySurfaceRay() missed a ray that crosses the bare sphere")
	}
	got := sp.Position.Sub(e.cfg.Planet.Center).Len()
	if math.Abs(float64(got-50)) > 0.5 {
		t.Fatalf("QuerySurfaceRay hit radius = %f, want ~50", got)
	}
}
