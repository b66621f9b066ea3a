package persist

import (
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/boundary"
	"github.com/kvossen/planetforge/internal/coord"
	"github.com/kvossen/planetforge/internal/voxelchunk"
)

type sphereEval struct{ radius float32 }

func (s sphereEval) Evaluate(p mgl32.Vec3) float32 {
	return s.radius - p.Len()
}

func TestSaveAndLoadRoundTripsDeltas(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	const resolution, size = int32(4), float32(16)
	density := sphereEval{radius: 50}
	boundaryStore := boundary.New(resolution, size/float32(resolution), density)

	c := coord.ChunkCoord{X: 3, Y: 0, Z: 0}
	ch := voxelchunk.New(c, resolution, size)
	ch.GenerateDensityField(boundaryStore, density)
	base := ch.Lattice()

	ch.Modify(mgl32.Vec3{50, 0, 0}, 3, -10)
	modified := ch.Lattice()

	if err := store.SaveModified(c, resolution, base, modified); err != nil {
		t.Fatalf("SaveModified() error: %v", err)
	}

	cd, err := store.Load(c)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cd == nil {
		t.Fatal("Load() returned nil for a saved chunk")
	}

	fresh := voxelchunk.New(c, resolution, size)
	fresh.GenerateDensityField(boundaryStore, density)
	Apply(fresh, cd)

	freshLattice := fresh.Lattice()
	for i := range modified {
		if freshLattice[i] != modified[i] {
			t.Fatalf("lattice sample %d after round trip = %f, want %f", i, freshLattice[i], modified[i])
		}
	}
}

func TestLoadReturnsNilWhenNoDeltaFileExists(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	cd, err := store.Load(coord.ChunkCoord{X: 99})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cd != nil {
		t.Fatal("Load() returned non-nil for a never-saved chunk")
	}
}

func TestSaveModifiedRemovesFileWhenNoDeltasRemain(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	c := coord.ChunkCoord{X: 1}
	base := []float32{1, 2, 3}
	if err := store.SaveModified(c, 0, base, []float32{1, 2, 4}); err != nil {
		t.Fatalf("SaveModified() error: %v", err)
	}
	if _, err := store.Load(c); err != nil {
		t.Fatalf("Load() error after initial save: %v", err)
	}

	if err := store.SaveModified(c, 0, base, base); err != nil {
		t.Fatalf("SaveModified() with identical lattices error: %v", err)
	}
	cd, err := store.Load(c)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cd != nil {
		t.Fatal("Load() returned a delta file after it should have been removed")
	}
}
