package biome

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testBiomes() []*Biome {
	return []*Biome{
		{Name: "ocean", HeightMultiplier: 1, DebugColor: Color{0, 0, 1, 1}},
		{Name: "plains", HeightMultiplier: 1, DebugColor: Color{0, 1, 0, 1}},
		{Name: "mountains", HeightMultiplier: 1, DebugColor: Color{0.5, 0.5, 0.5, 1}},
	}
}

func TestSelectSingletonOutsideBlendBand(t *testing.T) {
	sel := NewSelector(testBiomes(), SelectionConfig{
		SeedOffset:   9999,
		SampleRadius: 100,
		BlendWidth:   0,
		Contrast:     1,
	}, 1)

	got := sel.Select(mgl32.Vec3{1, 0, 0})
	if len(got) != 1 || got[0].Weight != 1 {
		t.Fatalf("Select() = %+v, want a singleton with weight 1", got)
	}
}

func TestSelectWeightsSumToOne(t *testing.T) {
	sel := NewSelector(testBiomes(), SelectionConfig{
		SeedOffset:   9999,
		SampleRadius: 50,
		BlendWidth:   0.25,
		Contrast:     1,
	}, 7)

	for i := 0; i < 50; i++ {
		dir := mgl32.Vec3{float32(i) * 0.1, 1, float32(i) * 0.05}.Normalize()
		got := sel.Select(dir)
		var total float32
		for _, w := range got {
			total += w.Weight
		}
		if total < 0.999 || total > 1.001 {
			t.Fatalf("weights for %v sum to %f, want 1", dir, total)
		}
		if len(got) > 2 {
			t.Fatalf("Select() returned %d biomes, want at most 2", len(got))
		}
	}
}

func TestSelectCacheHitsOnRepeatedPosition(t *testing.T) {
	sel := NewSelector(testBiomes(), SelectionConfig{SampleRadius: 10, Contrast: 1}, 3)

	dir := mgl32.Vec3{1, 0, 0}
	first := sel.Select(dir)
	second := sel.Select(dir)

	if len(first) != len(second) {
		t.Fatalf("cached selection diverged: %+v vs %+v", first, second)
	}
	for i := range first {
		if first[i].Biome != second[i].Biome || first[i].Weight != second[i].Weight {
			t.Fatalf("cached selection diverged at index %d", i)
		}
	}
}

func TestPredicateAllows(t *testing.T) {
	p := Predicate{MaxSlope: 0.5, MinAltitude: 0, MaxAltitude: 100}
	if !p.Allows(0.2, 50, mgl32.Vec3{0, 1, 0}) {
		t.Fatal("expected predicate to allow a point within bounds")
	}
	if p.Allows(0.9, 50, mgl32.Vec3{0, 1, 0}) {
		t.Fatal("expected predicate to reject a point exceeding max slope")
	}
	if p.Allows(0.2, 150, mgl32.Vec3{0, 1, 0}) {
		t.Fatal("expected predicate to reject a point exceeding max altitude")
	}
}

func TestDominantPicksHighestWeight(t *testing.T) {
	biomes := testBiomes()
	weights := []Weighted{
		{Biome: biomes[0], Weight: 0.3},
		{Biome: biomes[1], Weight: 0.7},
	}
	if got := Dominant(weights); got != biomes[1] {
		t.Fatalf("Dominant() = %v, want %v", got.Name, biomes[1].Name)
	}
}
