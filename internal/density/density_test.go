package density

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/cave"
	"github.com/kvossen/planetforge/internal/noise"
)

func bareSphereField(radius float32) *Field {
	planet := PlanetConfig{
		Center:               mgl32.Vec3{0, 0, 0},
		Radius:               radius,
		SurfaceBlendDistance: 8,
		MaxInteriorDensity:   1e9,
	}
	caves := cave.New(cave.Config{Enabled: false}, 1, planet.Center, planet.Radius)
	return New(planet, 1, nil, nil, caves)
}

func TestBareSphereSurfaceAtRadius(t *testing.T) {
	f := bareSphereField(50)

	inside := f.Evaluate(mgl32.Vec3{40, 0, 0})
	if inside <= 0 {
		t.Fatalf("Evaluate() inside sphere = %f, want > 0 (solid)", inside)
	}

	outside := f.Evaluate(mgl32.Vec3{60, 0, 0})
	if outside >= 0 {
		t.Fatalf("Evaluate() outside sphere = %f, want < 0 (empty)", outside)
	}

	onSurface := f.Evaluate(mgl32.Vec3{50, 0, 0})
	if math.Abs(float64(onSurface)) > 1e-3 {
		t.Fatalf("Evaluate() on surface = %f, want ~= 0", onSurface)
	}
}

func TestDeterministic(t *testing.T) {
	f1 := bareSphereField(50)
	f2 := bareSphereField(50)

	p := mgl32.Vec3{12.5, -3.25, 40.1}
	if f1.Evaluate(p) != f2.Evaluate(p) {
		t.Fatal("two independently constructed fields with equal config diverged")
	}
}

func TestNoiseWindowedToBlendBand(t *testing.T) {
	planet := PlanetConfig{
		Center:               mgl32.Vec3{0, 0, 0},
		Radius:               100,
		SurfaceBlendDistance: 5,
		MaxInteriorDensity:   1e9,
	}
	layers := []noise.LayerConfig{{Enabled: true, Frequency: 0.05, Octaves: 3, Persistence: 0.5, Lacunarity: 2, Strength: 8}}
	caves := cave.New(cave.Config{Enabled: false}, 1, planet.Center, planet.Radius)
	f := New(planet, 1, nil, layers, caves)

	// Far below the blend band: density must equal the pure sphere base.
	deep := mgl32.Vec3{0, 0, 50}
	got := f.Evaluate(deep)
	want := planet.Radius - deep.Len()
	if math.Abs(float64(got-want)) > 1e-3 {
		t.Fatalf("Evaluate() deep interior = %f, want sphere base %f (noise must not leak beyond the blend band)", got, want)
	}
}

func TestInteriorClampOnlyWhenCaveNegative(t *testing.T) {
	planet := PlanetConfig{
		Center:               mgl32.Vec3{0, 0, 0},
		Radius:               100,
		SurfaceBlendDistance: 5,
		MaxInteriorDensity:   10,
	}
	noCaves := cave.New(cave.Config{Enabled: false}, 1, planet.Center, planet.Radius)
	f := New(planet, 1, nil, nil, noCaves)

	deep := mgl32.Vec3{0, 0, 10} // base = 90, far above MaxInteriorDensity
	got := f.Evaluate(deep)
	want := planet.Radius - deep.Len() // caves disabled -> no clamp, pure base
	if math.Abs(float64(got-want)) > 1e-3 {
		t.Fatalf("Evaluate() with caves disabled = %f, want unclamped base %f", got, want)
	}
}

func TestEvaluateCheckedClampsNaN(t *testing.T) {
	f := bareSphereField(50)
	f.globalLayers = []noise.LayerConfig{{Enabled: true, Octaves: 1, Frequency: 1, Persistence: 1, Lacunarity: 1, Strength: float32(math.NaN())}}

	_, clamped := f.EvaluateChecked(mgl32.Vec3{50, 0, 0})
	if !clamped {
		t.Fatal("expected EvaluateChecked to report a clamp when noise strength is NaN")
	}
}
