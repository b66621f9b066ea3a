package noise

import "github.com/go-gl/mathgl/mgl32"

// LayerConfig configures a single stacked-octave contribution (C2). Evaluation
// order is fixed: sample, invert, floor, mask, strength, then the min_value
// gate — changing that order changes observable terrain and is not allowed.
type LayerConfig struct {
	Enabled bool

	Frequency   float32
	Lacunarity  float32
	Octaves     int
	Persistence float32

	// Strength scales the post-processed raw sample. Named Amplitude in some
	// configs; this is the single field both names bind to.
	Strength float32

	// Center is added to the sample point before noise evaluation.
	Center mgl32.Vec3

	Invert bool

	UseFloor   bool
	FloorValue float32

	UseFirstLayerAsMask bool

	MinValue float32
}

// DefaultLayerConfig returns a neutral, enabled layer with unit frequency and
// no post-processing — a convenient base for building overrides from.
func DefaultLayerConfig() LayerConfig {
	return LayerConfig{
		Enabled:     true,
		Frequency:   1,
		Lacunarity:  2,
		Octaves:     1,
		Persistence: 0.5,
		Strength:    1,
	}
}

// Evaluate samples the layer at p. firstLayerValue is the raw (pre-strength)
// output of the first layer in the enclosing stack, used when
// UseFirstLayerAsMask is set; pass 0 when evaluating the first layer itself.
func (lc LayerConfig) Evaluate(src *Source, p mgl32.Vec3, firstLayerValue float32) float32 {
	if !lc.Enabled {
		return 0
	}

	raw := src.Octaves(p.Add(lc.Center), lc.Octaves, lc.Frequency, lc.Lacunarity, lc.Persistence)

	if lc.Invert {
		raw = -raw
	}

	if lc.UseFloor {
		raw = maxF(0, raw-lc.FloorValue)
	}

	if lc.UseFirstLayerAsMask && firstLayerValue > 0 {
		raw *= firstLayerValue
	}

	out := raw * lc.Strength

	// Unlike UseFloor, there's no explicit enable flag for this step: it
	// always applies, so at the zero default it clamps negative output to 0.
	out = maxF(0, out-lc.MinValue)

	return out
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Stack evaluates a list of layers and sums their contributions. The first
// enabled layer's raw (pre-strength) value is threaded to every later layer
// for use_first_layer_as_mask, matching the source's single-pass ordering.
func Stack(src *Source, layers []LayerConfig, p mgl32.Vec3) float32 {
	var sum, firstRaw float32
	haveFirst := false
	for _, lc := range layers {
		if !lc.Enabled {
			continue
		}
		v := lc.Evaluate(src, p, firstRaw)
		if !haveFirst {
			// Recover the pre-strength raw value for masking purposes: a
			// layer with Strength 0 would otherwise zero out the mask for
			// everything after it, which the source never does.
			firstRaw = rawFirstLayer(src, lc, p)
			haveFirst = true
		}
		sum += v
	}
	return sum
}

func rawFirstLayer(src *Source, lc LayerConfig, p mgl32.Vec3) float32 {
	raw := src.Octaves(p.Add(lc.Center), lc.Octaves, lc.Frequency, lc.Lacunarity, lc.Persistence)
	if lc.Invert {
		raw = -raw
	}
	if lc.UseFloor {
		raw = maxF(0, raw-lc.FloorValue)
	}
	return raw
}
