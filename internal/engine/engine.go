// Package engine wires the density, boundary, streaming, and mesh packages
// into the runtime API external hosts drive (§6.2-§6.4): a single Engine
// owns the shared boundary store and chunk streamer for one running
// configuration.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/biome"
	"github.com/kvossen/planetforge/internal/boundary"
	"github.com/kvossen/planetforge/internal/config"
	"github.com/kvossen/planetforge/internal/coord"
	"github.com/kvossen/planetforge/internal/density"
	"github.com/kvossen/planetforge/internal/mesh"
	"github.com/kvossen/planetforge/internal/stream"
	"github.com/kvossen/planetforge/internal/voxelchunk"
)

// MeshData is what on_chunk_mesh_ready hands to the host (§6.3): positions,
// indices, and optional normals/colors.
type MeshData struct {
	Positions []mgl32.Vec3
	Indices   []int32
	Normals   []mgl32.Vec3
	Colors    []mesh.Color
}

// SurfacePoint is the result of a surface query (§6.4).
type SurfacePoint struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Altitude float32
	Slope    float32
	Biome    *biome.Biome
}

// Engine is the top-level runtime object a host constructs once per
// configuration and drives via SetViewpoint/Tick each game tick.
type Engine struct {
	cfg      *config.Config
	log      *slog.Logger
	density  *density.Field
	selector *biome.Selector
	store    *boundary.Store
	streamer *stream.Streamer

	onMeshReady   func(coord.ChunkCoord, MeshData)
	onMeshCleared func(coord.ChunkCoord)
}

// New validates cfg and constructs an Engine. The only error that crosses
// this boundary is config_invalid (§7).
func New(cfg *config.Config, log *slog.Logger, onMeshReady func(coord.ChunkCoord, MeshData), onMeshCleared func(coord.ChunkCoord)) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	caves := cfg.BuildCaveField()
	selector := cfg.BuildBiomeSelector()

	planet := density.PlanetConfig{
		Center:               cfg.Planet.Center,
		Radius:               cfg.Planet.Radius,
		MaxTerrainHeight:     cfg.Planet.MaxTerrainHeight,
		MaxTerrainDepth:      cfg.Planet.MaxTerrainDepth,
		SurfaceBlendDistance: cfg.Planet.SurfaceBlendDistance,
		MaxInteriorDensity:   cfg.Planet.MaxInteriorDensity,
	}
	densityField := density.New(planet, cfg.Seed, selector, cfg.TerrainLayers, caves)

	voxelStep := cfg.Chunk.Size / float32(cfg.Chunk.Resolution)
	store := boundary.New(cfg.Chunk.Resolution, voxelStep, densityField)

	e := &Engine{
		cfg:           cfg,
		log:           log,
		density:       densityField,
		selector:      selector,
		store:         store,
		onMeshReady:   onMeshReady,
		onMeshCleared: onMeshCleared,
	}

	streamCfg := stream.Config{
		ChunkSize:        cfg.Chunk.Size,
		Resolution:       cfg.Chunk.Resolution,
		LoadDistance:     cfg.Stream.LoadDistance,
		UnloadDistance:   cfg.Stream.UnloadDistance,
		ChunksPerFrame:   cfg.Stream.ChunksPerFrame,
		MeshesPerFrame:   cfg.Stream.MeshesPerFrame,
		MaxTerrainHeight: cfg.Planet.MaxTerrainHeight,
		MaxTerrainDepth:  cfg.Planet.MaxTerrainDepth,
		PlanetRadius:     cfg.Planet.Radius,
		PlanetCenter:     cfg.Planet.Center,

		Selector:     selector,
		Caves:        caves,
		CavesEnabled: cfg.Caves.Enabled,

		CaveColor:     mesh.Color(cfg.Caves.Color),
		CaveColorDeep: mesh.Color(cfg.Caves.ColorDeep),
		CaveDepthSpan: cfg.Caves.DepthSpan,

		SampleStride:        cfg.MeshSampleStride,
		MinRadialAlign:      cfg.SurfaceSampleMinRadialAlign,
		MinAltitude:         cfg.SurfaceSampleMinAltitude,
		TargetSurfacePoints: cfg.TargetSurfacePoints,
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	e.streamer = stream.New(streamCfg, densityField, store, log, workers, e.handleMeshReady, e.handleMeshCleared)

	return e, nil
}

func (e *Engine) handleMeshReady(c coord.ChunkCoord, ch *voxelchunk.Chunk) {
	if e.onMeshReady == nil {
		return
	}
	m := ch.Mesh()
	e.onMeshReady(c, MeshData{
		Positions: m.Positions,
		Indices:   m.Indices,
		Normals:   m.Normals,
		Colors:    m.Colors,
	})
}

func (e *Engine) handleMeshCleared(c coord.ChunkCoord) {
	if e.onMeshCleared != nil {
		e.onMeshCleared(c)
	}
}

// SetViewpoint updates the tracked viewpoint; called each tick by the host.
func (e *Engine) SetViewpoint(p mgl32.Vec3) {
	e.streamer.SetViewpoint(p)
}

// Tick runs one control-loop iteration of the chunk streamer.
func (e *Engine) Tick(ctx context.Context) {
	e.streamer.Tick(ctx)
}

// ModifyTerrain implements §6.2's modify_terrain.
func (e *Engine) ModifyTerrain(center mgl32.Vec3, radius, strength float32, immediateCollider bool) bool {
	return e.streamer.ModifyTerrain(center, radius, strength, immediateCollider)
}

// RegenerateChunk implements §6.2's regenerate_chunk.
func (e *Engine) RegenerateChunk(c coord.ChunkCoord) {
	e.streamer.RegenerateChunk(c)
}

// RegenerateChunksInRadius implements §6.2's regenerate_chunks_in_radius.
func (e *Engine) RegenerateChunksInRadius(center mgl32.Vec3, radius float32) {
	e.streamer.RegenerateChunksInRadius(center, radius)
}

// GetChunk implements §6.2's get_chunk.
func (e *Engine) GetChunk(c coord.ChunkCoord) *voxelchunk.Chunk {
	return e.streamer.GetChunk(c)
}

// IsChunkLoaded implements §6.2's is_chunk_loaded.
func (e *Engine) IsChunkLoaded(c coord.ChunkCoord) bool {
	return e.streamer.IsChunkLoaded(c)
}

// IsChunkPending implements §6.2's is_chunk_pending.
func (e *Engine) IsChunkPending(c coord.ChunkCoord) bool {
	return e.streamer.IsChunkPending(c)
}

// Stats implements §6.2's stats().
func (e *Engine) Stats() stream.Stats {
	return e.streamer.Stats()
}

const (
	surfaceSearchIterations = 32
	surfaceEpsilon          = 0.1
	gradientEpsilon         = 0.1
)

// QuerySurface implements §6.4's density binary search: bracket the radial
// range around the planet, binary-search toward the zero crossing, then
// report position, gradient-derived normal, altitude, slope, and biome.
func (e *Engine) QuerySurface(dir mgl32.Vec3) SurfacePoint {
	u := dir
	if l := u.Len(); l > 1e-9 {
		u = u.Mul(1 / l)
	} else {
		u = mgl32.Vec3{0, 1, 0}
	}

	center := e.cfg.Planet.Center
	radius := e.cfg.Planet.Radius
	lo := radius - e.cfg.Planet.MaxTerrainHeight
	hi := radius + e.cfg.Planet.MaxTerrainHeight

	dLo := e.density.Evaluate(center.Add(u.Mul(lo)))
	var mid float32
	for i := 0; i < surfaceSearchIterations; i++ {
		mid = (lo + hi) / 2
		d := e.density.Evaluate(center.Add(u.Mul(mid)))
		if absF(d) < surfaceEpsilon {
			break
		}
		if sameSign(d, dLo) {
			lo = mid
			dLo = d
		} else {
			hi = mid
		}
	}

	pos := center.Add(u.Mul(mid))
	normal := e.gradientNormal(pos)
	altitude := mid - radius
	slope := angleBetween(normal, u)

	var dominant *biome.Biome
	if e.selector != nil {
		dominant = biome.Dominant(e.selector.Select(u))
	}

	return SurfacePoint{Position: pos, Normal: normal, Altitude: altitude, Slope: slope, Biome: dominant}
}

// QuerySurfaceRay implements §6.2's query_surface_ray: it walks a bounded
// ray in 64 steps looking for a sign change in density, then
// binary-searches the crossing the same way QuerySurface does. It uses the
// density field only; no host collider is consulted. Returns (point, true) on a hit, or (zero, false) if the ray
// never crosses the surface within length.
func (e *Engine) QuerySurfaceRay(origin, dir mgl32.Vec3, length float32) (SurfacePoint, bool) {
	u := dir
	if l := u.Len(); l > 1e-9 {
		u = u.Mul(1 / l)
	} else {
		return SurfacePoint{}, false
	}

	const steps = 64
	step := length / steps

	prevT := float32(0)
	prevD := e.density.Evaluate(origin)
	for i := 1; i <= steps; i++ {
		t := float32(i) * step
		d := e.density.Evaluate(origin.Add(u.Mul(t)))
		if !sameSign(d, prevD) {
			lo, hi := prevT, t
			dLo := prevD
			var mid float32
			for j := 0; j < surfaceSearchIterations; j++ {
				mid = (lo + hi) / 2
				dm := e.density.Evaluate(origin.Add(u.Mul(mid)))
				if absF(dm) < surfaceEpsilon {
					break
				}
				if sameSign(dm, dLo) {
					lo = mid
					dLo = dm
				} else {
					hi = mid
				}
			}

			pos := origin.Add(u.Mul(mid))
			normal := e.gradientNormal(pos)
			altitude := pos.Sub(e.cfg.Planet.Center).Len() - e.cfg.Planet.Radius
			slope := angleBetween(normal, u)

			var dominant *biome.Biome
			if e.selector != nil {
				radialDir := pos.Sub(e.cfg.Planet.Center)
				if l := radialDir.Len(); l > 1e-9 {
					dominant = biome.Dominant(e.selector.Select(radialDir.Mul(1 / l)))
				}
			}

			return SurfacePoint{Position: pos, Normal: normal, Altitude: altitude, Slope: slope, Biome: dominant}, true
		}
		prevT, prevD = t, d
	}
	return SurfacePoint{}, false
}

func (e *Engine) gradientNormal(p mgl32.Vec3) mgl32.Vec3 {
	dx := e.density.Evaluate(p.Add(mgl32.Vec3{gradientEpsilon, 0, 0})) - e.density.Evaluate(p.Sub(mgl32.Vec3{gradientEpsilon, 0, 0}))
	dy := e.density.Evaluate(p.Add(mgl32.Vec3{0, gradientEpsilon, 0})) - e.density.Evaluate(p.Sub(mgl32.Vec3{0, gradientEpsilon, 0}))
	dz := e.density.Evaluate(p.Add(mgl32.Vec3{0, 0, gradientEpsilon})) - e.density.Evaluate(p.Sub(mgl32.Vec3{0, 0, gradientEpsilon}))
	grad := mgl32.Vec3{dx, dy, dz}
	normal := grad.Mul(-1)
	if l := normal.Len(); l > 1e-9 {
		return normal.Mul(1 / l)
	}
	return mgl32.Vec3{0, 1, 0}
}

func sameSign(a, b float32) bool {
	return (a >= 0) == (b >= 0)
}

func absF(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func angleBetween(a, b mgl32.Vec3) float32 {
	denom := a.Len() * b.Len()
	if denom == 0 {
		return 0
	}
	cos := a.Dot(b) / denom
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return float32(math.Acos(float64(cos)))
}
