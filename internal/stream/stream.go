// Package stream implements the chunk streamer (C10): it decides which
// chunks should be loaded around a moving viewpoint, schedules generation
// and meshing on a worker pool, and applies terrain modifications.
package stream

import (
	"container/heap"
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/biome"
	"github.com/kvossen/planetforge/internal/boundary"
	"github.com/kvossen/planetforge/internal/cave"
	"github.com/kvossen/planetforge/internal/coord"
	"github.com/kvossen/planetforge/internal/mesh"
	"github.com/kvossen/planetforge/internal/voxelchunk"
)

// Config parameters the streamer (§6.1's stream block).
type Config struct {
	ChunkSize        float32
	Resolution       int32
	LoadDistance     float32
	UnloadDistance   float32
	ChunksPerFrame   int
	MeshesPerFrame   int
	MaxTerrainHeight float32
	MaxTerrainDepth  float32
	PlanetRadius     float32
	PlanetCenter     mgl32.Vec3

	// Selector and Caves feed §4.9's vertex color tinting; both may be nil
	// (no biomes configured / caves disabled).
	Selector     *biome.Selector
	Caves        *cave.Field
	CavesEnabled bool

	CaveColor     mesh.Color
	CaveColorDeep mesh.Color
	CaveDepthSpan float32

	// SampleStride, MinRadialAlign, MinAltitude, and TargetSurfacePoints
	// configure §4.9's bounded surface-point sampling.
	SampleStride        int
	MinRadialAlign      float32
	MinAltitude         float32
	TargetSurfacePoints int
}

func (c Config) tintParams() voxelchunk.TintParams {
	return voxelchunk.TintParams{
		Selector:            c.Selector,
		Caves:               c.Caves,
		CavesEnabled:        c.CavesEnabled,
		PlanetCenter:        c.PlanetCenter,
		PlanetRadius:        c.PlanetRadius,
		CaveColor:           c.CaveColor,
		CaveColorDeep:       c.CaveColorDeep,
		CaveDepthSpan:       c.CaveDepthSpan,
		SampleStride:        c.SampleStride,
		MinRadialAlign:      c.MinRadialAlign,
		MinAltitude:         c.MinAltitude,
		TargetSurfacePoints: c.TargetSurfacePoints,
	}
}

// Evaluator is the density function chunks sample interior lattice points
// from. Satisfied structurally by *density.Field.
type Evaluator interface {
	Evaluate(p mgl32.Vec3) float32
}

// MeshReadyFunc is invoked on the control thread when a chunk's mesh is
// (re)generated; MeshClearedFunc when it is cleared or the chunk destroyed.
type MeshReadyFunc func(c coord.ChunkCoord, ch *voxelchunk.Chunk)
type MeshClearedFunc func(c coord.ChunkCoord)

// Stats mirrors §6.2's stats() result.
type Stats struct {
	Active         int
	Pending        int
	InProgress     int
	MeshQueue      int
	TotalGenerated int64
	TotalUnloaded  int64
}

type pendingEntry struct {
	coord    coord.ChunkCoord
	distance float32
	index    int
}

type pendingQueue []*pendingEntry

func (q pendingQueue) Len() int            { return len(q) }
func (q pendingQueue) Less(i, j int) bool  { return q[i].distance < q[j].distance }
func (q pendingQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index, q[j].index = i, j }
func (q *pendingQueue) Push(x interface{}) {
	e := x.(*pendingEntry)
	e.index = len(*q)
	*q = append(*q, e)
}
func (q *pendingQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// Streamer owns the active/pending/in-progress chunk sets and a priority
// queue of pending coordinates sorted by distance to the viewpoint. Its
// chunk sets and queues are guarded by mu; workers communicate results
// back over genResult, which Tick drains.
type Streamer struct {
	cfg     Config
	density Evaluator
	store   *boundary.Store
	log     *slog.Logger

	onMeshReady   MeshReadyFunc
	onMeshCleared MeshClearedFunc

	mu         sync.Mutex
	active     map[coord.ChunkCoord]*voxelchunk.Chunk
	pending    map[coord.ChunkCoord]bool
	inProgress map[coord.ChunkCoord]*voxelchunk.Chunk
	queue      pendingQueue
	queueDirty bool

	meshQueue []coord.ChunkCoord

	viewpoint     mgl32.Vec3
	lastSweepAt   mgl32.Vec3
	haveSweptOnce bool

	workers   int
	sem       chan struct{}
	genResult chan generatedChunk

	totalGenerated atomic.Int64
	totalUnloaded  atomic.Int64
}

type generatedChunk struct {
	coord coord.ChunkCoord
	chunk *voxelchunk.Chunk
	ok    bool
}

// New builds a Streamer. workers is the worker-pool size for chunk
// generation; a reasonable default is runtime.NumCPU().
func New(cfg Config, density Evaluator, store *boundary.Store, log *slog.Logger, workers int, onMeshReady MeshReadyFunc, onMeshCleared MeshClearedFunc) *Streamer {
	if workers < 1 {
		workers = 1
	}
	return &Streamer{
		cfg:           cfg,
		density:       density,
		store:         store,
		log:           log,
		onMeshReady:   onMeshReady,
		onMeshCleared: onMeshCleared,
		active:        make(map[coord.ChunkCoord]*voxelchunk.Chunk),
		pending:       make(map[coord.ChunkCoord]bool),
		inProgress:    make(map[coord.ChunkCoord]*voxelchunk.Chunk),
		workers:       workers,
		sem:           make(chan struct{}, workers),
		genResult:     make(chan generatedChunk, workers*2),
	}
}

// SetViewpoint updates the viewpoint position (§6.2).
func (s *Streamer) SetViewpoint(p mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewpoint = p
	if !s.haveSweptOnce || p.Sub(s.lastSweepAt).Len() >= 0.5*s.cfg.ChunkSize {
		s.queueDirty = true
	}
}

// Tick runs one control-loop iteration: search sweep (if due), draining
// finished workers, dispatching new generation tasks up to
// ChunksPerFrame, processing the mesh queue up to MeshesPerFrame, and the
// unload sweep.
func (s *Streamer) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.queueDirty {
		s.searchSweepLocked()
		s.rebuildQueueLocked()
		s.lastSweepAt = s.viewpoint
		s.haveSweptOnce = true
		s.queueDirty = false
	}
	s.mu.Unlock()

	s.drainGenerated()
	s.dispatchNewChunks(ctx)
	s.processMeshQueue()
	s.unloadSweep()
}

func (s *Streamer) searchSweepLocked() {
	radiusChunks := int32(math.Ceil(float64(s.cfg.LoadDistance/s.cfg.ChunkSize))) + 1
	center := chunkContaining(s.viewpoint, s.cfg.ChunkSize)
	diag := s.cfg.ChunkSize * float32(math.Sqrt(3))
	minShell := s.cfg.PlanetRadius - s.cfg.MaxTerrainDepth - diag
	maxShell := s.cfg.PlanetRadius + s.cfg.MaxTerrainHeight + diag

	for dx := -radiusChunks; dx <= radiusChunks; dx++ {
		for dy := -radiusChunks; dy <= radiusChunks; dy++ {
			for dz := -radiusChunks; dz <= radiusChunks; dz++ {
				c := center.Add(dx, dy, dz)
				if s.active[c] != nil || s.pending[c] || s.inProgress[c] != nil {
					continue
				}
				dist := c.DistanceTo(s.cfg.ChunkSize, s.viewpoint)
				if dist > s.cfg.LoadDistance {
					continue
				}
				centerDist := c.Center(s.cfg.ChunkSize).Sub(s.cfg.PlanetCenter).Len()
				if centerDist < minShell || centerDist > maxShell {
					continue
				}
				s.pending[c] = true
			}
		}
	}
}

func (s *Streamer) rebuildQueueLocked() {
	s.queue = s.queue[:0]
	for c := range s.pending {
		heap.Push(&s.queue, &pendingEntry{coord: c, distance: c.DistanceTo(s.cfg.ChunkSize, s.viewpoint)})
	}
	heap.Init(&s.queue)
}

func chunkContaining(p mgl32.Vec3, size float32) coord.ChunkCoord {
	return coord.ChunkCoord{
		X: int32(math.Floor(float64(p.X() / size))),
		Y: int32(math.Floor(float64(p.Y() / size))),
		Z: int32(math.Floor(float64(p.Z() / size))),
	}
}

func (s *Streamer) dispatchNewChunks(ctx context.Context) {
	s.mu.Lock()
	dispatched := 0
	var toDispatch []coord.ChunkCoord
	for dispatched < s.cfg.ChunksPerFrame && s.queue.Len() > 0 {
		entry := heap.Pop(&s.queue).(*pendingEntry)
		if s.active[entry.coord] != nil || s.inProgress[entry.coord] != nil {
			continue
		}
		delete(s.pending, entry.coord)
		ch := voxelchunk.New(entry.coord, s.cfg.Resolution, s.cfg.ChunkSize)
		s.inProgress[entry.coord] = ch
		toDispatch = append(toDispatch, entry.coord)
		dispatched++
	}
	s.mu.Unlock()

	for _, c := range toDispatch {
		go s.generateWorker(ctx, c)
	}
}

func (s *Streamer) generateWorker(ctx context.Context, c coord.ChunkCoord) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return
	}

	s.mu.Lock()
	ch := s.inProgress[c]
	s.mu.Unlock()
	if ch == nil {
		return
	}

	select {
	case <-ctx.Done():
		ch.Cancel()
	default:
	}

	ok := ch.GenerateDensityField(s.store, s.density)

	select {
	case s.genResult <- generatedChunk{coord: c, chunk: ch, ok: ok}:
	case <-ctx.Done():
	}
}

func (s *Streamer) drainGenerated() {
	for {
		select {
		case result := <-s.genResult:
			s.mu.Lock()
			delete(s.inProgress, result.coord)
			if result.chunk.Cancelled() || !result.ok {
				s.mu.Unlock()
				continue
			}
			s.active[result.coord] = result.chunk
			s.meshQueue = append(s.meshQueue, result.coord)
			s.totalGenerated.Add(1)
			s.mu.Unlock()
		default:
			return
		}
	}
}

func (s *Streamer) processMeshQueue() {
	s.mu.Lock()
	n := s.cfg.MeshesPerFrame
	if n > len(s.meshQueue) {
		n = len(s.meshQueue)
	}
	batch := append([]coord.ChunkCoord(nil), s.meshQueue[:n]...)
	s.meshQueue = s.meshQueue[n:]
	var chunks []*voxelchunk.Chunk
	for _, c := range batch {
		chunks = append(chunks, s.active[c])
	}
	s.mu.Unlock()

	for i, c := range batch {
		ch := chunks[i]
		if ch == nil {
			continue
		}
		ch.GenerateMesh(s.cfg.tintParams())
		if len(ch.Mesh().Indices) == 0 {
			if s.onMeshCleared != nil {
				s.onMeshCleared(c)
			}
			continue
		}
		if s.onMeshReady != nil {
			s.onMeshReady(c, ch)
		}
	}
}

func (s *Streamer) unloadSweep() {
	s.mu.Lock()
	var toUnload []coord.ChunkCoord
	for c := range s.active {
		if c.DistanceTo(s.cfg.ChunkSize, s.viewpoint) > s.cfg.UnloadDistance {
			toUnload = append(toUnload, c)
		}
	}
	for _, c := range toUnload {
		delete(s.active, c)
		s.store.Invalidate(c)
		s.totalUnloaded.Add(1)
	}
	s.mu.Unlock()

	for _, c := range toUnload {
		if s.onMeshCleared != nil {
			s.onMeshCleared(c)
		}
	}
}

// ModifyTerrain implements §4.10's terrain modification API: it locates
// every active chunk whose AABB intersects the sphere, calls Modify on
// each, and enqueues the dirtied ones for re-meshing. Returns true if any
// chunk was dirtied.
func (s *Streamer) ModifyTerrain(center mgl32.Vec3, radius, strength float32, immediateCollider bool) bool {
	s.mu.Lock()
	var touched []coord.ChunkCoord
	for c, ch := range s.active {
		if !c.AABBIntersectsSphere(s.cfg.ChunkSize, center, radius) {
			continue
		}
		if ch.Modify(center, radius, strength) {
			touched = append(touched, c)
		}
	}
	s.mu.Unlock()

	if len(touched) == 0 {
		return false
	}

	if immediateCollider {
		for _, c := range touched {
			s.active2Mesh(c)
		}
		return true
	}

	s.mu.Lock()
	s.meshQueue = append(s.meshQueue, touched...)
	s.mu.Unlock()
	return true
}

func (s *Streamer) active2Mesh(c coord.ChunkCoord) {
	s.mu.Lock()
	ch := s.active[c]
	s.mu.Unlock()
	if ch == nil {
		return
	}
	ch.GenerateMesh(s.cfg.tintParams())
	if len(ch.Mesh().Indices) == 0 {
		if s.onMeshCleared != nil {
			s.onMeshCleared(c)
		}
		return
	}
	if s.onMeshReady != nil {
		s.onMeshReady(c, ch)
	}
}

// RegenerateChunk invalidates the shared boundary store for c, regenerates
// its density field, and queues it for re-meshing (§4.10's regenerate API).
func (s *Streamer) RegenerateChunk(c coord.ChunkCoord) {
	s.mu.Lock()
	ch := s.active[c]
	s.mu.Unlock()
	if ch == nil {
		return
	}
	s.store.Invalidate(c)
	ch.GenerateDensityField(s.store, s.density)
	s.mu.Lock()
	s.meshQueue = append(s.meshQueue, c)
	s.mu.Unlock()
}

// RegenerateChunksInRadius regenerates every active chunk whose AABB
// intersects the given sphere.
func (s *Streamer) RegenerateChunksInRadius(center mgl32.Vec3, radius float32) {
	s.mu.Lock()
	var touched []coord.ChunkCoord
	for c := range s.active {
		if c.AABBIntersectsSphere(s.cfg.ChunkSize, center, radius) {
			touched = append(touched, c)
		}
	}
	s.mu.Unlock()

	for _, c := range touched {
		s.RegenerateChunk(c)
	}
}

// GetChunk returns an active chunk by coordinate, or nil.
func (s *Streamer) GetChunk(c coord.ChunkCoord) *voxelchunk.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[c]
}

// IsChunkLoaded reports whether c is in the active set.
func (s *Streamer) IsChunkLoaded(c coord.ChunkCoord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[c] != nil
}

// IsChunkPending reports whether c is in the pending set.
func (s *Streamer) IsChunkPending(c coord.ChunkCoord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[c]
}

// Stats reports the public streamer statistics (§6.2).
func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Active:         len(s.active),
		Pending:        len(s.pending),
		InProgress:     len(s.inProgress),
		MeshQueue:      len(s.meshQueue),
		TotalGenerated: s.totalGenerated.Load(),
		TotalUnloaded:  s.totalUnloaded.Load(),
	}
}
