// Package persist handles optional persistence of terrain modifications
// (§6.5): only the sparse {index -> delta} deltas a player has carved are
// saved, never the base density field, which is a pure function of seed and
// configuration and is regenerated on load.
package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kvossen/planetforge/internal/coord"
	"github.com/kvossen/planetforge/internal/voxelchunk"
)

// ChunkDelta is the serializable sparse modification record for one chunk.
type ChunkDelta struct {
	X      int32        `json:"x"`
	Y      int32        `json:"y"`
	Z      int32        `json:"z"`
	Deltas []IndexDelta `json:"deltas"`
}

// IndexDelta is a single lattice-index delta entry.
type IndexDelta struct {
	X     int32   `json:"x"`
	Y     int32   `json:"y"`
	Z     int32   `json:"z"`
	Value float32 `json:"v"`
}

// Store persists chunk deltas under dir/chunks/<x>_<y>_<z>.json.
type Store struct {
	dir string
	log *slog.Logger
}

// New creates a Store rooted at dir, creating the chunks subdirectory.
func New(dir string, log *slog.Logger) (*Store, error) {
	chunkDir := filepath.Join(dir, "chunks")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk delta directory %s: %w", chunkDir, err)
	}
	return &Store{dir: chunkDir, log: log}, nil
}

func (s *Store) pathFor(c coord.ChunkCoord) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d_%d_%d.json", c.X, c.Y, c.Z))
}

// SaveModified writes c's sparse delta set if it has been modified, encoding
// every lattice sample that differs from what a fresh density evaluation
// would produce. base must be the chunk's lattice immediately after
// GenerateDensityField, before any Modify calls.
func (s *Store) SaveModified(c coord.ChunkCoord, resolution int32, base, current []float32) error {
	var deltas []IndexDelta
	n := resolution + 1
	for x := int32(0); x < n; x++ {
		for y := int32(0); y < n; y++ {
			for z := int32(0); z < n; z++ {
				i := x*n*n + y*n + z
				if base[i] != current[i] {
					deltas = append(deltas, IndexDelta{X: x, Y: y, Z: z, Value: current[i] - base[i]})
				}
			}
		}
	}
	if len(deltas) == 0 {
		return s.remove(c)
	}
	return s.atomicWriteJSON(s.pathFor(c), ChunkDelta{X: c.X, Y: c.Y, Z: c.Z, Deltas: deltas})
}

// Load reads c's persisted deltas, or returns (nil, nil) if none exist.
func (s *Store) Load(c coord.ChunkCoord) (*ChunkDelta, error) {
	data, err := os.ReadFile(s.pathFor(c))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chunk delta %v: %w", c, err)
	}
	var cd ChunkDelta
	if err := json.Unmarshal(data, &cd); err != nil {
		return nil, fmt.Errorf("parse chunk delta %v: %w", c, err)
	}
	return &cd, nil
}

// Apply re-applies a loaded delta set onto a freshly generated chunk,
// matching the additive semantics Modify uses so that a save/load round
// trip reproduces a bitwise-identical lattice.
func Apply(ch *voxelchunk.Chunk, cd *ChunkDelta) {
	if cd == nil {
		return
	}
	for _, d := range cd.Deltas {
		// ApplyRawDelta adds the delta to exactly this lattice sample,
		// without Modify's radius/falloff shaping and without disturbing
		// any other sample.
		ch.ApplyRawDelta(d.X, d.Y, d.Z, d.Value)
	}
}

func (s *Store) remove(c coord.ChunkCoord) error {
	err := os.Remove(s.pathFor(c))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale chunk delta %v: %w", c, err)
	}
	return nil
}

// atomicWriteJSON marshals v to JSON and writes it atomically using a temp
// file plus rename, the same pattern config.Save uses.
func (s *Store) atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunk delta json: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
