package grid

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/geom"
	"voxelforge.ai/internal/sim/inventory"
)

const ChunkSize = 16

var ErrOutOfBounds = errors.New("position out of bounds")

type ChunkKey struct {
	CX, CY, CZ int
}

// Chunk holds palette indices for a 16x16x16 cube. Index 0 is air.
type Chunk struct {
	Key    ChunkKey
	Blocks []uint16
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*ChunkSize + y*ChunkSize*ChunkSize
}

func (c *Chunk) empty() bool {
	for _, b := range c.Blocks {
		if b != 0 {
			return false
		}
	}
	return true
}

// Grid is an in-memory sparse block grid with attached containers. It is not
// safe for concurrent use.
type Grid struct {
	blocks *blockstate.Registry

	// MinY/MaxY bound the vertical axis (inclusive/exclusive).
	MinY, MaxY int

	palette []blockstate.State
	index   map[string]uint16

	chunks     map[ChunkKey]*Chunk
	containers map[geom.Vec3i]any

	seed int64
	rng  *rand.Rand
}

func New(blocks *blockstate.Registry, seed int64) *Grid {
	g := &Grid{
		blocks:     blocks,
		MinY:       0,
		MaxY:       256,
		index:      map[string]uint16{},
		chunks:     map[ChunkKey]*Chunk{},
		containers: map[geom.Vec3i]any{},
		seed:       seed,
		rng:        rand.New(rand.NewSource(seed)),
	}
	g.intern(blocks.Air())
	return g
}

func (g *Grid) Registry() *blockstate.Registry { return g.blocks }
func (g *Grid) Seed() int64                    { return g.seed }

// Rand is the grid's own randomness source.
func (g *Grid) Rand() *rand.Rand { return g.rng }

func (g *Grid) InBounds(p geom.Vec3i) bool { return p.Y >= g.MinY && p.Y < g.MaxY }

func (g *Grid) intern(st blockstate.State) (uint16, error) {
	k := st.Key()
	if i, ok := g.index[k]; ok {
		return i, nil
	}
	if len(g.palette) >= 1<<16 {
		return 0, fmt.Errorf("grid: palette full")
	}
	i := uint16(len(g.palette))
	g.palette = append(g.palette, st)
	g.index[k] = i
	return i, nil
}

func split(p geom.Vec3i) (ChunkKey, int, int, int) {
	k := ChunkKey{
		CX: geom.FloorDiv(p.X, ChunkSize),
		CY: geom.FloorDiv(p.Y, ChunkSize),
		CZ: geom.FloorDiv(p.Z, ChunkSize),
	}
	return k, geom.Mod(p.X, ChunkSize), geom.Mod(p.Y, ChunkSize), geom.Mod(p.Z, ChunkSize)
}

func (g *Grid) BlockState(p geom.Vec3i) (blockstate.State, error) {
	if !g.InBounds(p) {
		return blockstate.State{}, fmt.Errorf("%w: %v", ErrOutOfBounds, p)
	}
	k, x, y, z := split(p)
	ch := g.chunks[k]
	if ch == nil {
		return g.palette[0], nil
	}
	return g.palette[ch.Blocks[ch.index(x, y, z)]], nil
}

// SetBlockState places st at p. The previous container, if any, is dropped
// and a fresh empty one is attached when st's type declares a container.
func (g *Grid) SetBlockState(p geom.Vec3i, st blockstate.State) error {
	if st.IsZero() {
		return fmt.Errorf("grid: zero block state at %v", p)
	}
	if !g.InBounds(p) {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, p)
	}
	idx, err := g.intern(st)
	if err != nil {
		return err
	}
	k, x, y, z := split(p)
	ch := g.chunks[k]
	if ch == nil {
		if idx == 0 {
			delete(g.containers, p)
			return nil
		}
		ch = &Chunk{Key: k, Blocks: make([]uint16, ChunkSize*ChunkSize*ChunkSize)}
		g.chunks[k] = ch
	}
	ch.Blocks[ch.index(x, y, z)] = idx

	delete(g.containers, p)
	switch spec := st.Type().Container(); spec.Shape {
	case blockstate.ContainerSlots:
		g.containers[p] = inventory.NewChest(spec.Size)
	case blockstate.ContainerHandler:
		g.containers[p] = inventory.NewHandler(spec.Size)
	}
	return nil
}

func (g *Grid) ContainerAt(p geom.Vec3i) (any, bool) {
	c, ok := g.containers[p]
	return c, ok
}

// Compact drops chunks that hold only air.
func (g *Grid) Compact() {
	for k, ch := range g.chunks {
		if ch.empty() {
			delete(g.chunks, k)
		}
	}
}

func (g *Grid) ChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(g.chunks))
	for k := range g.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// ContainerPositions lists positions with an attached container, sorted.
func (g *Grid) ContainerPositions() []geom.Vec3i {
	out := make([]geom.Vec3i, 0, len(g.containers))
	for p := range g.containers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].Z < out[j].Z
	})
	return out
}
