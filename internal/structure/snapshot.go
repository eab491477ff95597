package structure

import (
	"fmt"
	"sort"

	"voxelforge.ai/internal/sim/geom"
)

// InventoryEntry is one container slot restored on reconstruction.
type InventoryEntry struct {
	Item   string
	Amount int
	Slot   int
}

// CellRecord is the captured content of one grid cell.
type CellRecord struct {
	BlockID    string
	Properties map[string]string
	// LootID names a loot table filled into the cell's container before
	// Inventory is applied; "" disables the fallback.
	LootID    string
	Inventory []InventoryEntry
}

func (c CellRecord) Clone() CellRecord {
	out := CellRecord{BlockID: c.BlockID, LootID: c.LootID}
	if c.Properties != nil {
		out.Properties = make(map[string]string, len(c.Properties))
		for k, v := range c.Properties {
			out.Properties[k] = v
		}
	}
	if c.Inventory != nil {
		out.Inventory = append([]InventoryEntry(nil), c.Inventory...)
	}
	return out
}

// Equal compares field by field; nil and empty maps/slices are equal.
func (c CellRecord) Equal(o CellRecord) bool {
	if c.BlockID != o.BlockID || c.LootID != o.LootID {
		return false
	}
	if len(c.Properties) != len(o.Properties) || len(c.Inventory) != len(o.Inventory) {
		return false
	}
	for k, v := range c.Properties {
		if ov, ok := o.Properties[k]; !ok || ov != v {
			return false
		}
	}
	for i := range c.Inventory {
		if c.Inventory[i] != o.Inventory[i] {
			return false
		}
	}
	return true
}

// Snapshot is an immutable captured volume. Cells are stored densely in
// y-major, then x, then z order, matching the persisted nesting.
type Snapshot struct {
	key   string
	size  geom.Vec3i
	cells []CellRecord
}

// NewSnapshot copies cells into a new Snapshot. len(cells) must equal the
// volume of size.
func NewSnapshot(key string, size geom.Vec3i, cells []CellRecord) (*Snapshot, error) {
	own := make([]CellRecord, len(cells))
	for i, c := range cells {
		own[i] = c.Clone()
	}
	return newSnapshot(key, size, own)
}

func newSnapshot(key string, size geom.Vec3i, cells []CellRecord) (*Snapshot, error) {
	if size.X < 0 || size.Y < 0 || size.Z < 0 {
		return nil, fmt.Errorf("snapshot: negative size %v", size)
	}
	vol, err := size.CheckedVolume()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if len(cells) != vol {
		return nil, fmt.Errorf("snapshot: %d cells for size %v", len(cells), size)
	}
	return &Snapshot{key: key, size: size, cells: cells}, nil
}

func (s *Snapshot) Key() string      { return s.key }
func (s *Snapshot) Size() geom.Vec3i { return s.size }
func (s *Snapshot) Volume() int      { return len(s.cells) }

// WithKey returns a Snapshot with a different registry key sharing the same
// immutable cells.
func (s *Snapshot) WithKey(key string) *Snapshot {
	return &Snapshot{key: key, size: s.size, cells: s.cells}
}

func (s *Snapshot) index(x, y, z int) int {
	return (y*s.size.X+x)*s.size.Z + z
}

func (s *Snapshot) inBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < s.size.X && y < s.size.Y && z < s.size.Z
}

// Cell returns a copy of the record at (x, y, z).
func (s *Snapshot) Cell(x, y, z int) (CellRecord, bool) {
	if !s.inBounds(x, y, z) {
		return CellRecord{}, false
	}
	return s.cells[s.index(x, y, z)].Clone(), true
}

// Each visits every cell in y, x, z order with a read-only view of the
// record. fn must not retain or modify rec's map or slice.
func (s *Snapshot) Each(fn func(rel geom.Vec3i, rec *CellRecord) error) error {
	for y := 0; y < s.size.Y; y++ {
		for x := 0; x < s.size.X; x++ {
			for z := 0; z < s.size.Z; z++ {
				if err := fn(geom.Vec3i{X: x, Y: y, Z: z}, &s.cells[s.index(x, y, z)]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Equal reports whether two snapshots hold the same cells. Zero-volume
// snapshots compare equal regardless of per-axis size, since the persisted
// shape cannot express the extent of axes nested under an empty one.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.key != o.key || len(s.cells) != len(o.cells) {
		return false
	}
	if len(s.cells) == 0 {
		return true
	}
	if s.size != o.size {
		return false
	}
	for i := range s.cells {
		if !s.cells[i].Equal(o.cells[i]) {
			return false
		}
	}
	return true
}

type BlockCount struct {
	BlockID string
	Count   int
}

// BlockHistogram counts cells per block id, most frequent first.
func (s *Snapshot) BlockHistogram() []BlockCount {
	counts := map[string]int{}
	for _, c := range s.cells {
		counts[c.BlockID]++
	}
	out := make([]BlockCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, BlockCount{BlockID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].BlockID < out[j].BlockID
	})
	return out
}

// ContainerCells counts cells that carry a loot id or inventory entries.
func (s *Snapshot) ContainerCells() int {
	n := 0
	for _, c := range s.cells {
		if c.LootID != "" || len(c.Inventory) > 0 {
			n++
		}
	}
	return n
}
