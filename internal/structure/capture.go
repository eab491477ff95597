package structure

import (
	"fmt"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/geom"
	"voxelforge.ai/internal/sim/inventory"
)

// maxPrealloc bounds the up-front cell allocation; larger boxes grow as they
// are read.
const maxPrealloc = 1 << 16

// Capture reads every cell of box into a new unkeyed Snapshot. Box bounds are
// truncated toward zero; a box with zero extent on any axis yields an empty
// snapshot.
func Capture(w Reader, box geom.Box) (*Snapshot, error) {
	size, err := box.Extents()
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	origin := box.Origin()

	cells := make([]CellRecord, 0, min(size.Volume(), maxPrealloc))
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			for z := 0; z < size.Z; z++ {
				p := origin.Add(geom.Vec3i{X: x, Y: y, Z: z})
				rec, err := captureCell(w, p)
				if err != nil {
					return nil, err
				}
				cells = append(cells, rec)
			}
		}
	}
	return newSnapshot("", size, cells)
}

func captureCell(w Reader, p geom.Vec3i) (CellRecord, error) {
	st, err := w.BlockState(p)
	if err != nil {
		return CellRecord{}, fmt.Errorf("capture %v: %w", p, err)
	}
	if st.IsZero() {
		return CellRecord{}, fmt.Errorf("capture %v: no block state", p)
	}
	rec := CellRecord{BlockID: st.ID(), Properties: blockstate.EncodeState(st)}

	raw, ok := w.ContainerAt(p)
	if !ok {
		return rec, nil
	}
	for _, e := range inventory.Read(raw) {
		rec.Inventory = append(rec.Inventory, InventoryEntry{
			Item:   e.Stack.Ref(),
			Amount: e.Stack.Count,
			Slot:   e.Slot,
		})
	}
	return rec, nil
}
