package structure

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/geom"
	"voxelforge.ai/internal/sim/ids"
)

// Persisted layout:
//
//	{"blocks": [ Y [ X [ Z cell ] ] ]}
//	cell  = {"id", "properties", "lootId", "inventory"}
//	entry = {"item", "amount", "slot"}

type entryDoc struct {
	Item   string `json:"item"`
	Amount int    `json:"amount"`
	Slot   int    `json:"slot"`
}

type cellDoc struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	LootID     string            `json:"lootId"`
	Inventory  []entryDoc        `json:"inventory"`
}

type document struct {
	Blocks [][][]cellDoc `json:"blocks"`
}

// Encode serializes s. Every cell carries all four fields.
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("encode structure: nil snapshot")
	}
	doc := document{Blocks: make([][][]cellDoc, s.size.Y)}
	for y := range doc.Blocks {
		doc.Blocks[y] = make([][]cellDoc, s.size.X)
		for x := range doc.Blocks[y] {
			row := make([]cellDoc, s.size.Z)
			for z := range row {
				rec := &s.cells[s.index(x, y, z)]
				c := cellDoc{
					ID:         rec.BlockID,
					Properties: rec.Properties,
					LootID:     rec.LootID,
					Inventory:  make([]entryDoc, 0, len(rec.Inventory)),
				}
				if c.Properties == nil {
					c.Properties = map[string]string{}
				}
				for _, e := range rec.Inventory {
					c.Inventory = append(c.Inventory, entryDoc{Item: e.Item, Amount: e.Amount, Slot: e.Slot})
				}
				row[z] = c
			}
			doc.Blocks[y][x] = row
		}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode structure: %w", err)
	}
	return b, nil
}

// Wire shapes with pointer fields so absent keys are distinguishable.
type rawEntry struct {
	Item   *string `json:"item"`
	Amount *int    `json:"amount"`
	Slot   *int    `json:"slot"`
}

type rawCell struct {
	ID         *string            `json:"id"`
	Properties *map[string]string `json:"properties"`
	LootID     *string            `json:"lootId"`
	Inventory  *[]rawEntry        `json:"inventory"`
}

type rawDocument struct {
	Blocks *[][][]json.RawMessage `json:"blocks"`
}

func malformed(path string, err error) *DecodeError {
	return &DecodeError{Kind: ErrMalformedDocument, Path: path, Err: err}
}

// Decode parses a document into a Snapshot keyed by key. It fails as a whole
// on the first problem found; identifiers are checked for syntax only.
func Decode(key string, raw []byte) (*Snapshot, error) {
	var doc rawDocument
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, malformed("", err)
	}
	if dec.More() {
		return nil, malformed("", errors.New("trailing data after document"))
	}
	if doc.Blocks == nil {
		return nil, &DecodeError{Kind: ErrMissingField, Path: "blocks"}
	}
	blocks := *doc.Blocks

	sizeY, sizeX, sizeZ := len(blocks), 0, 0
	if sizeY > 0 {
		sizeX = len(blocks[0])
		if sizeX > 0 {
			sizeZ = len(blocks[0][0])
		}
	}
	cells := make([]CellRecord, 0, sizeX*sizeY*sizeZ)
	for y, plane := range blocks {
		if len(plane) != sizeX {
			return nil, &DecodeError{Kind: ErrMalformedShape, Path: fmt.Sprintf("blocks[%d]", y),
				Detail: fmt.Sprintf("%d rows, want %d", len(plane), sizeX)}
		}
		for x, row := range plane {
			if len(row) != sizeZ {
				return nil, &DecodeError{Kind: ErrMalformedShape, Path: fmt.Sprintf("blocks[%d][%d]", y, x),
					Detail: fmt.Sprintf("%d cells, want %d", len(row), sizeZ)}
			}
		}
	}
	// Cells are stored y, x, z; the document nests the same way.
	for y, plane := range blocks {
		for x, row := range plane {
			for z, msg := range row {
				rec, err := decodeCell(fmt.Sprintf("blocks[%d][%d][%d]", y, x, z), msg)
				if err != nil {
					return nil, err
				}
				cells = append(cells, rec)
			}
		}
	}

	// An empty outer axis leaves the inner extents unknown; they decode as 0.
	return newSnapshot(key, geom.Vec3i{X: sizeX, Y: sizeY, Z: sizeZ}, cells)
}

func decodeCell(path string, msg json.RawMessage) (CellRecord, error) {
	var c rawCell
	if err := json.Unmarshal(msg, &c); err != nil {
		return CellRecord{}, malformed(path, err)
	}
	if c.ID == nil {
		return CellRecord{}, &DecodeError{Kind: ErrMissingField, Path: path + ".id"}
	}
	if c.Properties == nil {
		return CellRecord{}, &DecodeError{Kind: ErrMissingField, Path: path + ".properties"}
	}
	rec := CellRecord{BlockID: *c.ID, Properties: *c.Properties}
	if rec.Properties == nil {
		rec.Properties = map[string]string{}
	}
	if rec.BlockID != "" {
		if _, err := ids.ParseResourceID(rec.BlockID); err != nil {
			return CellRecord{}, &DecodeError{Kind: ErrMalformedIdentifier, Path: path + ".id", Err: err}
		}
	}
	if c.LootID != nil && *c.LootID != "" {
		if _, err := ids.ParseResourceID(*c.LootID); err != nil {
			return CellRecord{}, &DecodeError{Kind: ErrMalformedIdentifier, Path: path + ".lootId", Err: err}
		}
		rec.LootID = *c.LootID
	}
	if c.Inventory == nil {
		return rec, nil
	}
	for i, e := range *c.Inventory {
		ep := fmt.Sprintf("%s.inventory[%d]", path, i)
		switch {
		case e.Item == nil:
			return CellRecord{}, &DecodeError{Kind: ErrMissingField, Path: ep + ".item"}
		case e.Amount == nil:
			return CellRecord{}, &DecodeError{Kind: ErrMissingField, Path: ep + ".amount"}
		case e.Slot == nil:
			return CellRecord{}, &DecodeError{Kind: ErrMissingField, Path: ep + ".slot"}
		}
		if _, err := ids.ParseItemRef(*e.Item); err != nil {
			return CellRecord{}, &DecodeError{Kind: ErrMalformedIdentifier, Path: ep + ".item", Err: err}
		}
		if *e.Amount <= 0 {
			return CellRecord{}, &DecodeError{Kind: ErrInvalidField, Path: ep + ".amount", Detail: fmt.Sprintf("%d <= 0", *e.Amount)}
		}
		if *e.Slot < 0 {
			return CellRecord{}, &DecodeError{Kind: ErrInvalidField, Path: ep + ".slot", Detail: fmt.Sprintf("%d < 0", *e.Slot)}
		}
		rec.Inventory = append(rec.Inventory, InventoryEntry{Item: *e.Item, Amount: *e.Amount, Slot: *e.Slot})
	}
	return rec, nil
}

// DecodeResolved decodes raw and checks every cell whose block type is
// registered in blocks against that type's declared properties, air
// included. Cells naming unregistered blocks, and cells with an empty id,
// pass through untouched.
func DecodeResolved(key string, raw []byte, blocks *blockstate.Registry) (*Snapshot, error) {
	s, err := Decode(key, raw)
	if err != nil {
		return nil, err
	}
	for i := range s.cells {
		rec := &s.cells[i]
		if rec.BlockID == "" {
			continue
		}
		bt, ok := blocks.Lookup(rec.BlockID)
		if !ok {
			continue
		}
		if _, err := blockstate.DecodeState(bt, rec.Properties); err != nil {
			return nil, &DecodeError{Kind: propertyKind(err), Path: s.cellPath(i) + ".properties", Err: err}
		}
	}
	return s, nil
}

func (s *Snapshot) cellPath(i int) string {
	z := i % s.size.Z
	x := (i / s.size.Z) % s.size.X
	y := i / (s.size.Z * s.size.X)
	return fmt.Sprintf("blocks[%d][%d][%d]", y, x, z)
}
