package grid

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/encoding"
	"voxelforge.ai/internal/sim/geom"
	"voxelforge.ai/internal/sim/inventory"
)

const fileVersion = 1

type Header struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`
	Chunks  int   `json:"chunks"`
}

type FileV1 struct {
	Header Header

	MinY, MaxY int
	Palette    []StateV1
	Chunks     []ChunkV1
	Containers []ContainerV1
}

type StateV1 struct {
	ID         string
	Properties map[string]string
}

type ChunkV1 struct {
	CX, CY, CZ int
	// Blocks is AppendRLE of the chunk's palette indices.
	Blocks []byte
}

type ContainerV1 struct {
	Pos   [3]int
	Slots []SlotV1
}

type SlotV1 struct {
	Slot    int
	Item    string
	Variant int
	Count   int
}

// Export converts the grid into its persisted form. The random source state
// is not captured; a reloaded grid is reseeded from Seed.
func (g *Grid) Export() FileV1 {
	g.Compact()
	f := FileV1{
		Header: Header{Version: fileVersion, Seed: g.seed, Chunks: len(g.chunks)},
		MinY:   g.MinY,
		MaxY:   g.MaxY,
	}
	for _, st := range g.palette {
		f.Palette = append(f.Palette, StateV1{ID: st.ID(), Properties: blockstate.EncodeState(st)})
	}
	for _, k := range g.ChunkKeys() {
		ch := g.chunks[k]
		f.Chunks = append(f.Chunks, ChunkV1{CX: k.CX, CY: k.CY, CZ: k.CZ, Blocks: encoding.AppendRLE(nil, ch.Blocks)})
	}
	for _, p := range g.ContainerPositions() {
		entries := inventory.Read(g.containers[p])
		if len(entries) == 0 {
			continue
		}
		c := ContainerV1{Pos: p.ToArray()}
		for _, e := range entries {
			c.Slots = append(c.Slots, SlotV1{Slot: e.Slot, Item: e.Stack.Item, Variant: e.Stack.Variant, Count: e.Stack.Count})
		}
		f.Containers = append(f.Containers, c)
	}
	return f
}

// Import rebuilds a grid, resolving every palette state against blocks.
func Import(blocks *blockstate.Registry, f FileV1) (*Grid, error) {
	if f.Header.Version != fileVersion {
		return nil, fmt.Errorf("grid file version %d unsupported", f.Header.Version)
	}
	g := New(blocks, f.Header.Seed)
	g.MinY, g.MaxY = f.MinY, f.MaxY

	remap := make([]uint16, len(f.Palette))
	for i, s := range f.Palette {
		bt, ok := blocks.Lookup(s.ID)
		if !ok {
			return nil, fmt.Errorf("grid palette %d: unknown block %s", i, s.ID)
		}
		st, err := blockstate.DecodeState(bt, s.Properties)
		if err != nil {
			return nil, fmt.Errorf("grid palette %d: %w", i, err)
		}
		idx, err := g.intern(st)
		if err != nil {
			return nil, err
		}
		remap[i] = idx
	}

	const n = ChunkSize * ChunkSize * ChunkSize
	for _, c := range f.Chunks {
		raw, err := encoding.DecodeRLE(c.Blocks, n)
		if err != nil {
			return nil, fmt.Errorf("grid chunk %d,%d,%d: %w", c.CX, c.CY, c.CZ, err)
		}
		k := ChunkKey{CX: c.CX, CY: c.CY, CZ: c.CZ}
		ch := &Chunk{Key: k, Blocks: make([]uint16, n)}
		for i, b := range raw {
			if int(b) >= len(remap) {
				return nil, fmt.Errorf("grid chunk %d,%d,%d: palette index %d out of range", c.CX, c.CY, c.CZ, b)
			}
			ch.Blocks[i] = remap[b]
			st := g.palette[ch.Blocks[i]]
			spec := st.Type().Container()
			if spec.Shape == blockstate.ContainerNone {
				continue
			}
			y, rem := i/(ChunkSize*ChunkSize), i%(ChunkSize*ChunkSize)
			z, x := rem/ChunkSize, rem%ChunkSize
			p := geom.Vec3i{X: k.CX*ChunkSize + x, Y: k.CY*ChunkSize + y, Z: k.CZ*ChunkSize + z}
			if spec.Shape == blockstate.ContainerSlots {
				g.containers[p] = inventory.NewChest(spec.Size)
			} else {
				g.containers[p] = inventory.NewHandler(spec.Size)
			}
		}
		g.chunks[k] = ch
	}

	for _, c := range f.Containers {
		p := geom.FromArray(c.Pos)
		raw, ok := g.containers[p]
		if !ok {
			return nil, fmt.Errorf("grid container at %v: block has no container", p)
		}
		entries := make([]inventory.Entry, 0, len(c.Slots))
		for _, s := range c.Slots {
			entries = append(entries, inventory.Entry{Slot: s.Slot, Stack: inventory.Stack{Item: s.Item, Variant: s.Variant, Count: s.Count}})
		}
		if errs := inventory.Write(raw, entries); len(errs) > 0 {
			return nil, fmt.Errorf("grid container at %v: %w", p, errs[0])
		}
	}
	return g, nil
}

// WriteFile stores the grid as a JSON header line followed by a gob body,
// both inside one zstd stream.
func WriteFile(path string, g *Grid) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	body := g.Export()
	hb, _ := json.Marshal(body.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&body); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func ReadFile(path string, blocks *blockstate.Registry) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	// The header line is informational; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var body FileV1
	if err := gob.NewDecoder(br).Decode(&body); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return Import(blocks, body)
}
