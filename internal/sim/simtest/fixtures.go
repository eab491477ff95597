// Package simtest builds small in-code registries and grids for tests.
package simtest

import (
	"testing"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/geom"
	"voxelforge.ai/internal/sim/grid"
	"voxelforge.ai/internal/sim/ids"
	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/loot"
)

const (
	Air     = "core:air"
	Stone   = "core:stone"
	Log     = "core:log"
	Lever   = "core:lever"
	Chest   = "core:chest"
	Furnace = "core:furnace"

	DungeonLoot = "core:chests/dungeon"
)

type Env struct {
	Blocks *blockstate.Registry
	Items  *inventory.Items
	Loot   *loot.Tables
}

func must[T any](t testing.TB) func(T, error) T {
	return func(v T, err error) T {
		t.Helper()
		if err != nil {
			t.Fatalf("simtest: %v", err)
		}
		return v
	}
}

func NewEnv(t testing.TB) *Env {
	t.Helper()
	prop := must[*blockstate.Property](t)
	block := must[*blockstate.BlockType](t)

	facing4 := prop(blockstate.NewEnum("facing", "north", "south", "west", "east"))
	facing6 := prop(blockstate.NewEnum("facing", "north", "south", "west", "east", "up", "down"))
	axis := prop(blockstate.NewEnum("axis", "x", "y", "z"))
	powered := prop(blockstate.NewBool("powered"))
	lit := prop(blockstate.NewBool("lit"))

	blocks := must[*blockstate.Registry](t)(blockstate.NewRegistry(block(blockstate.NewBlockType(Air, blockstate.ContainerSpec{}))))
	for _, bt := range []*blockstate.BlockType{
		block(blockstate.NewBlockType(Stone, blockstate.ContainerSpec{})),
		block(blockstate.NewBlockType(Log, blockstate.ContainerSpec{}, axis)),
		block(blockstate.NewBlockType(Lever, blockstate.ContainerSpec{}, facing6, powered)),
		block(blockstate.NewBlockType(Chest, blockstate.ContainerSpec{Shape: blockstate.ContainerSlots, Size: 27}, facing4)),
		block(blockstate.NewBlockType(Furnace, blockstate.ContainerSpec{Shape: blockstate.ContainerHandler, Size: 3}, facing4, lit)),
	} {
		if err := blocks.Register(bt); err != nil {
			t.Fatalf("simtest: %v", err)
		}
	}

	items := must[*inventory.Items](t)(inventory.NewItems(
		inventory.ItemDef{ID: "core:stone"},
		inventory.ItemDef{ID: "core:coal", Variants: 2},
		inventory.ItemDef{ID: "core:bread"},
		inventory.ItemDef{ID: "core:dye", Variants: 16},
	))

	bread := must[ids.ItemRef](t)(ids.ParseItemRef("core:bread"))
	tables := must[*loot.Tables](t)(loot.NewTables(&loot.Table{
		ID: DungeonLoot,
		Pools: []loot.Pool{{
			MinRolls: 27,
			MaxRolls: 27,
			Entries:  []loot.Entry{{Item: bread, Weight: 1, MinCount: 1, MaxCount: 3}},
		}},
	}))

	return &Env{Blocks: blocks, Items: items, Loot: tables}
}

// State decodes a block state from canonical property names.
func (e *Env) State(t testing.TB, id string, props map[string]string) blockstate.State {
	t.Helper()
	bt, ok := e.Blocks.Lookup(id)
	if !ok {
		t.Fatalf("simtest: unknown block %s", id)
	}
	st, err := blockstate.DecodeState(bt, props)
	if err != nil {
		t.Fatalf("simtest: %v", err)
	}
	return st
}

func (e *Env) NewGrid(seed int64) *grid.Grid { return grid.New(e.Blocks, seed) }

// Place sets a block and fails the test on error.
func Place(t testing.TB, g *grid.Grid, p geom.Vec3i, st blockstate.State) {
	t.Helper()
	if err := g.SetBlockState(p, st); err != nil {
		t.Fatalf("simtest: place %v: %v", p, err)
	}
}

// Container returns the uniform container at p, failing if none is attached.
func Container(t testing.TB, g *grid.Grid, p geom.Vec3i) inventory.Container {
	t.Helper()
	raw, ok := g.ContainerAt(p)
	if !ok {
		t.Fatalf("simtest: no container at %v", p)
	}
	c, ok := inventory.Adapt(raw)
	if !ok {
		t.Fatalf("simtest: unrecognized container at %v", p)
	}
	return c
}
