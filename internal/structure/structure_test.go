package structure_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/geom"
	"voxelforge.ai/internal/sim/grid"
	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/simtest"
	"voxelforge.ai/internal/structure"
)

func v(x, y, z int) geom.Vec3i { return geom.Vec3i{X: x, Y: y, Z: z} }

// sampleWorld fills a 3x2x2 region at (10,20,10) with a mix of plain blocks,
// stateful blocks and containers.
func sampleWorld(t *testing.T, env *simtest.Env) (*grid.Grid, geom.Box) {
	t.Helper()
	g := env.NewGrid(1)
	o := v(10, 20, 10)
	simtest.Place(t, g, o, env.State(t, simtest.Stone, nil))
	simtest.Place(t, g, o.Add(v(1, 0, 0)), env.State(t, simtest.Log, map[string]string{"axis": "z"}))
	simtest.Place(t, g, o.Add(v(2, 0, 1)), env.State(t, simtest.Lever, map[string]string{"facing": "up", "powered": "true"}))

	chestPos := o.Add(v(0, 1, 1))
	simtest.Place(t, g, chestPos, env.State(t, simtest.Chest, map[string]string{"facing": "east"}))
	chest := simtest.Container(t, g, chestPos)
	require.NoError(t, chest.Set(0, inventory.Stack{Item: "core:stone", Count: 64}))
	require.NoError(t, chest.Set(13, inventory.Stack{Item: "core:coal", Variant: 1, Count: 7}))

	furnacePos := o.Add(v(2, 1, 0))
	simtest.Place(t, g, furnacePos, env.State(t, simtest.Furnace, map[string]string{"facing": "west", "lit": "false"}))
	furnace := simtest.Container(t, g, furnacePos)
	require.NoError(t, furnace.Set(1, inventory.Stack{Item: "core:coal", Count: 3}))

	return g, geom.BoxOf(o, o.Add(v(3, 2, 2)))
}

func generator(env *simtest.Env) *structure.Generator {
	return &structure.Generator{Blocks: env.Blocks, Items: env.Items, Loot: env.Loot}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	env := simtest.NewEnv(t)
	g, box := sampleWorld(t, env)

	snap, err := structure.Capture(g, box)
	require.NoError(t, err)
	snap = snap.WithKey("test:sample")
	require.Equal(t, v(3, 2, 2), snap.Size())
	require.Equal(t, 12, snap.Volume())

	raw, err := structure.Encode(snap)
	require.NoError(t, err)
	require.NoError(t, structure.ValidateSchema(raw))

	back, err := structure.DecodeResolved("test:sample", raw, env.Blocks)
	require.NoError(t, err)
	require.True(t, snap.Equal(back), "decoded snapshot differs")

	again, err := structure.Encode(back)
	require.NoError(t, err)
	require.JSONEq(t, string(raw), string(again))
}

func TestCaptureGenerate_Identity(t *testing.T) {
	env := simtest.NewEnv(t)
	src, box := sampleWorld(t, env)
	snap, err := structure.Capture(src, box)
	require.NoError(t, err)

	dst := env.NewGrid(2)
	base := v(-40, 3, 7)
	rep, err := generator(env).Generate(dst, snap, base)
	require.NoError(t, err)
	require.True(t, rep.OK(), "report: %s", rep)
	require.Equal(t, 5, rep.Placed)
	require.Equal(t, 7, rep.Air)
	require.Equal(t, 3, rep.Entries)

	size := snap.Size()
	again, err := structure.Capture(dst, geom.BoxOf(base, base.Add(size)))
	require.NoError(t, err)
	require.True(t, snap.Equal(again), "reconstructed region differs from the original")
}

func TestCapture_Scenario_SingleStone(t *testing.T) {
	env := simtest.NewEnv(t)
	g := env.NewGrid(1)
	simtest.Place(t, g, v(5, 10, 5), env.State(t, simtest.Stone, nil))

	snap, err := structure.Capture(g, geom.BoxOf(v(5, 10, 5), v(6, 11, 6)))
	require.NoError(t, err)
	require.Equal(t, v(1, 1, 1), snap.Size())

	raw, err := structure.Encode(snap)
	require.NoError(t, err)
	require.JSONEq(t, `{"blocks":[[[{"id":"core:stone","properties":{},"lootId":"","inventory":[]}]]]}`, string(raw))

	dst := env.NewGrid(1)
	_, err = generator(env).Generate(dst, snap, v(0, 64, 0))
	require.NoError(t, err)
	st, err := dst.BlockState(v(0, 64, 0))
	require.NoError(t, err)
	require.Equal(t, simtest.Stone, st.ID())
}

// recordingWorld remembers every position written through it.
type recordingWorld struct {
	*grid.Grid
	writes []geom.Vec3i
}

func (w *recordingWorld) SetBlockState(p geom.Vec3i, st blockstate.State) error {
	w.writes = append(w.writes, p)
	return w.Grid.SetBlockState(p, st)
}

func TestGenerate_Scenario_SingleStoneWritesOnlyBase(t *testing.T) {
	env := simtest.NewEnv(t)
	src := env.NewGrid(1)
	simtest.Place(t, src, v(5, 10, 5), env.State(t, simtest.Stone, nil))
	snap, err := structure.Capture(src, geom.Box{MinX: 5, MinY: 10, MinZ: 5, MaxX: 6, MaxY: 11, MaxZ: 6})
	require.NoError(t, err)

	dst := &recordingWorld{Grid: env.NewGrid(1)}
	rep, err := generator(env).Generate(dst, snap, v(5, 10, 5))
	require.NoError(t, err)
	require.Equal(t, 1, rep.Placed)
	require.Equal(t, []geom.Vec3i{v(5, 10, 5)}, dst.writes)

	st, err := dst.BlockState(v(5, 10, 5))
	require.NoError(t, err)
	require.Equal(t, simtest.Stone, st.ID())
}

func TestCapture_TruncatesFractionalBox(t *testing.T) {
	env := simtest.NewEnv(t)
	g := env.NewGrid(1)
	simtest.Place(t, g, v(1, 2, 3), env.State(t, simtest.Stone, nil))

	box := geom.Box{MinX: 1.9, MinY: 2.2, MinZ: 3.5, MaxX: 4.8, MaxY: 3.9, MaxZ: 4.1}
	snap, err := structure.Capture(g, box)
	require.NoError(t, err)
	// 2.9 -> 2, 1.7 -> 1, 0.6 -> 0
	require.Equal(t, v(2, 1, 0), snap.Size())

	box.MaxZ = 5.0
	snap, err = structure.Capture(g, box)
	require.NoError(t, err)
	rec, ok := snap.Cell(0, 0, 0)
	require.True(t, ok)
	require.Equal(t, simtest.Stone, rec.BlockID)
}

func TestCapture_ZeroExtent(t *testing.T) {
	env := simtest.NewEnv(t)
	g, _ := sampleWorld(t, env)

	snap, err := structure.Capture(g, geom.BoxOf(v(10, 20, 10), v(10, 22, 13)))
	require.NoError(t, err)
	require.Equal(t, 0, snap.Volume())
	require.Equal(t, v(0, 2, 3), snap.Size())

	raw, err := structure.Encode(snap)
	require.NoError(t, err)
	require.JSONEq(t, `{"blocks":[[],[]]}`, string(raw))

	back, err := structure.Decode("", raw)
	require.NoError(t, err)
	require.Equal(t, 0, back.Volume())
	require.True(t, snap.Equal(back))

	dst := env.NewGrid(1)
	rep, err := generator(env).Generate(dst, back, v(0, 0, 0))
	require.NoError(t, err)
	require.Zero(t, rep.Placed+rep.Air)
}

func TestCapture_NegativeExtent(t *testing.T) {
	env := simtest.NewEnv(t)
	g := env.NewGrid(1)
	_, err := structure.Capture(g, geom.BoxOf(v(5, 5, 5), v(4, 6, 6)))
	require.ErrorIs(t, err, structure.ErrInvalidBox)
}

func TestCapture_RejectsNonFiniteBox(t *testing.T) {
	env := simtest.NewEnv(t)
	g := env.NewGrid(1)
	_, err := structure.Capture(g, geom.Box{MaxX: math.NaN(), MaxY: 1, MaxZ: 1})
	require.ErrorIs(t, err, structure.ErrInvalidBox)
	_, err = structure.Capture(g, geom.Box{MaxX: 1, MaxY: 1, MaxZ: math.Inf(1)})
	require.ErrorIs(t, err, structure.ErrInvalidBox)
}

func TestCapture_HugeBoxDoesNotPanic(t *testing.T) {
	env := simtest.NewEnv(t)
	g := env.NewGrid(1)

	_, err := structure.Capture(g, geom.Box{MaxX: 1 << 21, MaxY: 1 << 21, MaxZ: 1 << 21})
	require.ErrorIs(t, err, structure.ErrBoxTooLarge)

	// Fits in an int but not in memory; the first read below MinY fails.
	_, err = structure.Capture(g, geom.Box{MinY: -1, MaxX: 1 << 20, MaxY: 1 << 20, MaxZ: 1 << 20})
	require.ErrorIs(t, err, grid.ErrOutOfBounds)
}

func TestCapture_PropagatesGridErrors(t *testing.T) {
	env := simtest.NewEnv(t)
	g := env.NewGrid(1)
	_, err := structure.Capture(g, geom.BoxOf(v(0, -1, 0), v(1, 1, 1)))
	require.ErrorIs(t, err, grid.ErrOutOfBounds)
}

func TestGenerate_LootFillsBeforeInventory(t *testing.T) {
	env := simtest.NewEnv(t)
	snap, err := structure.NewSnapshot("test:loot", v(1, 1, 1), []structure.CellRecord{{
		BlockID:    simtest.Chest,
		Properties: map[string]string{"facing": "north"},
		LootID:     simtest.DungeonLoot,
		Inventory:  []structure.InventoryEntry{{Item: "core:coal:1", Amount: 5, Slot: 4}},
	}})
	require.NoError(t, err)

	g := env.NewGrid(99)
	rep, err := generator(env).Generate(g, snap, v(0, 0, 0))
	require.NoError(t, err)
	require.True(t, rep.OK(), "report: %s", rep)
	require.Equal(t, 1, rep.LootFilled)

	c := simtest.Container(t, g, v(0, 0, 0))
	s, ok := c.Get(4)
	require.True(t, ok)
	require.Equal(t, inventory.Stack{Item: "core:coal", Variant: 1, Count: 5}, s)

	// 27 loot rolls land in all 27 empty slots; the explicit entry then
	// replaces slot 4.
	bread := 0
	for i := 0; i < c.Slots(); i++ {
		if s, ok := c.Get(i); ok && s.Item == "core:bread" {
			bread++
		}
	}
	require.Equal(t, 26, bread)
}

func TestGenerate_LootIsDeterministicPerWorldSeed(t *testing.T) {
	env := simtest.NewEnv(t)
	snap, err := structure.NewSnapshot("", v(1, 1, 1), []structure.CellRecord{{
		BlockID:    simtest.Chest,
		Properties: map[string]string{"facing": "north"},
		LootID:     simtest.DungeonLoot,
	}})
	require.NoError(t, err)

	contents := func() []inventory.Entry {
		g := env.NewGrid(1234)
		_, err := generator(env).Generate(g, snap, v(0, 0, 0))
		require.NoError(t, err)
		raw, _ := g.ContainerAt(v(0, 0, 0))
		return inventory.Read(raw)
	}
	require.Equal(t, contents(), contents())
}

func TestGenerate_DuplicateSlotsLastWins(t *testing.T) {
	env := simtest.NewEnv(t)
	snap, err := structure.NewSnapshot("", v(1, 1, 1), []structure.CellRecord{{
		BlockID:    simtest.Furnace,
		Properties: map[string]string{"facing": "north", "lit": "true"},
		Inventory: []structure.InventoryEntry{
			{Item: "core:coal", Amount: 1, Slot: 0},
			{Item: "core:bread", Amount: 2, Slot: 0},
		},
	}})
	require.NoError(t, err)

	g := env.NewGrid(1)
	_, err = generator(env).Generate(g, snap, v(0, 0, 0))
	require.NoError(t, err)
	s, ok := simtest.Container(t, g, v(0, 0, 0)).Get(0)
	require.True(t, ok)
	require.Equal(t, "core:bread", s.Item)
	require.Equal(t, 2, s.Count)
}

func TestGenerate_MalformedIdentifierIsFatalBeforePlacement(t *testing.T) {
	env := simtest.NewEnv(t)
	snap, err := structure.NewSnapshot("", v(2, 1, 1), []structure.CellRecord{
		{BlockID: simtest.Stone},
		{BlockID: "stone"},
	})
	require.NoError(t, err)

	g := env.NewGrid(1)
	_, err = generator(env).Generate(g, snap, v(0, 0, 0))
	require.ErrorIs(t, err, structure.ErrMalformedIdentifier)
	var ge *structure.GenerateError
	require.True(t, errors.As(err, &ge))
	require.Equal(t, v(1, 0, 0), ge.Rel)

	st, err := g.BlockState(v(0, 0, 0))
	require.NoError(t, err)
	require.Equal(t, simtest.Air, st.ID(), "nothing may be placed before the malformed cell is found")
}

func TestGenerate_SkipsCellsWithUnknownReferences(t *testing.T) {
	env := simtest.NewEnv(t)
	snap, err := structure.NewSnapshot("", v(4, 1, 1), []structure.CellRecord{
		{BlockID: "core:stome"},
		{BlockID: simtest.Chest, Properties: map[string]string{"facing": "north"},
			Inventory: []structure.InventoryEntry{{Item: "core:diamond", Amount: 1, Slot: 0}}},
		{BlockID: simtest.Chest, Properties: map[string]string{"facing": "north"}, LootID: "core:chests/missing"},
		{BlockID: simtest.Stone},
	})
	require.NoError(t, err)

	g := env.NewGrid(1)
	for x := 0; x < 4; x++ {
		simtest.Place(t, g, v(x, 0, 0), env.State(t, simtest.Log, map[string]string{"axis": "y"}))
	}
	rep, err := generator(env).Generate(g, snap, v(0, 0, 0))
	require.NoError(t, err)
	require.Len(t, rep.Skipped, 3)
	require.Equal(t, 1, rep.Placed)

	require.ErrorIs(t, rep.Skipped[0].Err, structure.ErrUnknownBlock)
	var ge *structure.GenerateError
	require.True(t, errors.As(rep.Skipped[0].Err, &ge))
	require.Equal(t, simtest.Stone, ge.Suggestion)
	require.ErrorIs(t, rep.Skipped[1].Err, structure.ErrUnknownItem)
	require.ErrorIs(t, rep.Skipped[2].Err, structure.ErrUnknownLootTable)

	// Skipped cells leave the destination untouched.
	for x := 0; x < 3; x++ {
		st, err := g.BlockState(v(x, 0, 0))
		require.NoError(t, err)
		require.Equal(t, simtest.Log, st.ID())
	}
	st, err := g.BlockState(v(3, 0, 0))
	require.NoError(t, err)
	require.Equal(t, simtest.Stone, st.ID())
}

func TestGenerate_PropertyMismatchSkipsCell(t *testing.T) {
	env := simtest.NewEnv(t)
	snap, err := structure.NewSnapshot("", v(1, 1, 1), []structure.CellRecord{{
		BlockID:    simtest.Lever,
		Properties: map[string]string{"facing": "sideways", "powered": "true"},
	}})
	require.NoError(t, err)

	rep, err := generator(env).Generate(env.NewGrid(1), snap, v(0, 0, 0))
	require.NoError(t, err)
	require.Len(t, rep.Skipped, 1)
	require.ErrorIs(t, rep.Skipped[0].Err, structure.ErrUnknownPropertyValue)
}

func TestGenerate_ReportsEntryFailures(t *testing.T) {
	env := simtest.NewEnv(t)
	snap, err := structure.NewSnapshot("", v(2, 1, 1), []structure.CellRecord{
		{BlockID: simtest.Furnace, Properties: map[string]string{"facing": "north", "lit": "false"},
			Inventory: []structure.InventoryEntry{
				{Item: "core:coal", Amount: 1, Slot: 9},
				{Item: "core:coal", Amount: 4, Slot: 1},
			}},
		{BlockID: simtest.Stone, Inventory: []structure.InventoryEntry{{Item: "core:coal", Amount: 1, Slot: 0}}},
	})
	require.NoError(t, err)

	g := env.NewGrid(1)
	rep, err := generator(env).Generate(g, snap, v(0, 0, 0))
	require.NoError(t, err)
	require.Len(t, rep.EntryErrors, 1)
	require.ErrorIs(t, rep.EntryErrors[0].Err, inventory.ErrSlotOutOfRange)
	require.Equal(t, 1, rep.Entries)
	require.Equal(t, 1, rep.Orphaned)

	s, ok := simtest.Container(t, g, v(0, 0, 0)).Get(1)
	require.True(t, ok)
	require.Equal(t, 4, s.Count)
}

func TestGenerate_ProgressPerLayer(t *testing.T) {
	env := simtest.NewEnv(t)
	src, box := sampleWorld(t, env)
	snap, err := structure.Capture(src, box)
	require.NoError(t, err)

	var calls [][2]int
	gen := generator(env)
	gen.Progress = func(done, total int) { calls = append(calls, [2]int{done, total}) }
	_, err = gen.Generate(env.NewGrid(1), snap, v(0, 0, 0))
	require.NoError(t, err)
	require.Equal(t, [][2]int{{6, 12}, {12, 12}}, calls)
}

func TestGenerate_WorldWriteFailureIsFatal(t *testing.T) {
	env := simtest.NewEnv(t)
	snap, err := structure.NewSnapshot("", v(1, 2, 1), []structure.CellRecord{
		{BlockID: simtest.Stone},
		{BlockID: simtest.Stone},
	})
	require.NoError(t, err)

	g := env.NewGrid(1)
	rep, err := generator(env).Generate(g, snap, v(0, g.MaxY-1, 0))
	require.ErrorIs(t, err, grid.ErrOutOfBounds)
	require.Equal(t, 1, rep.Placed)
}
