package structure

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/geom"
	"voxelforge.ai/internal/sim/ids"
	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/loot"
)

// ItemRegistry resolves persisted item references.
type ItemRegistry interface {
	Has(ref ids.ItemRef) bool
	Suggest(id string) string
}

// Generator replays snapshots onto a World.
type Generator struct {
	Blocks *blockstate.Registry
	Items  ItemRegistry
	// Loot may be nil, in which case every loot id is unknown.
	Loot loot.Resolver

	Logger *log.Logger
	// Progress, if set, is called after each completed Y layer.
	Progress func(done, total int)
}

// CellIssue is a cell or slot that was not fully reconstructed.
type CellIssue struct {
	Rel geom.Vec3i
	Pos geom.Vec3i
	Err error
}

type Report struct {
	Key  string
	Base geom.Vec3i
	Size geom.Vec3i

	Placed int
	Air    int
	// LootFilled counts containers filled from a loot table.
	LootFilled int
	Entries    int
	// Orphaned counts cells whose loot or inventory had no container to land
	// in at the destination.
	Orphaned int

	// Skipped cells were left untouched in the world.
	Skipped []CellIssue
	// EntryErrors are individual loot fills or inventory entries that failed
	// after their cell was placed.
	EntryErrors []CellIssue
}

func (r *Report) OK() bool { return len(r.Skipped) == 0 && len(r.EntryErrors) == 0 }

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "key=%q base=%v size=%v placed=%d air=%d loot=%d entries=%d orphaned=%d skipped=%d entry_errors=%d",
		r.Key, r.Base, r.Size, r.Placed, r.Air, r.LootFilled, r.Entries, r.Orphaned, len(r.Skipped), len(r.EntryErrors))
	return b.String()
}

// cellPlan is everything needed to write one cell, resolved up front so a
// registry miss never leaves a half-built cell behind.
type cellPlan struct {
	state   blockstate.State
	table   *loot.Table
	entries []inventory.Entry
}

func (g *Generator) logf(format string, args ...any) {
	if g.Logger != nil {
		g.Logger.Printf(format, args...)
	}
}

// Generate rebuilds s with its origin at base. Malformed identifiers abort
// the call before anything is placed. Cells referencing unknown blocks,
// items, loot tables or properties are skipped and reported. A world write
// failure aborts the call; cells placed before it remain.
func (g *Generator) Generate(w World, s *Snapshot, base geom.Vec3i) (*Report, error) {
	if g.Blocks == nil {
		return nil, errors.New("generate: nil block registry")
	}
	if s == nil {
		return nil, errors.New("generate: nil snapshot")
	}
	if err := checkIdentifiers(s, base); err != nil {
		return nil, err
	}

	rep := &Report{Key: s.Key(), Base: base, Size: s.Size()}
	total, done := s.Volume(), 0
	layer := s.size.X * s.size.Z

	err := s.Each(func(rel geom.Vec3i, rec *CellRecord) error {
		pos := base.Add(rel)
		if err := g.generateCell(w, rel, pos, rec, rep); err != nil {
			return err
		}
		done++
		if g.Progress != nil && layer > 0 && done%layer == 0 {
			g.Progress(done, total)
		}
		return nil
	})
	if err != nil {
		return rep, err
	}
	g.logf("generate %s", rep)
	return rep, nil
}

func (g *Generator) generateCell(w World, rel, pos geom.Vec3i, rec *CellRecord, rep *Report) error {
	if g.Blocks.IsEmpty(rec.BlockID) {
		if err := w.SetBlockState(pos, g.Blocks.Air()); err != nil {
			return fmt.Errorf("generate %v: %w", pos, err)
		}
		rep.Air++
		return nil
	}

	plan, gerr := g.plan(rel, pos, rec)
	if gerr != nil {
		g.logf("generate: skip %v", gerr)
		rep.Skipped = append(rep.Skipped, CellIssue{Rel: rel, Pos: pos, Err: gerr})
		return nil
	}
	if err := w.SetBlockState(pos, plan.state); err != nil {
		return fmt.Errorf("generate %v: %w", pos, err)
	}
	rep.Placed++

	if plan.table == nil && len(plan.entries) == 0 {
		return nil
	}
	raw, _ := w.ContainerAt(pos)
	c, ok := inventory.Adapt(raw)
	if !ok {
		g.logf("generate: %v %s has no container, contents dropped", pos, rec.BlockID)
		rep.Orphaned++
		return nil
	}

	if plan.table != nil {
		if err := plan.table.Fill(c, w.Rand(), loot.Context{Pos: pos.ToArray()}); err != nil {
			g.logf("generate: %v loot %s: %v", pos, plan.table.ID, err)
			rep.EntryErrors = append(rep.EntryErrors, CellIssue{Rel: rel, Pos: pos, Err: err})
		} else {
			rep.LootFilled++
		}
	}
	for _, e := range plan.entries {
		if err := c.Set(e.Slot, e.Stack); err != nil {
			err = fmt.Errorf("item %s slot %d: %w", e.Stack.Ref(), e.Slot, err)
			g.logf("generate: %v %v", pos, err)
			rep.EntryErrors = append(rep.EntryErrors, CellIssue{Rel: rel, Pos: pos, Err: err})
			continue
		}
		rep.Entries++
	}
	return nil
}

func (g *Generator) plan(rel, pos geom.Vec3i, rec *CellRecord) (*cellPlan, error) {
	bt, ok := g.Blocks.Lookup(rec.BlockID)
	if !ok {
		return nil, &GenerateError{Kind: ErrUnknownBlock, Rel: rel, Pos: pos, ID: rec.BlockID, Suggestion: g.Blocks.Suggest(rec.BlockID)}
	}
	st, err := blockstate.DecodeState(bt, rec.Properties)
	if err != nil {
		return nil, &GenerateError{Kind: propertyKind(err), Rel: rel, Pos: pos, ID: rec.BlockID, Err: err}
	}
	p := &cellPlan{state: st}

	if rec.LootID != "" {
		if g.Loot == nil {
			return nil, &GenerateError{Kind: ErrUnknownLootTable, Rel: rel, Pos: pos, ID: rec.LootID}
		}
		t, err := g.Loot.Resolve(rec.LootID)
		if err != nil {
			return nil, &GenerateError{Kind: ErrUnknownLootTable, Rel: rel, Pos: pos, ID: rec.LootID, Err: err}
		}
		p.table = t
	}

	for _, e := range rec.Inventory {
		ref, err := ids.ParseItemRef(e.Item)
		if err != nil {
			// checkIdentifiers already rejected these.
			return nil, &GenerateError{Kind: ErrMalformedIdentifier, Rel: rel, Pos: pos, ID: e.Item, Err: err}
		}
		if g.Items == nil || !g.Items.Has(ref) {
			ge := &GenerateError{Kind: ErrUnknownItem, Rel: rel, Pos: pos, ID: e.Item}
			if g.Items != nil {
				ge.Suggestion = g.Items.Suggest(ref.ID.String())
			}
			return nil, ge
		}
		p.entries = append(p.entries, inventory.Entry{
			Slot:  e.Slot,
			Stack: inventory.Stack{Item: ref.ID.String(), Variant: ref.Variant, Count: e.Amount},
		})
	}
	return p, nil
}

// checkIdentifiers rejects snapshots carrying identifiers that cannot be
// parsed at all, or entries with impossible amounts or slots.
func checkIdentifiers(s *Snapshot, base geom.Vec3i) error {
	return s.Each(func(rel geom.Vec3i, rec *CellRecord) error {
		fail := func(kind error, id string, err error) error {
			return &GenerateError{Kind: kind, Rel: rel, Pos: base.Add(rel), ID: id, Err: err}
		}
		if rec.BlockID != "" {
			if _, err := ids.ParseResourceID(rec.BlockID); err != nil {
				return fail(ErrMalformedIdentifier, rec.BlockID, err)
			}
		}
		if rec.LootID != "" {
			if _, err := ids.ParseResourceID(rec.LootID); err != nil {
				return fail(ErrMalformedIdentifier, rec.LootID, err)
			}
		}
		for _, e := range rec.Inventory {
			if _, err := ids.ParseItemRef(e.Item); err != nil {
				return fail(ErrMalformedIdentifier, e.Item, err)
			}
			if e.Amount <= 0 || e.Slot < 0 {
				return fail(ErrInvalidField, e.Item, fmt.Errorf("amount %d slot %d", e.Amount, e.Slot))
			}
		}
		return nil
	})
}
