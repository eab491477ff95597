package loot

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"voxelforge.ai/internal/sim/ids"
	"voxelforge.ai/internal/sim/inventory"
)

var ErrUnknownTable = errors.New("unknown loot table")

type Entry struct {
	Item     ids.ItemRef
	Weight   int
	MinCount int
	MaxCount int
}

type Pool struct {
	MinRolls   int
	MaxRolls   int
	BonusRolls float64
	Entries    []Entry
}

type Table struct {
	ID    string
	Pools []Pool
}

// Context carries the environment a table is rolled in.
type Context struct {
	Pos  [3]int
	Luck float64
}

// Resolver looks tables up by identifier.
type Resolver interface {
	Resolve(id string) (*Table, error)
}

func (t *Table) validate() error {
	if _, err := ids.ParseResourceID(t.ID); err != nil {
		return fmt.Errorf("loot table: %w", err)
	}
	for i, p := range t.Pools {
		if p.MinRolls < 0 || p.MaxRolls < p.MinRolls {
			return fmt.Errorf("loot table %s pool %d: bad rolls [%d,%d]", t.ID, i, p.MinRolls, p.MaxRolls)
		}
		for j, e := range p.Entries {
			if e.Weight <= 0 {
				return fmt.Errorf("loot table %s pool %d entry %d: weight must be > 0", t.ID, i, j)
			}
			if e.MinCount <= 0 || e.MaxCount < e.MinCount {
				return fmt.Errorf("loot table %s pool %d entry %d: bad count [%d,%d]", t.ID, i, j, e.MinCount, e.MaxCount)
			}
		}
	}
	return nil
}

func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// Generate rolls every pool and returns the produced stacks.
func (t *Table) Generate(rng *rand.Rand, ctx Context) []inventory.Stack {
	var out []inventory.Stack
	for _, p := range t.Pools {
		total := 0
		for _, e := range p.Entries {
			total += e.Weight
		}
		if total == 0 {
			continue
		}
		rolls := between(rng, p.MinRolls, p.MaxRolls) + int(math.Floor(p.BonusRolls*ctx.Luck))
		for r := 0; r < rolls; r++ {
			pick := rng.Intn(total)
			for _, e := range p.Entries {
				if pick < e.Weight {
					out = append(out, inventory.Stack{
						Item:    e.Item.ID.String(),
						Variant: e.Item.Variant,
						Count:   between(rng, e.MinCount, e.MaxCount),
					})
					break
				}
				pick -= e.Weight
			}
		}
	}
	return out
}

// Fill generates the table's stacks and places each one into a random empty
// slot of c. Stacks that find no empty slot are dropped.
func (t *Table) Fill(c inventory.Container, rng *rand.Rand, ctx Context) error {
	if c == nil {
		return nil
	}
	var empty []int
	for i := 0; i < c.Slots(); i++ {
		if _, ok := c.Get(i); !ok {
			empty = append(empty, i)
		}
	}
	rng.Shuffle(len(empty), func(i, j int) { empty[i], empty[j] = empty[j], empty[i] })

	for _, s := range t.Generate(rng, ctx) {
		if len(empty) == 0 {
			break
		}
		slot := empty[len(empty)-1]
		empty = empty[:len(empty)-1]
		if err := c.Set(slot, s); err != nil {
			return fmt.Errorf("loot table %s: %w", t.ID, err)
		}
	}
	return nil
}

// Tables is an in-memory Resolver.
type Tables struct {
	byID map[string]*Table
	ids  []string
}

func NewTables(tables ...*Table) (*Tables, error) {
	ts := &Tables{byID: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("loot: nil table")
		}
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, dup := ts.byID[t.ID]; dup {
			return nil, fmt.Errorf("loot table %s: duplicate", t.ID)
		}
		ts.byID[t.ID] = t
		ts.ids = append(ts.ids, t.ID)
	}
	sort.Strings(ts.ids)
	return ts, nil
}

func (ts *Tables) Resolve(id string) (*Table, error) {
	if t, ok := ts.byID[id]; ok {
		return t, nil
	}
	if s := ids.Closest(id, ts.ids); s != "" {
		return nil, fmt.Errorf("%w: %s (did you mean %q?)", ErrUnknownTable, id, s)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTable, id)
}

func (ts *Tables) IDs() []string {
	out := make([]string, len(ts.ids))
	copy(out, ts.ids)
	return out
}
