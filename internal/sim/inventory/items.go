package inventory

import (
	"fmt"
	"sort"

	"voxelforge.ai/internal/sim/ids"
)

type ItemDef struct {
	ID string
	// Variants is the number of sub-types; 0 means the item has none and only
	// variant 0 is valid.
	Variants int
}

// Items is the item registry used to resolve persisted item references.
type Items struct {
	defs map[string]ItemDef
	ids  []string
}

func NewItems(defs ...ItemDef) (*Items, error) {
	r := &Items{defs: make(map[string]ItemDef, len(defs))}
	for _, d := range defs {
		if _, err := ids.ParseResourceID(d.ID); err != nil {
			return nil, fmt.Errorf("item: %w", err)
		}
		if d.Variants < 0 {
			return nil, fmt.Errorf("item %s: negative variants", d.ID)
		}
		if _, dup := r.defs[d.ID]; dup {
			return nil, fmt.Errorf("item %s: duplicate", d.ID)
		}
		r.defs[d.ID] = d
		r.ids = append(r.ids, d.ID)
	}
	sort.Strings(r.ids)
	return r, nil
}

func (r *Items) Lookup(id string) (ItemDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Has reports whether ref names a registered item and a valid variant.
func (r *Items) Has(ref ids.ItemRef) bool {
	d, ok := r.defs[ref.ID.String()]
	if !ok {
		return false
	}
	if d.Variants == 0 {
		return ref.Variant == 0
	}
	return ref.Variant < d.Variants
}

func (r *Items) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *Items) Suggest(id string) string { return ids.Closest(id, r.ids) }
