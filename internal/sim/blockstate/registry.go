package blockstate

import (
	"fmt"
	"sort"

	"voxelforge.ai/internal/sim/ids"
)

// Registry maps block identifiers to types. One type is designated as the
// empty (air) block.
type Registry struct {
	air  *BlockType
	byID map[string]*BlockType
	ids  []string
}

func NewRegistry(air *BlockType) (*Registry, error) {
	if air == nil {
		return nil, fmt.Errorf("blockstate: nil air type")
	}
	if len(air.props) != 0 || air.container.Shape != ContainerNone {
		return nil, fmt.Errorf("blockstate: air type %s must have no properties or container", air.id)
	}
	r := &Registry{air: air, byID: map[string]*BlockType{}}
	if err := r.Register(air); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) Register(bt *BlockType) error {
	if bt == nil {
		return fmt.Errorf("blockstate: nil block type")
	}
	if _, dup := r.byID[bt.id]; dup {
		return fmt.Errorf("blockstate: duplicate block type %s", bt.id)
	}
	r.byID[bt.id] = bt
	i := sort.SearchStrings(r.ids, bt.id)
	r.ids = append(r.ids, "")
	copy(r.ids[i+1:], r.ids[i:])
	r.ids[i] = bt.id
	return nil
}

func (r *Registry) Lookup(id string) (*BlockType, bool) {
	bt, ok := r.byID[id]
	return bt, ok
}

func (r *Registry) AirID() string { return r.air.id }
func (r *Registry) Air() State    { return r.air.Default() }

// IsEmpty reports whether id denotes the empty block: either the air type
// or the empty string.
func (r *Registry) IsEmpty(id string) bool { return id == "" || id == r.air.id }

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *Registry) Len() int { return len(r.ids) }

// Suggest returns the registered id closest to id, or "".
func (r *Registry) Suggest(id string) string { return ids.Closest(id, r.ids) }
