package blockstate

import (
	"fmt"
	"sort"
	"strings"

	"voxelforge.ai/internal/sim/ids"
)

type ContainerShape string

const (
	ContainerNone ContainerShape = ""
	// ContainerSlots is the classic slot-indexed inventory.
	ContainerSlots ContainerShape = "slots"
	// ContainerHandler is the capability-handler inventory.
	ContainerHandler ContainerShape = "handler"
)

type ContainerSpec struct {
	Shape ContainerShape
	Size  int
}

// BlockType is a registered block with its declared property set.
type BlockType struct {
	id        string
	props     []*Property
	index     map[string]int
	container ContainerSpec
}

func NewBlockType(id string, container ContainerSpec, props ...*Property) (*BlockType, error) {
	if _, err := ids.ParseResourceID(id); err != nil {
		return nil, fmt.Errorf("block type: %w", err)
	}
	switch container.Shape {
	case ContainerNone:
	case ContainerSlots, ContainerHandler:
		if container.Size <= 0 {
			return nil, fmt.Errorf("block type %s: container size must be > 0", id)
		}
	default:
		return nil, fmt.Errorf("block type %s: unknown container shape %q", id, container.Shape)
	}
	bt := &BlockType{
		id:        id,
		props:     make([]*Property, 0, len(props)),
		index:     make(map[string]int, len(props)),
		container: container,
	}
	for _, p := range props {
		if p == nil {
			return nil, fmt.Errorf("block type %s: nil property", id)
		}
		if _, dup := bt.index[p.Name()]; dup {
			return nil, fmt.Errorf("block type %s: duplicate property %q", id, p.Name())
		}
		bt.index[p.Name()] = len(bt.props)
		bt.props = append(bt.props, p)
	}
	return bt, nil
}

func (bt *BlockType) ID() string               { return bt.id }
func (bt *BlockType) Container() ContainerSpec { return bt.container }

func (bt *BlockType) Properties() []*Property {
	out := make([]*Property, len(bt.props))
	copy(out, bt.props)
	return out
}

func (bt *BlockType) Property(name string) (*Property, bool) {
	i, ok := bt.index[name]
	if !ok {
		return nil, false
	}
	return bt.props[i], true
}

func (bt *BlockType) PropertyNames() []string {
	out := make([]string, len(bt.props))
	for i, p := range bt.props {
		out[i] = p.Name()
	}
	return out
}

// Default is the state with every property at the first value of its domain.
func (bt *BlockType) Default() State {
	vals := make([]Value, len(bt.props))
	for i, p := range bt.props {
		vals[i] = p.defaultValue()
	}
	return State{typ: bt, values: vals}
}

// State is an immutable block state: a type plus one value per declared
// property. The zero State has no type.
type State struct {
	typ    *BlockType
	values []Value
}

func (s State) IsZero() bool     { return s.typ == nil }
func (s State) Type() *BlockType { return s.typ }

func (s State) ID() string {
	if s.typ == nil {
		return ""
	}
	return s.typ.id
}

func (s State) Get(name string) (Value, bool) {
	if s.typ == nil {
		return nil, false
	}
	i, ok := s.typ.index[name]
	if !ok {
		return nil, false
	}
	return s.values[i], true
}

// With returns a copy of s with the named property set to v.
func (s State) With(name string, v Value) (State, error) {
	if s.typ == nil {
		return s, fmt.Errorf("blockstate: With on zero state")
	}
	i, ok := s.typ.index[name]
	if !ok {
		return s, &PropertyError{Err: ErrUnknownProperty, BlockID: s.typ.id, Property: name}
	}
	if _, ok := s.typ.props[i].NameOf(v); !ok {
		return s, &PropertyError{Err: ErrUnknownPropertyValue, BlockID: s.typ.id, Property: name, Value: fmt.Sprint(v)}
	}
	vals := make([]Value, len(s.values))
	copy(vals, s.values)
	vals[i] = v
	return State{typ: s.typ, values: vals}, nil
}

func (s State) Equal(o State) bool {
	if s.typ != o.typ || len(s.values) != len(o.values) {
		return false
	}
	for i := range s.values {
		if s.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// Key is a stable textual form "id[k=v,...]" with properties sorted by name.
func (s State) Key() string {
	if s.typ == nil {
		return ""
	}
	if len(s.values) == 0 {
		return s.typ.id
	}
	parts := make([]string, 0, len(s.values))
	for i, p := range s.typ.props {
		n, _ := p.NameOf(s.values[i])
		parts = append(parts, p.Name()+"="+n)
	}
	sort.Strings(parts)
	return s.typ.id + "[" + strings.Join(parts, ",") + "]"
}

func (s State) String() string { return s.Key() }
