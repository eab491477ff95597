package blockstate

import (
	"errors"
	"fmt"
	"sort"

	"voxelforge.ai/internal/sim/ids"
)

var (
	ErrUnknownProperty      = errors.New("unknown property")
	ErrUnknownPropertyValue = errors.New("unknown property value")
	ErrMissingProperty      = errors.New("missing property")
)

// PropertyError reports a property that cannot be encoded or decoded for a
// block type. Err is one of the Err* sentinels above.
type PropertyError struct {
	Err        error
	BlockID    string
	Property   string
	Value      string
	Suggestion string
}

func (e *PropertyError) Error() string {
	msg := fmt.Sprintf("%s: %s.%s", e.Err, e.BlockID, e.Property)
	if e.Value != "" {
		msg += fmt.Sprintf("=%q", e.Value)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *PropertyError) Unwrap() error { return e.Err }

func lookupProperty(bt *BlockType, prop string) (*Property, error) {
	p, ok := bt.Property(prop)
	if !ok {
		return nil, &PropertyError{
			Err:        ErrUnknownProperty,
			BlockID:    bt.id,
			Property:   prop,
			Suggestion: ids.Closest(prop, bt.PropertyNames()),
		}
	}
	return p, nil
}

// Encode returns the canonical name of v for the named property of bt.
func Encode(bt *BlockType, prop string, v Value) (string, error) {
	p, err := lookupProperty(bt, prop)
	if err != nil {
		return "", err
	}
	n, ok := p.NameOf(v)
	if !ok {
		return "", &PropertyError{Err: ErrUnknownPropertyValue, BlockID: bt.id, Property: prop, Value: fmt.Sprint(v)}
	}
	return n, nil
}

// Decode resolves a canonical name back to the typed value.
func Decode(bt *BlockType, prop, name string) (Value, error) {
	p, err := lookupProperty(bt, prop)
	if err != nil {
		return nil, err
	}
	v, ok := p.ValueOf(name)
	if !ok {
		return nil, &PropertyError{
			Err:        ErrUnknownPropertyValue,
			BlockID:    bt.id,
			Property:   prop,
			Value:      name,
			Suggestion: ids.Closest(name, p.ValueNames()),
		}
	}
	return v, nil
}

// EncodeState returns the full property map of s in canonical names.
func EncodeState(s State) map[string]string {
	out := make(map[string]string, len(s.values))
	if s.typ == nil {
		return out
	}
	for i, p := range s.typ.props {
		n, _ := p.NameOf(s.values[i])
		out[p.Name()] = n
	}
	return out
}

// DecodeState rebuilds a state of bt from canonical names. props must name
// exactly the declared property set of bt.
func DecodeState(bt *BlockType, props map[string]string) (State, error) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vals := make([]Value, len(bt.props))
	for _, k := range keys {
		v, err := Decode(bt, k, props[k])
		if err != nil {
			return State{}, err
		}
		vals[bt.index[k]] = v
	}
	for i, p := range bt.props {
		if vals[i] == nil {
			return State{}, &PropertyError{Err: ErrMissingProperty, BlockID: bt.id, Property: p.Name()}
		}
	}
	return State{typ: bt, values: vals}, nil
}
