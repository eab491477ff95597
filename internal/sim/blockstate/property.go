package blockstate

import (
	"fmt"
	"strconv"
)

type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Value is a typed property value. The concrete types are Bool, Int and Enum;
// all are comparable so they can key the per-property domain tables.
type Value interface {
	Kind() Kind
}

type Bool bool

func (Bool) Kind() Kind { return KindBool }

type Int int

func (Int) Kind() Kind { return KindInt }

// Enum is one constant of an enum property. Ordinal is the declaration index
// and is never persisted; Name is the canonical string form.
type Enum struct {
	Ordinal int
	Name    string
}

func (Enum) Kind() Kind { return KindEnum }

// Property is a named block property with a closed value domain. The domain
// tables are built once at construction and never mutated.
type Property struct {
	name   string
	kind   Kind
	values []Value
	byName map[string]Value
	names  map[Value]string
}

func newProperty(name string, kind Kind, values []Value, names []string) (*Property, error) {
	if name == "" {
		return nil, fmt.Errorf("property: empty name")
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("property %s: empty value domain", name)
	}
	p := &Property{
		name:   name,
		kind:   kind,
		values: values,
		byName: make(map[string]Value, len(values)),
		names:  make(map[Value]string, len(values)),
	}
	for i, v := range values {
		n := names[i]
		if n == "" {
			return nil, fmt.Errorf("property %s: empty value name", name)
		}
		if _, dup := p.byName[n]; dup {
			return nil, fmt.Errorf("property %s: duplicate value %q", name, n)
		}
		p.byName[n] = v
		p.names[v] = n
	}
	return p, nil
}

func NewBool(name string) (*Property, error) {
	return newProperty(name, KindBool, []Value{Bool(false), Bool(true)}, []string{"false", "true"})
}

// NewInt declares an integer property over the inclusive range [min, max].
func NewInt(name string, min, max int) (*Property, error) {
	if max < min {
		return nil, fmt.Errorf("property %s: bad range [%d,%d]", name, min, max)
	}
	values := make([]Value, 0, max-min+1)
	names := make([]string, 0, max-min+1)
	for i := min; i <= max; i++ {
		values = append(values, Int(i))
		names = append(names, strconv.Itoa(i))
	}
	return newProperty(name, KindInt, values, names)
}

func NewEnum(name string, constants ...string) (*Property, error) {
	values := make([]Value, len(constants))
	for i, c := range constants {
		values[i] = Enum{Ordinal: i, Name: c}
	}
	return newProperty(name, KindEnum, values, constants)
}

func (p *Property) Name() string { return p.name }
func (p *Property) Kind() Kind   { return p.kind }

// Values returns the allowed domain in declaration order.
func (p *Property) Values() []Value {
	out := make([]Value, len(p.values))
	copy(out, p.values)
	return out
}

// ValueNames returns the canonical names in declaration order.
func (p *Property) ValueNames() []string {
	out := make([]string, len(p.values))
	for i, v := range p.values {
		out[i] = p.names[v]
	}
	return out
}

func (p *Property) NameOf(v Value) (string, bool) {
	if v == nil {
		return "", false
	}
	n, ok := p.names[v]
	return n, ok
}

func (p *Property) ValueOf(name string) (Value, bool) {
	v, ok := p.byName[name]
	return v, ok
}

func (p *Property) defaultValue() Value { return p.values[0] }
