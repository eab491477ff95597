package inventory

import (
	"errors"
	"fmt"

	"voxelforge.ai/internal/sim/ids"
)

var ErrSlotOutOfRange = errors.New("slot out of range")

// Stack is a non-empty item stack. Item is the namespaced id without the
// variant suffix.
type Stack struct {
	Item    string
	Variant int
	Count   int
}

func (s Stack) IsEmpty() bool { return s.Item == "" || s.Count <= 0 }

// Ref is the persisted identifier "ns:item[:variant]".
func (s Stack) Ref() string {
	r, err := ids.ParseResourceID(s.Item)
	if err != nil {
		return s.Item
	}
	return ids.ItemRef{ID: r, Variant: s.Variant}.String()
}

// SlotInventory is the classic slot-indexed container shape.
type SlotInventory interface {
	SizeInventory() int
	StackInSlot(slot int) (Stack, bool)
	SetInventorySlotContents(slot int, s Stack)
}

// ItemHandler is the capability-handler container shape.
type ItemHandler interface {
	Slots() int
	GetStackInSlot(slot int) (Stack, bool)
	SetStackInSlot(slot int, s Stack)
}

// Container is the uniform contract over both shapes.
type Container interface {
	Slots() int
	Get(slot int) (Stack, bool)
	Set(slot int, s Stack) error
}

// Adapt wraps a raw attached container in the uniform contract. The slot
// shape wins when a value implements both.
func Adapt(raw any) (Container, bool) {
	switch c := raw.(type) {
	case nil:
		return nil, false
	case SlotInventory:
		return slotAdapter{c}, true
	case ItemHandler:
		return handlerAdapter{c}, true
	default:
		return nil, false
	}
}

type slotAdapter struct{ inv SlotInventory }

func (a slotAdapter) Slots() int                 { return a.inv.SizeInventory() }
func (a slotAdapter) Get(slot int) (Stack, bool) { return a.inv.StackInSlot(slot) }

func (a slotAdapter) Set(slot int, s Stack) error {
	if slot < 0 || slot >= a.inv.SizeInventory() {
		return fmt.Errorf("%w: %d (size %d)", ErrSlotOutOfRange, slot, a.inv.SizeInventory())
	}
	a.inv.SetInventorySlotContents(slot, s)
	return nil
}

type handlerAdapter struct{ h ItemHandler }

func (a handlerAdapter) Slots() int                 { return a.h.Slots() }
func (a handlerAdapter) Get(slot int) (Stack, bool) { return a.h.GetStackInSlot(slot) }

func (a handlerAdapter) Set(slot int, s Stack) error {
	if slot < 0 || slot >= a.h.Slots() {
		return fmt.Errorf("%w: %d (size %d)", ErrSlotOutOfRange, slot, a.h.Slots())
	}
	a.h.SetStackInSlot(slot, s)
	return nil
}

// Entry is one occupied slot.
type Entry struct {
	Slot  int
	Stack Stack
}

// Read lists the occupied slots of raw in slot order. Empty slots are
// skipped; a cell without a recognized container yields nil.
func Read(raw any) []Entry {
	c, ok := Adapt(raw)
	if !ok {
		return nil
	}
	var out []Entry
	for i := 0; i < c.Slots(); i++ {
		s, ok := c.Get(i)
		if !ok || s.IsEmpty() {
			continue
		}
		out = append(out, Entry{Slot: i, Stack: s})
	}
	return out
}

// Write sets each entry's slot in order, so a later entry for the same slot
// overwrites an earlier one. Slots not named are left untouched. Entries that
// cannot be written are returned alongside their error; a cell without a
// container is a no-op.
func Write(raw any, entries []Entry) []error {
	c, ok := Adapt(raw)
	if !ok {
		return nil
	}
	var errs []error
	for _, e := range entries {
		if err := c.Set(e.Slot, e.Stack); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
