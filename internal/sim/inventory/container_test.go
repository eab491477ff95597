package inventory

import (
	"errors"
	"testing"

	"voxelforge.ai/internal/sim/ids"
)

// both implements both container shapes; the slot shape must win.
type both struct {
	*Chest
	h *Handler
}

func (b both) Slots() int                            { return b.h.Slots() }
func (b both) GetStackInSlot(slot int) (Stack, bool) { return b.h.GetStackInSlot(slot) }
func (b both) SetStackInSlot(slot int, s Stack)      { b.h.SetStackInSlot(slot, s) }

func TestAdapt_DispatchesOnShape(t *testing.T) {
	if _, ok := Adapt(nil); ok {
		t.Fatalf("nil must not adapt")
	}
	if _, ok := Adapt("not a container"); ok {
		t.Fatalf("unrelated value must not adapt")
	}
	c, ok := Adapt(NewChest(27))
	if !ok || c.Slots() != 27 {
		t.Fatalf("chest adapt: ok=%v", ok)
	}
	h, ok := Adapt(NewHandler(3))
	if !ok || h.Slots() != 3 {
		t.Fatalf("handler adapt: ok=%v", ok)
	}

	b := both{Chest: NewChest(2), h: NewHandler(5)}
	a, _ := Adapt(b)
	if a.Slots() != 2 {
		t.Fatalf("expected slot shape to win, got %d slots", a.Slots())
	}
}

func TestReadSkipsEmptySlots(t *testing.T) {
	for name, raw := range map[string]any{"chest": NewChest(5), "handler": NewHandler(5)} {
		c, _ := Adapt(raw)
		_ = c.Set(1, Stack{Item: "core:coal", Count: 4})
		_ = c.Set(3, Stack{Item: "core:dye", Variant: 2, Count: 1})
		got := Read(raw)
		if len(got) != 2 || got[0].Slot != 1 || got[1].Slot != 3 {
			t.Fatalf("%s: Read=%+v", name, got)
		}
		if got[1].Stack.Ref() != "core:dye:2" || got[0].Stack.Ref() != "core:coal" {
			t.Fatalf("%s: refs %q %q", name, got[0].Stack.Ref(), got[1].Stack.Ref())
		}
	}
}

func TestWrite_LastEntryWinsAndLeavesOthers(t *testing.T) {
	chest := NewChest(4)
	chest.SetInventorySlotContents(0, Stack{Item: "core:stone", Count: 9})
	errs := Write(chest, []Entry{
		{Slot: 2, Stack: Stack{Item: "core:coal", Count: 1}},
		{Slot: 2, Stack: Stack{Item: "core:coal", Count: 7}},
		{Slot: 9, Stack: Stack{Item: "core:coal", Count: 1}},
	})
	if len(errs) != 1 || !errors.Is(errs[0], ErrSlotOutOfRange) {
		t.Fatalf("errs=%v", errs)
	}
	if s, ok := chest.StackInSlot(2); !ok || s.Count != 7 {
		t.Fatalf("slot 2=%+v ok=%v", s, ok)
	}
	if s, ok := chest.StackInSlot(0); !ok || s.Item != "core:stone" {
		t.Fatalf("slot 0 must be untouched, got %+v", s)
	}
}

func TestWrite_NoContainerIsNoop(t *testing.T) {
	if errs := Write(nil, []Entry{{Slot: 0, Stack: Stack{Item: "core:coal", Count: 1}}}); errs != nil {
		t.Fatalf("errs=%v", errs)
	}
	if got := Read(nil); got != nil {
		t.Fatalf("Read(nil)=%v", got)
	}
}

func TestItems_Has(t *testing.T) {
	items, err := NewItems(ItemDef{ID: "core:coal"}, ItemDef{ID: "core:dye", Variants: 16})
	if err != nil {
		t.Fatalf("NewItems: %v", err)
	}
	ref := func(s string) ids.ItemRef {
		r, err := ids.ParseItemRef(s)
		if err != nil {
			t.Fatalf("ParseItemRef(%q): %v", s, err)
		}
		return r
	}
	cases := map[string]bool{
		"core:coal":    true,
		"core:coal:1":  false,
		"core:dye:15":  true,
		"core:dye:16":  false,
		"core:carrot":  false,
		"other:coal":   false,
	}
	for s, want := range cases {
		if got := items.Has(ref(s)); got != want {
			t.Fatalf("Has(%q)=%v want %v", s, got, want)
		}
	}
	if got := items.Suggest("core:cole"); got != "core:coal" {
		t.Fatalf("Suggest=%q", got)
	}
}
