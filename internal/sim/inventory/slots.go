package inventory

// Chest is a fixed-size SlotInventory.
type Chest struct {
	slots []Stack
}

func NewChest(size int) *Chest { return &Chest{slots: make([]Stack, size)} }

func (c *Chest) SizeInventory() int { return len(c.slots) }

func (c *Chest) StackInSlot(slot int) (Stack, bool) {
	if slot < 0 || slot >= len(c.slots) || c.slots[slot].IsEmpty() {
		return Stack{}, false
	}
	return c.slots[slot], true
}

func (c *Chest) SetInventorySlotContents(slot int, s Stack) {
	if slot < 0 || slot >= len(c.slots) {
		return
	}
	if s.IsEmpty() {
		s = Stack{}
	}
	c.slots[slot] = s
}

// Handler is a fixed-size ItemHandler.
type Handler struct {
	stacks []Stack
}

func NewHandler(size int) *Handler { return &Handler{stacks: make([]Stack, size)} }

func (h *Handler) Slots() int { return len(h.stacks) }

func (h *Handler) GetStackInSlot(slot int) (Stack, bool) {
	if slot < 0 || slot >= len(h.stacks) || h.stacks[slot].IsEmpty() {
		return Stack{}, false
	}
	return h.stacks[slot], true
}

func (h *Handler) SetStackInSlot(slot int, s Stack) {
	if slot < 0 || slot >= len(h.stacks) {
		return
	}
	if s.IsEmpty() {
		s = Stack{}
	}
	h.stacks[slot] = s
}
