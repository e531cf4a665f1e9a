package ir

// Block is an ordered, intrusive doubly-linked list of instructions. A
// block is terminated when its last instruction is a Terminator; nothing
// may follow a terminator.
type Block struct {
	first, last *Instruction
	length      int
	parent      ControlInstruction
}

// NewBlock creates an empty, unparented block.
func NewBlock() *Block { return &Block{} }

// Front returns the first instruction, or nil if the block is empty.
func (b *Block) Front() *Instruction { return b.first }

// Back returns the last instruction, or nil if the block is empty.
func (b *Block) Back() *Instruction { return b.last }

// Length returns the number of instructions in the block.
func (b *Block) Length() int { return b.length }

// IsEmpty reports whether the block contains no instructions.
func (b *Block) IsEmpty() bool { return b.length == 0 }

// Parent returns the control instruction that owns this block (If, Switch,
// Loop), or nil for a function's or module's root block.
func (b *Block) Parent() ControlInstruction { return b.parent }

// SetParent records the control instruction that owns this block.
func (b *Block) SetParent(p ControlInstruction) { b.parent = p }

// HasTerminator reports whether the block's last instruction is a
// Terminator.
func (b *Block) HasTerminator() bool {
	if b.last == nil {
		return false
	}
	_, ok := b.last.Kind.(Terminator)
	return ok
}

// TerminatorInst returns the block's terminating instruction, or nil if the
// block is not yet terminated.
func (b *Block) TerminatorInst() *Instruction {
	if !b.HasTerminator() {
		return nil
	}
	return b.last
}

// Instructions returns every instruction in the block, in order. Prefer
// iterating with Front/Next for hot paths; this allocates.
func (b *Block) Instructions() []*Instruction {
	out := make([]*Instruction, 0, b.length)
	for i := b.first; i != nil; i = i.next {
		out = append(out, i)
	}
	return out
}

// Append adds inst (which must be detached) to the end of the block.
func (b *Block) Append(inst *Instruction) *Instruction {
	Assert(inst != nil, "Append: inst is nil")
	Assert(inst.block == nil, "Append: inst is already attached to a block")
	inst.prev = b.last
	inst.next = nil
	if b.last != nil {
		b.last.next = inst
	} else {
		b.first = inst
	}
	b.last = inst
	inst.block = b
	b.length++
	return inst
}

// Prepend adds inst (which must be detached) to the start of the block.
func (b *Block) Prepend(inst *Instruction) *Instruction {
	Assert(inst != nil, "Prepend: inst is nil")
	Assert(inst.block == nil, "Prepend: inst is already attached to a block")
	inst.next = b.first
	inst.prev = nil
	if b.first != nil {
		b.first.prev = inst
	} else {
		b.last = inst
	}
	b.first = inst
	inst.block = b
	b.length++
	return inst
}

// InsertBefore inserts inst (detached) immediately before anchor, which
// must already belong to this block.
func (b *Block) InsertBefore(anchor, inst *Instruction) {
	Assert(anchor != nil, "InsertBefore: anchor is nil")
	Assert(inst != nil, "InsertBefore: inst is nil")
	Assert(anchor.block == b, "InsertBefore: anchor does not belong to this block")
	Assert(inst.block == nil, "InsertBefore: inst is already attached to a block")

	inst.prev = anchor.prev
	inst.next = anchor
	if anchor.prev != nil {
		anchor.prev.next = inst
	} else {
		b.first = inst
	}
	anchor.prev = inst
	inst.block = b
	b.length++
}

// InsertAfter inserts inst (detached) immediately after anchor, which must
// already belong to this block.
func (b *Block) InsertAfter(anchor, inst *Instruction) {
	Assert(anchor != nil, "InsertAfter: anchor is nil")
	Assert(inst != nil, "InsertAfter: inst is nil")
	Assert(anchor.block == b, "InsertAfter: anchor does not belong to this block")
	Assert(inst.block == nil, "InsertAfter: inst is already attached to a block")

	inst.next = anchor.next
	inst.prev = anchor
	if anchor.next != nil {
		anchor.next.prev = inst
	} else {
		b.last = inst
	}
	anchor.next = inst
	inst.block = b
	b.length++
}

// Replace substitutes inst (detached) for target (which must belong to
// this block), splicing inst into target's list position. target is left
// detached (block == nil) but not destroyed; target's result use-lists are
// not rewritten — the caller decides whether to call
// target.Result().ReplaceAllUsesWith(...) and/or target.Destroy().
func (b *Block) Replace(target, inst *Instruction) {
	Assert(target != nil, "Replace: target is nil")
	Assert(inst != nil, "Replace: inst is nil")
	Assert(target.block == b, "Replace: target does not belong to this block")
	Assert(inst.block == nil, "Replace: inst is already attached to a block")

	inst.prev = target.prev
	inst.next = target.next
	if target.prev != nil {
		target.prev.next = inst
	} else {
		b.first = inst
	}
	if target.next != nil {
		target.next.prev = inst
	} else {
		b.last = inst
	}
	inst.block = b

	target.prev = nil
	target.next = nil
	target.block = nil
	// length unchanged: one instruction replaced by exactly one.
}

// Remove detaches inst (which must belong to this block) without
// destroying it.
func (b *Block) Remove(inst *Instruction) {
	Assert(inst != nil, "Remove: inst is nil")
	Assert(inst.block == b, "Remove: inst does not belong to this block")

	if inst.prev != nil {
		inst.prev.next = inst.next
	} else {
		b.first = inst.next
	}
	if inst.next != nil {
		inst.next.prev = inst.prev
	} else {
		b.last = inst.prev
	}
	inst.prev = nil
	inst.next = nil
	inst.block = nil
	b.length--
}

// ControlInstruction is implemented by every instruction that owns one or
// more child blocks (If, Switch, Loop).
type ControlInstruction interface {
	InstructionKind
	// ForEachBlock visits every child block owned by this control
	// instruction.
	ForEachBlock(func(*Block))
}

// MultiInBlock is a Block with phi-like parameters: a value is supplied for
// each Param by every inbound branch, which is why every branch into the
// block must be registered in InboundSiblingBranches.
type MultiInBlock struct {
	Block
	Params                 []*BlockParam
	InboundSiblingBranches []*Instruction // each is a Terminator targeting this block
}

// NewMultiInBlock creates an empty, unparented multi-in block.
func NewMultiInBlock() *MultiInBlock { return &MultiInBlock{} }

// AddParam appends a new phi-like parameter to the block.
func (m *MultiInBlock) AddParam(p *BlockParam) { m.Params = append(m.Params, p) }

// RegisterInboundBranch records that term (a Terminator) branches into this
// block.
func (m *MultiInBlock) RegisterInboundBranch(term *Instruction) {
	m.InboundSiblingBranches = append(m.InboundSiblingBranches, term)
}
