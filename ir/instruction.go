package ir

// InstructionKind is the sum type of every instruction payload. Each
// concrete kind stores its own operand fields as Value (so each accessor is
// named and type-checked at the call site) and implements the small
// interface below so the generic Instruction machinery (use-list
// maintenance, disassembly, validation) can treat every kind uniformly.
type InstructionKind interface {
	instructionKind()
	// Operands returns the current operand values, in a stable order that
	// callers may index by position (Usage.OperandIndex refers to this
	// order).
	Operands() []Value
	// SetOperandAt overwrites the i-th operand in place. Callers must go
	// through Instruction.SetOperand, which keeps use-lists consistent;
	// this method only updates the kind's own storage.
	SetOperandAt(i int, v Value)
	// Name is a short opcode name used by Disassemble, e.g. "load", "binary".
	Name() string
}

// Instruction is a single operation inside a Block: an intrusive
// doubly-linked-list node, an owning Block, an ordered operand list and an
// ordered result list.
type Instruction struct {
	prev, next *Instruction
	block      *Block

	Kind InstructionKind

	results []*InstructionResult
	dead    bool
}

// NewInstruction wraps kind in a fresh, detached Instruction with no
// results. Most callers should use a Builder method instead, which also
// attaches operand uses and allocates results.
func NewInstruction(kind InstructionKind) *Instruction {
	return &Instruction{Kind: kind}
}

// Block returns the block this instruction currently belongs to, or nil if
// it is detached.
func (i *Instruction) Block() *Block { return i.block }

// Prev returns the previous instruction in the owning block's list, or nil.
func (i *Instruction) Prev() *Instruction { return i.prev }

// Next returns the next instruction in the owning block's list, or nil.
func (i *Instruction) Next() *Instruction { return i.next }

// Alive reports whether the instruction has not been Destroy'd.
func (i *Instruction) Alive() bool { return !i.dead }

// Operands returns the instruction's current operand values.
func (i *Instruction) Operands() []Value { return i.Kind.Operands() }

// Operand returns the operand at index idx.
func (i *Instruction) Operand(idx int) Value { return i.Kind.Operands()[idx] }

// SetOperand overwrites operand idx, removing the old value's use (if any)
// and registering the new value's use (if any). v may be nil to clear an
// optional operand slot.
func (i *Instruction) SetOperand(idx int, v Value) {
	old := i.Kind.Operands()[idx]
	if old != nil {
		old.removeUse(Usage{Instruction: i, OperandIndex: idx})
	}
	i.Kind.SetOperandAt(idx, v)
	if v != nil {
		v.addUse(Usage{Instruction: i, OperandIndex: idx})
	}
}

// setOperandsFresh registers uses for every non-nil operand currently held
// by the kind. Used once, right after construction, by Builder helpers.
func (i *Instruction) setOperandsFresh() {
	for idx, v := range i.Kind.Operands() {
		if v != nil {
			v.addUse(Usage{Instruction: i, OperandIndex: idx})
		}
	}
}

// Results returns the instruction's result list (possibly empty).
func (i *Instruction) Results() []*InstructionResult { return i.results }

// Result returns the first result, or nil if the instruction produces none.
func (i *Instruction) Result() *InstructionResult {
	if len(i.results) == 0 {
		return nil
	}
	return i.results[0]
}

// HasResults reports whether the instruction produces at least one result.
func (i *Instruction) HasResults() bool { return len(i.results) > 0 }

// SetResults replaces the instruction's result list with fresh
// InstructionResults of the given types, each pointing back at this
// instruction as its source.
func (i *Instruction) SetResults(types ...Type) {
	i.results = make([]*InstructionResult, len(types))
	for idx, t := range types {
		i.results[idx] = &InstructionResult{Ty: t, Source: i}
	}
}

// adoptResult installs an already-constructed InstructionResult (used when
// a transform needs to preserve result identity across a rewrite, e.g.
// DemoteToHelper re-exposing a wrapped instruction's result through an If).
func (i *Instruction) adoptResult(r *InstructionResult) {
	r.Source = i
	i.results = append(i.results, r)
}

// InsertBefore detaches this instruction (must currently be detached) and
// inserts it immediately before other, which must be attached to a block.
func (i *Instruction) InsertBefore(other *Instruction) {
	Assert(other != nil, "InsertBefore: other is nil")
	Assert(other.block != nil, "InsertBefore: other is not attached to a block")
	other.block.InsertBefore(other, i)
}

// InsertAfter detaches this instruction (must currently be detached) and
// inserts it immediately after other, which must be attached to a block.
func (i *Instruction) InsertAfter(other *Instruction) {
	Assert(other != nil, "InsertAfter: other is nil")
	Assert(other.block != nil, "InsertAfter: other is not attached to a block")
	other.block.InsertAfter(other, i)
}

// ReplaceWith replaces this instruction (which must be attached) with
// replacement (which must be detached) in the owning block. Use-lists of
// this instruction's results are not touched; the caller must call
// ReplaceAllUsesWith and/or Destroy explicitly.
func (i *Instruction) ReplaceWith(replacement *Instruction) {
	Assert(i.block != nil, "ReplaceWith: instruction is not attached to a block")
	i.block.Replace(i, replacement)
}

// Remove detaches this instruction from its block without destroying it.
func (i *Instruction) Remove() {
	Assert(i.block != nil, "Remove: instruction is not attached to a block")
	i.block.Remove(i)
}

// Destroy removes the instruction from its block (if attached), detaches
// every result from its use-list, and marks the instruction dead. Every
// result must have zero users at the time of the call.
func (i *Instruction) Destroy() {
	Assert(i.Alive(), "Destroy: instruction is already dead")
	if i.block != nil {
		i.Remove()
	}
	for _, r := range i.results {
		if len(r.Uses()) != 0 {
			ICEf("Destroy: result still has live uses")
		}
	}
	// Unregister this instruction's operands from their producers' use-lists.
	for idx, v := range i.Kind.Operands() {
		if v != nil {
			v.removeUse(Usage{Instruction: i, OperandIndex: idx})
		}
	}
	i.dead = true
}
