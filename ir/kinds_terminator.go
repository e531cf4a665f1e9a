package ir

// Terminator is implemented by every InstructionKind that may legally be
// the last instruction in a Block. A block is well-formed only once its
// last instruction satisfies this interface.
type Terminator interface {
	InstructionKind
	isTerminator()
}

// Return exits a Function, optionally carrying a value back to the caller.
type Return struct {
	Func  *Function
	Value Value // nil for a function with no return type
}

func (*Return) instructionKind() {}
func (*Return) isTerminator()    {}
func (*Return) Name() string     { return "return" }
func (r *Return) Operands() []Value {
	if r.Value == nil {
		return nil
	}
	return []Value{r.Value}
}
func (r *Return) SetOperandAt(i int, v Value) {
	Assert(i == 0, "Return.SetOperandAt: index out of range")
	r.Value = v
}

// ExitIf exits an If instruction's true or false block, optionally carrying
// result values that become the If instruction's results.
type ExitIf struct {
	If     *Instruction // the If this exits
	Args   []Value
}

func (*ExitIf) instructionKind() {}
func (*ExitIf) isTerminator()    {}
func (*ExitIf) Name() string     { return "exit_if" }
func (e *ExitIf) Operands() []Value { return e.Args }
func (e *ExitIf) SetOperandAt(i int, v Value) { e.Args[i] = v }

// ExitSwitch exits a Switch instruction's case block, optionally carrying
// result values.
type ExitSwitch struct {
	Switch *Instruction
	Args   []Value
}

func (*ExitSwitch) instructionKind() {}
func (*ExitSwitch) isTerminator()    {}
func (*ExitSwitch) Name() string     { return "exit_switch" }
func (e *ExitSwitch) Operands() []Value { return e.Args }
func (e *ExitSwitch) SetOperandAt(i int, v Value) { e.Args[i] = v }

// ExitLoop exits a Loop instruction entirely, optionally carrying result
// values.
type ExitLoop struct {
	Loop *Instruction
	Args []Value
}

func (*ExitLoop) instructionKind() {}
func (*ExitLoop) isTerminator()    {}
func (*ExitLoop) Name() string     { return "exit_loop" }
func (e *ExitLoop) Operands() []Value { return e.Args }
func (e *ExitLoop) SetOperandAt(i int, v Value) { e.Args[i] = v }

// BreakIf terminates a Loop's continuing block, branching to the loop's
// ExitLoop path when Cond is true and to the next iteration otherwise.
type BreakIf struct {
	Loop          *Instruction
	Cond          Value
	ExitArgs      []Value // carried out on break
	NextIterArgs  []Value // carried into the body on continue
}

func (*BreakIf) instructionKind() {}
func (*BreakIf) isTerminator()    {}
func (*BreakIf) Name() string     { return "break_if" }
func (b *BreakIf) Operands() []Value {
	out := make([]Value, 0, 1+len(b.ExitArgs)+len(b.NextIterArgs))
	out = append(out, b.Cond)
	out = append(out, b.ExitArgs...)
	out = append(out, b.NextIterArgs...)
	return out
}
func (b *BreakIf) SetOperandAt(i int, v Value) {
	if i == 0 {
		b.Cond = v
		return
	}
	i--
	if i < len(b.ExitArgs) {
		b.ExitArgs[i] = v
		return
	}
	i -= len(b.ExitArgs)
	b.NextIterArgs[i] = v
}

// Continue branches from a Loop's body block into its continuing block,
// carrying argument values for the continuing block's params.
type Continue struct {
	Loop *Instruction
	Args []Value
}

func (*Continue) instructionKind() {}
func (*Continue) isTerminator()    {}
func (*Continue) Name() string     { return "continue" }
func (c *Continue) Operands() []Value { return c.Args }
func (c *Continue) SetOperandAt(i int, v Value) { c.Args[i] = v }

// NextIteration branches from a Loop's continuing block back to its body
// block, carrying argument values for the body's params.
type NextIteration struct {
	Loop *Instruction
	Args []Value
}

func (*NextIteration) instructionKind() {}
func (*NextIteration) isTerminator()    {}
func (*NextIteration) Name() string     { return "next_iteration" }
func (n *NextIteration) Operands() []Value { return n.Args }
func (n *NextIteration) SetOperandAt(i int, v Value) { n.Args[i] = v }

// Discard unconditionally discards the current fragment. Unlike
// TerminateInvocation, control does not necessarily stop immediately — the
// shader may continue to run to preserve derivative correctness, with the
// discard taking effect at the end of the invocation.
type Discard struct{}

func (Discard) instructionKind()        {}
func (Discard) isTerminator()           {}
func (Discard) Name() string            { return "discard" }
func (Discard) Operands() []Value       { return nil }
func (Discard) SetOperandAt(int, Value) { ICEf("Discard takes no operands") }

// TerminateInvocation stops the current invocation immediately. Inserted by
// DemoteToHelper ahead of a guarded Return in discard-affected fragment
// functions.
type TerminateInvocation struct{}

func (TerminateInvocation) instructionKind()        {}
func (TerminateInvocation) isTerminator()           {}
func (TerminateInvocation) Name() string            { return "terminate_invocation" }
func (TerminateInvocation) Operands() []Value       { return nil }
func (TerminateInvocation) SetOperandAt(int, Value) { ICEf("TerminateInvocation takes no operands") }

// Unreachable marks a point control can provably never reach.
type Unreachable struct{}

func (Unreachable) instructionKind()        {}
func (Unreachable) isTerminator()           {}
func (Unreachable) Name() string            { return "unreachable" }
func (Unreachable) Operands() []Value       { return nil }
func (Unreachable) SetOperandAt(int, Value) { ICEf("Unreachable takes no operands") }
