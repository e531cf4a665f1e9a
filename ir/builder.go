package ir

// Builder emits instructions into a Module at a movable insertion point.
// Unlike a parser's expression emitter, a Builder never infers types: every
// constructor takes the result type(s) explicit, since transforms build IR
// straight from already-resolved types.
type Builder struct {
	Module *Module

	// cursor.block is the block instructions are appended to (or, if
	// cursor.before is non-nil, the block they're inserted ahead of
	// cursor.before within).
	cursor struct {
		block  *Block
		before *Instruction
	}
	stack []cursorState
}

type cursorState struct {
	block  *Block
	before *Instruction
}

// NewBuilder creates a Builder with no insertion point set; callers must
// call Append or InsertBefore before emitting anything.
func NewBuilder(m *Module) *Builder { return &Builder{Module: m} }

// Append sets the insertion point to the end of b. Subsequent emits append
// in order.
func (bd *Builder) Append(b *Block) {
	bd.cursor.block = b
	bd.cursor.before = nil
}

// InsertBefore sets the insertion point to immediately before anchor, which
// must already be attached to a block.
func (bd *Builder) InsertBefore(anchor *Instruction) {
	Assert(anchor.Block() != nil, "InsertBefore: anchor is not attached to a block")
	bd.cursor.block = anchor.Block()
	bd.cursor.before = anchor
}

// Push saves the current insertion point so the builder can be redirected
// (e.g. into a freshly created If's true block) and later restored with
// Pop.
func (bd *Builder) Push() {
	bd.stack = append(bd.stack, bd.cursor)
}

// Pop restores the insertion point most recently saved by Push.
func (bd *Builder) Pop() {
	n := len(bd.stack)
	Assert(n > 0, "Pop: no saved insertion point")
	bd.cursor = bd.stack[n-1]
	bd.stack = bd.stack[:n-1]
}

// emit inserts a freshly constructed instruction at the current insertion
// point, registers use-list entries for its operands, and allocates results
// of the given types.
func (bd *Builder) emit(kind InstructionKind, resultTypes ...Type) *Instruction {
	Assert(bd.cursor.block != nil, "emit: no insertion point set")
	inst := NewInstruction(kind)
	if len(resultTypes) > 0 {
		inst.SetResults(resultTypes...)
	}
	if bd.cursor.before != nil {
		bd.cursor.block.InsertBefore(bd.cursor.before, inst)
	} else {
		bd.cursor.block.Append(inst)
	}
	inst.setOperandsFresh()
	return inst
}

// Var emits a var declaration. ty is the pointer or reference type of the
// declared storage (e.g. ptr<function, i32>), not the pointee type.
func (bd *Builder) Var(name string, ty Type, init Value) *Instruction {
	inst := bd.emit(&Var{VarName: name, Initializer: init}, ty)
	if name != "" {
		bd.Module.SetName(inst.Result(), name)
	}
	return inst
}

// Let emits a let binding of value v, giving its result v's type.
func (bd *Builder) Let(name string, v Value) *Instruction {
	inst := bd.emit(&Let{Val: v}, v.Type())
	if name != "" {
		bd.Module.SetName(inst.Result(), name)
	}
	return inst
}

// Load emits a load of a pointer/reference value, with result type ty.
func (bd *Builder) Load(from Value, ty Type) *Instruction {
	return bd.emit(&Load{From: from}, ty)
}

// LoadVectorElement emits a load of a single vector lane, with result type
// ty (the vector's element type).
func (bd *Builder) LoadVectorElement(from, index Value, ty Type) *Instruction {
	return bd.emit(&LoadVectorElement{From: from, Index: index}, ty)
}

// Store emits a store of value through a pointer/reference, producing no
// result.
func (bd *Builder) Store(to, value Value) *Instruction {
	return bd.emit(&Store{To: to, Val: value})
}

// StoreVectorElement emits a store into a single vector lane.
func (bd *Builder) StoreVectorElement(to, index, value Value) *Instruction {
	return bd.emit(&StoreVectorElement{To: to, Index: index, Val: value})
}

// Binary emits a binary operation with explicit result type ty.
func (bd *Builder) Binary(op BinaryOp, ty Type, lhs, rhs Value) *Instruction {
	return bd.emit(&Binary{Op: op, LHS: lhs, RHS: rhs}, ty)
}

// Unary emits a unary operation with explicit result type ty.
func (bd *Builder) Unary(op UnaryOp, ty Type, v Value) *Instruction {
	return bd.emit(&Unary{Op: op, Val: v}, ty)
}

// Convert emits a value conversion to ty.
func (bd *Builder) Convert(ty Type, v Value) *Instruction {
	return bd.emit(&Convert{Val: v}, ty)
}

// Bitcast emits a bit-pattern reinterpretation to ty.
func (bd *Builder) Bitcast(ty Type, v Value) *Instruction {
	return bd.emit(&Bitcast{Val: v}, ty)
}

// Construct emits a value construction of ty from args (a single-operand
// splat, or one operand per component/member).
func (bd *Builder) Construct(ty Type, args ...Value) *Instruction {
	return bd.emit(&Construct{Args: args}, ty)
}

// Access emits an access chain into object, with explicit result type ty.
func (bd *Builder) Access(ty Type, object Value, indices ...Value) *Instruction {
	return bd.emit(&Access{Object: object, Indices: indices}, ty)
}

// Swizzle emits a component swizzle of object, with explicit result type
// ty. Each index must be < 4.
func (bd *Builder) Swizzle(ty Type, object Value, indices ...uint32) *Instruction {
	return bd.emit(&Swizzle{Object: object, Indices: indices}, ty)
}

// Call emits a call to target with args. Results are target's return type,
// unless target's return type is Void, in which case the call has no
// result.
func (bd *Builder) Call(target *Function, args ...Value) *Instruction {
	if _, isVoid := target.RetType.(*Void); isVoid {
		return bd.emit(&UserCall{Target: target, Args: args})
	}
	return bd.emit(&UserCall{Target: target, Args: args}, target.RetType)
}

// CallBuiltin emits a call to a core builtin function, with explicit result
// type(s) (none for a void-returning builtin like textureStore).
func (bd *Builder) CallBuiltin(fn BuiltinFn, args []Value, resultTypes ...Type) *Instruction {
	return bd.emit(&CoreBuiltinCall{Fn: fn, Args: args}, resultTypes...)
}

// CallBuiltinNamed is CallBuiltin for a builtin with no dedicated BuiltinFn
// constant.
func (bd *Builder) CallBuiltinNamed(name string, args []Value, resultTypes ...Type) *Instruction {
	return bd.emit(&CoreBuiltinCall{Fn: BuiltinFnOther, OtherName: name, Args: args}, resultTypes...)
}

// CallIntrinsic emits a call to a backend-synthesized helper.
func (bd *Builder) CallIntrinsic(fn IntrinsicFn, args []Value, resultTypes ...Type) *Instruction {
	return bd.emit(&IntrinsicCall{Fn: fn, Args: args}, resultTypes...)
}

// CallIntrinsicNamed is CallIntrinsic for an intrinsic with no dedicated
// IntrinsicFn constant (e.g. the per-shape matrix-multiply helpers
// HandleMatrixArithmetic introduces: MatrixTimesScalar, MatrixTimesVector,
// VectorTimesMatrix, MatrixTimesMatrix).
func (bd *Builder) CallIntrinsicNamed(name string, args []Value, resultTypes ...Type) *Instruction {
	return bd.emit(&IntrinsicCall{Fn: IntrinsicFnOther, OtherName: name, Args: args}, resultTypes...)
}

// If emits an If instruction with fresh, empty True/False blocks, both
// parented to the returned instruction. Callers push into each block with
// Push/Append/Pop before emitting the if's terminators.
func (bd *Builder) If(cond Value, resultTypes ...Type) *Instruction {
	trueBlock, falseBlock := NewBlock(), NewBlock()
	inst := bd.emit(&If{Cond: cond, True: trueBlock, False: falseBlock}, resultTypes...)
	trueBlock.SetParent(inst.Kind.(ControlInstruction))
	falseBlock.SetParent(inst.Kind.(ControlInstruction))
	return inst
}

// Switch emits a Switch instruction with one fresh, empty block per case
// (in the order selectorSets is given), each parented to the returned
// instruction.
func (bd *Builder) Switch(cond Value, selectorSets [][]*Constant, resultTypes ...Type) *Instruction {
	cases := make([]SwitchCase, len(selectorSets))
	for i, sels := range selectorSets {
		cases[i] = SwitchCase{Selectors: sels, Block: NewBlock()}
	}
	inst := bd.emit(&Switch{Cond: cond, Cases: cases}, resultTypes...)
	for _, c := range cases {
		c.Block.SetParent(inst.Kind.(ControlInstruction))
	}
	return inst
}

// Loop emits a Loop instruction with fresh, empty Initializer, Body and
// Continuing blocks, all parented to the returned instruction.
func (bd *Builder) Loop() *Instruction {
	loop := &Loop{
		Initializer: NewBlock(),
		Body:        NewMultiInBlock(),
		Continuing:  NewMultiInBlock(),
	}
	inst := bd.emit(loop)
	loop.Initializer.SetParent(inst.Kind.(ControlInstruction))
	loop.Body.SetParent(inst.Kind.(ControlInstruction))
	loop.Continuing.SetParent(inst.Kind.(ControlInstruction))
	return inst
}

// Return emits a function return, with value nil for a void function.
func (bd *Builder) Return(fn *Function, value Value) *Instruction {
	return bd.emit(&Return{Func: fn, Value: value})
}

// ExitIf emits a terminator exiting ifInst's current block, carrying args
// as the If's results.
func (bd *Builder) ExitIf(ifInst *Instruction, args ...Value) *Instruction {
	return bd.emit(&ExitIf{If: ifInst, Args: args})
}

// ExitSwitch emits a terminator exiting switchInst's current case block.
func (bd *Builder) ExitSwitch(switchInst *Instruction, args ...Value) *Instruction {
	return bd.emit(&ExitSwitch{Switch: switchInst, Args: args})
}

// ExitLoop emits a terminator exiting loopInst entirely.
func (bd *Builder) ExitLoop(loopInst *Instruction, args ...Value) *Instruction {
	return bd.emit(&ExitLoop{Loop: loopInst, Args: args})
}

// BreakIf emits loopInst's continuing-block terminator.
func (bd *Builder) BreakIf(loopInst *Instruction, cond Value, exitArgs, nextIterArgs []Value) *Instruction {
	return bd.emit(&BreakIf{Loop: loopInst, Cond: cond, ExitArgs: exitArgs, NextIterArgs: nextIterArgs})
}

// Continue emits loopInst's body-to-continuing terminator.
func (bd *Builder) Continue(loopInst *Instruction, args ...Value) *Instruction {
	return bd.emit(&Continue{Loop: loopInst, Args: args})
}

// NextIteration emits loopInst's continuing-to-body terminator.
func (bd *Builder) NextIteration(loopInst *Instruction, args ...Value) *Instruction {
	return bd.emit(&NextIteration{Loop: loopInst, Args: args})
}

// Discard emits a fragment discard.
func (bd *Builder) Discard() *Instruction { return bd.emit(Discard{}) }

// TerminateInvocation emits an immediate-stop terminator.
func (bd *Builder) TerminateInvocation() *Instruction { return bd.emit(TerminateInvocation{}) }

// Unreachable marks a point control can never reach.
func (bd *Builder) Unreachable() *Instruction { return bd.emit(Unreachable{}) }

// LoopRange builds a canonical counted loop: an Initializer that declares
// the index at lo, a Body that receives the current index as its single
// BlockParam and runs bodyFn, and a Continuing that adds step to the index
// and branches back while it is below hi. bodyFn is called with the
// builder positioned inside Body and must terminate it (Continue or
// ExitLoop against the loop instruction it is handed); LoopRange does not
// insert the Continue for bodyFn.
func (bd *Builder) LoopRange(lo, hi, step Value, indexTy Type, bodyFn func(index *BlockParam, loop *Instruction)) *Instruction {
	loopInst := bd.Loop()
	loop := loopInst.Kind.(*Loop)

	idx := &BlockParam{Ty: indexTy}
	loop.Body.AddParam(idx)

	bd.Push()
	bd.Append(loop.Initializer)
	initBranch := bd.NextIteration(loopInst, lo)
	loop.Body.RegisterInboundBranch(initBranch)
	bd.Pop()

	bd.Push()
	bd.Append(&loop.Body.Block)
	bodyFn(idx, loopInst)
	bd.Pop()

	bd.Push()
	bd.Append(&loop.Continuing.Block)
	next := bd.Binary(BinaryAdd, indexTy, idx, step)
	cond := bd.Binary(BinaryGreaterThanEqual, bd.Module.Types.Bool(), next.Result(), hi)
	contBranch := bd.BreakIf(loopInst, cond.Result(), nil, []Value{next.Result()})
	loop.Body.RegisterInboundBranch(contBranch)
	bd.Pop()

	return loopInst
}

// ConstantScalar returns a new scalar constant of the given type and bit
// pattern. Every call allocates a fresh Constant; identical constants are
// not deduplicated.
func (bd *Builder) ConstantScalar(ty Type, kind ScalarKind, bits uint64) *Constant {
	return &Constant{Ty: ty, Value: ScalarConstant{Kind: kind, Bits: bits}}
}

// ConstantComposite builds a vector/matrix/array/struct constant from
// component constants.
func (bd *Builder) ConstantComposite(ty Type, components ...*Constant) *Constant {
	return &Constant{Ty: ty, Value: CompositeConstant{Components: components}}
}
