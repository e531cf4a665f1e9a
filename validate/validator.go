package validate

import (
	"fmt"

	"github.com/gogpu/tir/ir"
)

// Validate checks m against caps, returning every invariant violation found.
// Validate never mutates m. A Result with no Diagnostics means m is
// well-formed enough for the transform pipeline (or a backend) to consume.
func Validate(m *ir.Module, caps Capabilities) Result {
	v := &validator{mod: m, caps: caps, result: &Result{}}
	v.validateModuleVars()
	v.buildCallGraph()
	for _, fn := range m.Functions {
		v.validateFunction(fn)
	}
	return *v.result
}

type validator struct {
	mod    *ir.Module
	caps   Capabilities
	result *Result

	// reachableFromFragment is populated by buildCallGraph: every function
	// transitively called from a fragment entry point (plus every fragment
	// entry point itself).
	reachableFromFragment map[*ir.Function]bool
}

func (v *validator) errf(inst *ir.Instruction, fn *ir.Function, format string, args ...any) {
	v.result.addf(inst, fn, format, args...)
}

// ---- module scope -------------------------------------------------------

func (v *validator) validateModuleVars() {
	seen := map[ir.BindingPoint][]*ir.Var{}
	for i := v.mod.RootBlock.Front(); i != nil; i = i.Next() {
		vr, ok := i.Kind.(*ir.Var)
		if !ok {
			v.errf(i, nil, "module root block may only contain var declarations, found %s", i.Kind.Name())
			continue
		}
		v.checkVarBinding(i, vr, nil)
		if vr.BindingAttr != nil {
			seen[*vr.BindingAttr] = append(seen[*vr.BindingAttr], vr)
		}
	}
	if !v.caps.Has(AllowDuplicateBindings) {
		for bp, vars := range seen {
			if len(vars) > 1 {
				v.errf(nil, nil, "binding {group=%d, binding=%d} is shared by %d variables; requires AllowDuplicateBindings", bp.Group, bp.Binding, len(vars))
			}
		}
	}
}

func (v *validator) checkVarBinding(inst *ir.Instruction, vr *ir.Var, fn *ir.Function) {
	ptrTy, ok := inst.Result().Type().(*ir.Pointer)
	if !ok {
		v.errf(inst, fn, "var result type must be a pointer")
		return
	}
	space := ptrTy.Space
	needsBinding := space == ir.SpaceStorage || space == ir.SpaceUniform || space == ir.SpaceHandle
	if vr.BindingAttr == nil && needsBinding && !v.caps.Has(AllowResourceBinding) {
		v.errf(inst, fn, "var in address space %s requires a {group, binding} pair", space)
	}
	if vr.BindingAttr != nil && !needsBinding {
		v.errf(inst, fn, "var in address space %s must not have a binding", space)
	}
}

// ---- call graph / discard reachability ----------------------------------

func (v *validator) buildCallGraph() {
	calls := map[*ir.Function][]*ir.Function{}
	for _, fn := range v.mod.Functions {
		walkInstructions(fn.Block, func(inst *ir.Instruction) {
			if call, ok := inst.Kind.(*ir.UserCall); ok {
				calls[fn] = append(calls[fn], call.Target)
			}
		})
	}
	v.reachableFromFragment = map[*ir.Function]bool{}
	var visit func(*ir.Function)
	visit = func(fn *ir.Function) {
		if v.reachableFromFragment[fn] {
			return
		}
		v.reachableFromFragment[fn] = true
		for _, callee := range calls[fn] {
			visit(callee)
		}
	}
	for _, fn := range v.mod.Functions {
		if fn.Stage == ir.StageFragment {
			visit(fn)
		}
	}
}

// walkInstructions visits every instruction in b and every block nested
// inside a control instruction, depth first.
func walkInstructions(b *ir.Block, fn func(*ir.Instruction)) {
	for i := b.Front(); i != nil; i = i.Next() {
		fn(i)
		if ctrl, ok := i.Kind.(ir.ControlInstruction); ok {
			ctrl.ForEachBlock(func(child *ir.Block) {
				walkInstructions(child, fn)
			})
		}
	}
}

// ---- functions / blocks ---------------------------------------------------

// blockCtx tracks the state threaded through a recursive block walk: the
// owning function, the stack of enclosing control instructions (innermost
// last), and whether we are currently inside some Loop's body/continuing.
type blockCtx struct {
	fn          *ir.Function
	ctrlStack   []*ir.Instruction
	loopStack   []*ir.Instruction
}

func (v *validator) validateFunction(fn *ir.Function) {
	for _, p := range fn.Params {
		v.checkTypeCapabilities(nil, fn, p.Type())
	}
	v.checkTypeCapabilities(nil, fn, fn.RetType)
	v.validateBlock(fn.Block, blockCtx{fn: fn})
}

func (v *validator) validateBlock(b *ir.Block, ctx blockCtx) {
	if len(ctrlOf(ctx)) > 0 {
		// nested block: parent pointer must point back at the owning
		// control instruction.
		if b.Parent() == nil {
			v.errf(nil, ctx.fn, "nested block has no parent control instruction")
		}
	}
	n := b.Length()
	idx := 0
	for i := b.Front(); i != nil; i = i.Next() {
		idx++
		isLast := idx == n
		_, isTerm := i.Kind.(ir.Terminator)
		if isTerm && !isLast {
			v.errf(i, ctx.fn, "terminator %s is not the last instruction in its block", i.Kind.Name())
		}
		if !isTerm && isLast {
			v.errf(i, ctx.fn, "block is not terminated: last instruction is %s", i.Kind.Name())
		}
		v.validateInstruction(i, ctx)
	}
	if b.IsEmpty() {
		v.errf(nil, ctx.fn, "block is empty (not terminated)")
	}
}

func ctrlOf(ctx blockCtx) []*ir.Instruction { return ctx.ctrlStack }

func (v *validator) validateInstruction(inst *ir.Instruction, ctx blockCtx) {
	for idx, op := range inst.Operands() {
		if op == nil {
			// Some operand slots are legitimately optional (Return with no
			// value, Var with no initializer); those kinds simply omit the
			// slot from Operands() rather than returning nil, so a nil here
			// is always a real defect.
			v.errf(inst, ctx.fn, "operand %d of %s is undefined", idx, inst.Kind.Name())
			continue
		}
		v.checkTypeCapabilities(inst, ctx.fn, op.Type())
		v.checkUseListConsistency(inst, idx, op, ctx.fn)
	}
	for _, r := range inst.Results() {
		v.checkTypeCapabilities(inst, ctx.fn, r.Ty)
	}

	switch k := inst.Kind.(type) {
	case *ir.Var:
		v.checkVarBinding(inst, k, ctx.fn)
	case *ir.UserCall:
		v.validateUserCall(inst, k, ctx)
	case *ir.CoreBuiltinCall:
		v.validateBuiltinCall(inst, k, ctx)
	case *ir.Return:
		if k.Func != ctx.fn {
			v.errf(inst, ctx.fn, "return targets a different function than the one it appears in")
		}
	case *ir.ExitIf:
		v.checkExitTarget(inst, ctx, k.If, "exit_if")
	case *ir.ExitSwitch:
		v.checkExitTarget(inst, ctx, k.Switch, "exit_switch")
	case *ir.ExitLoop:
		v.checkExitTarget(inst, ctx, k.Loop, "exit_loop")
	case *ir.Continue:
		v.checkLoopTarget(inst, ctx, k.Loop, "continue")
	case *ir.NextIteration:
		v.checkLoopTarget(inst, ctx, k.Loop, "next_iteration")
	case *ir.BreakIf:
		v.checkLoopTarget(inst, ctx, k.Loop, "break_if")
	case ir.Discard:
		if !v.reachableFromFragment[ctx.fn] {
			v.errf(inst, ctx.fn, "discard is not reachable from any fragment entry point")
		}
	case *ir.If:
		v.recurseControl(inst, ctx, k.True, k.False)
	case *ir.Switch:
		blocks := make([]*ir.Block, len(k.Cases))
		for i, c := range k.Cases {
			blocks[i] = c.Block
		}
		v.recurseControl(inst, ctx, blocks...)
	case *ir.Loop:
		childCtx := ctx
		childCtx.ctrlStack = append(append([]*ir.Instruction{}, ctx.ctrlStack...), inst)
		childCtx.loopStack = append(append([]*ir.Instruction{}, ctx.loopStack...), inst)
		v.validateBlock(k.Initializer, childCtx)
		v.validateBlock(&k.Body.Block, childCtx)
		v.validateBlock(&k.Continuing.Block, childCtx)
	}
}

func (v *validator) recurseControl(inst *ir.Instruction, ctx blockCtx, blocks ...*ir.Block) {
	childCtx := ctx
	childCtx.ctrlStack = append(append([]*ir.Instruction{}, ctx.ctrlStack...), inst)
	for _, b := range blocks {
		v.validateBlock(b, childCtx)
	}
}

func (v *validator) checkExitTarget(inst *ir.Instruction, ctx blockCtx, target *ir.Instruction, name string) {
	for i := len(ctx.ctrlStack) - 1; i >= 0; i-- {
		if ctx.ctrlStack[i] == target {
			return
		}
	}
	v.errf(inst, ctx.fn, "%s does not target an enclosing control instruction", name)
}

func (v *validator) checkLoopTarget(inst *ir.Instruction, ctx blockCtx, target *ir.Instruction, name string) {
	found := false
	for _, l := range ctx.loopStack {
		if l == target {
			found = true
			break
		}
	}
	if !found {
		v.errf(inst, ctx.fn, "%s appears outside its target loop", name)
	}
}

func (v *validator) validateUserCall(inst *ir.Instruction, call *ir.UserCall, ctx blockCtx) {
	found := false
	for _, fn := range v.mod.Functions {
		if fn == call.Target {
			found = true
			break
		}
	}
	if !found {
		v.errf(inst, ctx.fn, "call target %%%s is not part of the module", call.Target.FuncName)
		return
	}
	if call.Target.IsEntryPoint() {
		v.errf(inst, ctx.fn, "call target %%%s is an entry point and cannot be called", call.Target.FuncName)
	}
	if len(call.Args) != len(call.Target.Params) {
		v.errf(inst, ctx.fn, "call to %%%s passes %d arguments, expected %d", call.Target.FuncName, len(call.Args), len(call.Target.Params))
		return
	}
	for i, arg := range call.Args {
		if arg.Type() != call.Target.Params[i].Type() {
			v.errf(inst, ctx.fn, "call to %%%s argument %d has type %s, expected %s", call.Target.FuncName, i, arg.Type(), call.Target.Params[i].Type())
		}
	}
}

func (v *validator) validateBuiltinCall(inst *ir.Instruction, call *ir.CoreBuiltinCall, ctx blockCtx) {
	switch call.Fn {
	case ir.BuiltinFnArrayLength, ir.BuiltinFnBufferLength:
		if !inst.HasResults() || inst.Result().Ty != v.mod.Types.U32() {
			v.errf(inst, ctx.fn, "%s must return u32", inst.Kind.Name())
		}
	case ir.BuiltinFnTextureStore:
		if inst.HasResults() {
			v.errf(inst, ctx.fn, "textureStore must not produce a result")
		}
	case ir.BuiltinFnSubgroupMatrixMultiply, ir.BuiltinFnSubgroupMatrixMultiplyAccumulate:
		if len(call.Args) < 2 {
			v.errf(inst, ctx.fn, "%s requires at least two matrix operands", inst.Kind.Name())
			return
		}
		left, lok := call.Args[0].Type().(*ir.SubgroupMatrix)
		right, rok := call.Args[1].Type().(*ir.SubgroupMatrix)
		if !lok || left.Kind != ir.SubgroupMatrixLeft {
			v.errf(inst, ctx.fn, "%s operand 0 must be a subgroup_matrix_left", inst.Kind.Name())
			return
		}
		if !rok || right.Kind != ir.SubgroupMatrixRight {
			v.errf(inst, ctx.fn, "%s operand 1 must be a subgroup_matrix_right", inst.Kind.Name())
			return
		}
		if left.Columns != right.Rows {
			v.errf(inst, ctx.fn, "%s inner dimensions mismatch: left has %d columns, right has %d rows", inst.Kind.Name(), left.Columns, right.Rows)
		}
	}
}

// checkTypeCapabilities flags scalar widths that require a capability bit
// not present in v.caps. It only inspects the type's immediate scalar kind
// (for vectors/arrays) since those are the only host-shareable shapes a
// narrow scalar can appear in.
func (v *validator) checkTypeCapabilities(inst *ir.Instruction, fn *ir.Function, t ir.Type) {
	scalar := scalarKindOf(t)
	if scalar == nil {
		return
	}
	switch *scalar {
	case ir.I8, ir.U8:
		if !v.caps.Has(Allow8BitIntegers) {
			v.errf(inst, fn, "type %s uses an 8-bit integer scalar; requires Allow8BitIntegers", t)
		}
	case ir.I16, ir.U16:
		if !v.caps.Has(Allow16BitIntegers) {
			v.errf(inst, fn, "type %s uses a 16-bit integer scalar; requires Allow16BitIntegers", t)
		}
	}
}

func scalarKindOf(t ir.Type) *ir.ScalarKind {
	switch tt := t.(type) {
	case *ir.Scalar:
		return &tt.Kind
	case *ir.Vector:
		return &tt.Elem.Kind
	case *ir.Array:
		return scalarKindOf(tt.Elem)
	case *ir.Atomic:
		return &tt.Inner.Kind
	default:
		return nil
	}
}

// checkUseListConsistency verifies that operand op, referenced by inst at
// index idx, actually records that use in its own use-list: producer and
// consumer must always agree on every def-use edge.
func (v *validator) checkUseListConsistency(inst *ir.Instruction, idx int, op ir.Value, fn *ir.Function) {
	for _, u := range op.Uses() {
		if u.Instruction == inst && u.OperandIndex == idx {
			return
		}
	}
	v.errf(inst, fn, fmt.Sprintf("operand %d is not present in its producer's use-list", idx))
}
