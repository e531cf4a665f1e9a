package transform

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// accessKind classifies the memory-ordering hazard an instruction poses, so
// ValueToLet can decide whether a pending, not-yet-named value must be
// hoisted into a Let before a later instruction is allowed to run. Two
// Loads never conflict (reads commute); anything else touching memory
// (Store, a call that may do either) conflicts with everything, including
// itself, since the compiler doesn't know what it aliases.
type accessKind uint8

const (
	accessNone accessKind = iota
	accessLoad
	accessStore
	accessBoth
)

func accessKindOf(i *ir.Instruction) accessKind {
	switch k := i.Kind.(type) {
	case *ir.Load, *ir.LoadVectorElement:
		return accessLoad
	case *ir.Store, *ir.StoreVectorElement:
		return accessStore
	case *ir.UserCall:
		return accessBoth
	case *ir.IntrinsicCall:
		return accessBoth
	case *ir.CoreBuiltinCall:
		switch k.Fn {
		case ir.BuiltinFnTextureStore, ir.BuiltinFnAtomicStore, ir.BuiltinFnAtomicAdd,
			ir.BuiltinFnAtomicSub, ir.BuiltinFnAtomicExchange, ir.BuiltinFnAtomicCompareExchangeWeak,
			ir.BuiltinFnSubgroupMatrixStore:
			return accessStore
		case ir.BuiltinFnAtomicLoad, ir.BuiltinFnArrayLength, ir.BuiltinFnBufferLength,
			ir.BuiltinFnBufferView, ir.BuiltinFnTextureLoad, ir.BuiltinFnTextureSample,
			ir.BuiltinFnTextureDimensions, ir.BuiltinFnTextureNumLevels, ir.BuiltinFnTextureNumLayers,
			ir.BuiltinFnTextureNumSamples, ir.BuiltinFnWorkgroupUniformLoad, ir.BuiltinFnSubgroupMatrixLoad:
			return accessLoad
		default:
			return accessBoth
		}
	default:
		return accessNone
	}
}

func accessConflicts(a, b accessKind) bool {
	if a == accessNone || b == accessNone {
		return false
	}
	if a == accessLoad && b == accessLoad {
		return false
	}
	return true
}

// isHoistCandidate reports whether inst produces a result that could ever
// be named by a Let: it must have exactly one result and not already be a
// Let, a Var (which already names its own storage), or a control/terminator
// instruction (which the printer never inlines as an expression).
func isHoistCandidate(inst *ir.Instruction) bool {
	if !inst.HasResults() || len(inst.Results()) != 1 {
		return false
	}
	switch inst.Kind.(type) {
	case *ir.Let, *ir.Var:
		return false
	}
	if _, isTerm := inst.Kind.(ir.Terminator); isTerm {
		return false
	}
	if _, isCtrl := inst.Kind.(ir.ControlInstruction); isCtrl {
		return false
	}
	return true
}

// alreadyHoisted reports whether inst's result has already been bound to an
// immediately following Let, so a second ValueToLet pass over the same
// module leaves it alone instead of wrapping it again.
func alreadyHoisted(inst *ir.Instruction) bool {
	uses := inst.Result().Uses()
	if len(uses) != 1 || uses[0].OperandIndex != 0 {
		return false
	}
	_, ok := uses[0].Instruction.Kind.(*ir.Let)
	return ok && uses[0].Instruction.Prev() == inst
}

// ValueToLet hoists values whose instruction may be side-effecting or that
// are used more than once into a named Let binding, so a textual printer
// never re-evaluates a load/call/store more than the IR says it runs, and
// never needs to duplicate a multiply-used expression. The heuristic keys
// off access kind (load/store/both) of pending, not-yet-bound values: a
// value used exactly once is left inlined unless something with a
// conflicting access mode appears between its definition and that use, in
// which case the whole pending queue is flushed to Lets before the
// conflicting instruction runs.
func ValueToLet(m *ir.Module, caps *validate.Capabilities) Result {
	for _, fn := range m.Functions {
		valueToLetBlock(m, fn.Block)
	}
	return Result{}
}

func valueToLetBlock(m *ir.Module, b *ir.Block) {
	var queue []*ir.Instruction

	flush := func(before *ir.Instruction) {
		for _, pending := range queue {
			hoistToLet(m, pending, before)
		}
		queue = queue[:0]
	}

	for i := b.Front(); i != nil; {
		next := i.Next()
		if ctrl, ok := i.Kind.(ir.ControlInstruction); ok {
			ctrl.ForEachBlock(func(c *ir.Block) { valueToLetBlock(m, c) })
		}

		kind := accessKindOf(i)
		conflict := false
		for _, pending := range queue {
			if accessConflicts(accessKindOf(pending), kind) {
				conflict = true
				break
			}
		}
		if conflict {
			flush(i)
		}

		if isHoistCandidate(i) && !alreadyHoisted(i) {
			if len(i.Result().Uses()) > 1 {
				hoistToLet(m, i, i.Next())
			} else if kind != accessNone {
				queue = append(queue, i)
			}
		}

		i = next
	}
}

// hoistToLet binds inst's result to a freshly inserted Let placed
// immediately before `before`, and rewrites every use that existed prior to
// the Let's own creation (captured as a snapshot) to refer to the Let's
// result instead.
func hoistToLet(m *ir.Module, inst *ir.Instruction, before *ir.Instruction) {
	priorUses := inst.Result().Uses()
	bd := ir.NewBuilder(m)
	bd.InsertBefore(before)
	let := bd.Let("", inst.Result())
	for _, u := range priorUses {
		u.Instruction.SetOperand(u.OperandIndex, let.Result())
	}
}
