package analysis

import "github.com/gogpu/tir/ir"

// SubgroupMatrixDirection identifies how a subgroup matrix participates in
// a multiply: as the left operand (M×K), the right operand (K×N), or the
// accumulator/result (M×N).
type SubgroupMatrixDirection uint8

const (
	DirectionLeft SubgroupMatrixDirection = iota
	DirectionRight
	DirectionResult
)

// SubgroupMatrixConfig is one distinct cooperative-matrix shape used
// somewhere in a module, expressed in M/N/K terms. The dimension a given
// direction does not constrain is zero: a Left matrix fills M and K, a
// Right fills N and K, a Result fills M and N.
type SubgroupMatrixConfig struct {
	M, N, K   uint32
	Type      ir.ScalarKind
	Direction SubgroupMatrixDirection
}

// SubgroupMatrixMultiply is one distinct multiply shape: the operands are
// left M×K and right K×N, the result M×N. InputType is the operand element
// type, OutputType the result element type (they differ for the widening
// integer multiplies, e.g. i8 inputs accumulating into i32).
type SubgroupMatrixMultiply struct {
	M, N, K    uint32
	InputType  ir.ScalarKind
	OutputType ir.ScalarKind
}

// GatherSubgroupMatrixInfo walks every function and every type reachable in
// m and returns the deduplicated set of subgroup-matrix configurations in
// use, plus the deduplicated set of multiply shapes invoked via
// subgroupMatrixMultiply / subgroupMatrixMultiplyAccumulate.
//
// Both results are sets: iteration order is unspecified, so tests and
// consumers that need determinism must sort before comparing.
func GatherSubgroupMatrixInfo(m *ir.Module) (map[SubgroupMatrixConfig]struct{}, map[SubgroupMatrixMultiply]struct{}) {
	g := &gatherer{
		configs:    map[SubgroupMatrixConfig]struct{}{},
		multiplies: map[SubgroupMatrixMultiply]struct{}{},
		seenTypes:  map[ir.Type]bool{},
	}

	for i := m.RootBlock.Front(); i != nil; i = i.Next() {
		g.visitInstruction(i)
	}
	for _, fn := range m.Functions {
		for _, p := range fn.Params {
			g.visitType(p.Type())
		}
		g.visitType(fn.RetType)
		g.visitBlock(fn.Block)
	}
	return g.configs, g.multiplies
}

type gatherer struct {
	configs    map[SubgroupMatrixConfig]struct{}
	multiplies map[SubgroupMatrixMultiply]struct{}
	seenTypes  map[ir.Type]bool
}

func (g *gatherer) visitBlock(b *ir.Block) {
	for i := b.Front(); i != nil; i = i.Next() {
		g.visitInstruction(i)
		if ctrl, ok := i.Kind.(ir.ControlInstruction); ok {
			ctrl.ForEachBlock(g.visitBlock)
		}
	}
}

func (g *gatherer) visitInstruction(i *ir.Instruction) {
	for _, op := range i.Operands() {
		if op != nil {
			g.visitType(op.Type())
		}
	}
	for _, r := range i.Results() {
		g.visitType(r.Ty)
	}
	if call, ok := i.Kind.(*ir.CoreBuiltinCall); ok {
		switch call.Fn {
		case ir.BuiltinFnSubgroupMatrixMultiply, ir.BuiltinFnSubgroupMatrixMultiplyAccumulate:
			g.recordMultiply(i, call)
		}
	}
}

// visitType records every subgroup matrix reachable through t, following
// pointers, arrays and struct members. Types are interned per module, so a
// seen-set over pointer identity prevents rewalking shared nodes.
func (g *gatherer) visitType(t ir.Type) {
	if t == nil || g.seenTypes[t] {
		return
	}
	g.seenTypes[t] = true
	switch tt := t.(type) {
	case *ir.SubgroupMatrix:
		g.configs[configOf(tt)] = struct{}{}
	case *ir.Pointer:
		g.visitType(tt.StoreType)
	case *ir.Reference:
		g.visitType(tt.StoreType)
	case *ir.Array:
		g.visitType(tt.Elem)
	case *ir.Struct:
		for _, mem := range tt.Members {
			g.visitType(mem.Type)
		}
	}
}

func configOf(t *ir.SubgroupMatrix) SubgroupMatrixConfig {
	switch t.Kind {
	case ir.SubgroupMatrixLeft:
		return SubgroupMatrixConfig{M: t.Rows, K: t.Columns, Type: t.Elem.Kind, Direction: DirectionLeft}
	case ir.SubgroupMatrixRight:
		return SubgroupMatrixConfig{N: t.Columns, K: t.Rows, Type: t.Elem.Kind, Direction: DirectionRight}
	default:
		return SubgroupMatrixConfig{M: t.Rows, N: t.Columns, Type: t.Elem.Kind, Direction: DirectionResult}
	}
}

// recordMultiply derives the multiply shape from the call's operand and
// result matrix types: left is M×K, right is K×N, the result M×N.
func (g *gatherer) recordMultiply(i *ir.Instruction, call *ir.CoreBuiltinCall) {
	if len(call.Args) < 2 || !i.HasResults() {
		return
	}
	left, lok := call.Args[0].Type().(*ir.SubgroupMatrix)
	right, rok := call.Args[1].Type().(*ir.SubgroupMatrix)
	result, resok := i.Result().Ty.(*ir.SubgroupMatrix)
	if !lok || !rok || !resok {
		return
	}
	g.multiplies[SubgroupMatrixMultiply{
		M:          left.Rows,
		N:          right.Columns,
		K:          left.Columns,
		InputType:  left.Elem.Kind,
		OutputType: result.Elem.Kind,
	}] = struct{}{}
}
