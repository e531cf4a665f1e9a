package ir

// Usage identifies a single operand slot that refers to a Value: the
// consuming instruction, and the index of the operand within that
// instruction's operand list.
type Usage struct {
	Instruction *Instruction
	OperandIndex int
}

// Value is the common interface of everything an instruction can consume as
// an operand: constants, instruction results, function parameters, block
// parameters, and functions themselves (as call targets). Every producer
// owns exactly one use-list; operand slots on consumers are its mirror, so
// a Value never needs to be told about the instructions mentioning it
// except through addUse/removeUse.
type Value interface {
	// Type returns the value's type.
	Type() Type
	// Uses returns a snapshot of the value's current use-list. Mutating the
	// returned slice has no effect on the value.
	Uses() []Usage
	// ForEachUse visits every use. The snapshot is taken before the first
	// call, so func may mutate operands (including removing itself from
	// the use-list) without perturbing the iteration.
	ForEachUse(func(Usage))
	// ReplaceAllUsesWith rewrites every current use to refer to v instead.
	ReplaceAllUsesWith(v Value)
	// ReplaceAllUsesWithFunc rewrites every current use to refer to
	// whatever replacer returns for that use, allowing per-use
	// substitution.
	ReplaceAllUsesWithFunc(replacer func(Usage) Value)

	addUse(u Usage)
	removeUse(u Usage)
}

// valueBase implements the use-list bookkeeping shared by every Value
// implementation. Embed it and provide Type().
type valueBase struct {
	uses []Usage
}

func (b *valueBase) Uses() []Usage {
	out := make([]Usage, len(b.uses))
	copy(out, b.uses)
	return out
}

func (b *valueBase) addUse(u Usage) {
	b.uses = append(b.uses, u)
}

func (b *valueBase) removeUse(u Usage) {
	for i, existing := range b.uses {
		if existing.Instruction == u.Instruction && existing.OperandIndex == u.OperandIndex {
			b.uses[i] = b.uses[len(b.uses)-1]
			b.uses = b.uses[:len(b.uses)-1]
			return
		}
	}
}

// forEachUse calls fn for every use recorded when the call begins. It
// iterates a snapshot of the use-list, so fn may add or remove uses of b.
func (b *valueBase) forEachUse(fn func(Usage)) {
	snapshot := b.Uses()
	for _, u := range snapshot {
		fn(u)
	}
}

func (b *valueBase) replaceAllUsesWith(self Value, v Value) {
	for len(b.uses) > 0 {
		u := b.uses[0]
		u.Instruction.SetOperand(u.OperandIndex, v)
	}
	_ = self
}

func (b *valueBase) replaceAllUsesWithFunc(replacer func(Usage) Value) {
	for len(b.uses) > 0 {
		u := b.uses[0]
		next := replacer(u)
		u.Instruction.SetOperand(u.OperandIndex, next)
	}
}

// Constant is a pure value shared across the module: every use of the same
// constant (by value) may point at the same Constant instance.
type Constant struct {
	valueBase
	Ty    Type
	Value ConstantValue
}

func (c *Constant) Type() Type { return c.Ty }
func (c *Constant) ForEachUse(fn func(Usage))        { c.forEachUse(fn) }
func (c *Constant) ReplaceAllUsesWith(v Value)        { c.replaceAllUsesWith(c, v) }
func (c *Constant) ReplaceAllUsesWithFunc(f func(Usage) Value) { c.replaceAllUsesWithFunc(f) }

// ConstantValue is the payload of a Constant: a scalar bit pattern or a
// composite of component constants.
type ConstantValue interface {
	isConstantValue()
}

// ScalarConstant holds a scalar constant's bit pattern, reinterpreted
// according to Kind.
type ScalarConstant struct {
	Kind ScalarKind
	Bits uint64
}

func (ScalarConstant) isConstantValue() {}

// CompositeConstant holds a vector/matrix/array/struct constant as a list
// of component constants.
type CompositeConstant struct {
	Components []*Constant
}

func (CompositeConstant) isConstantValue() {}

// InstructionResult is a value owned by the instruction that produced it.
type InstructionResult struct {
	valueBase
	Ty     Type
	Source *Instruction
}

func (r *InstructionResult) Type() Type                          { return r.Ty }
func (r *InstructionResult) ForEachUse(fn func(Usage))            { r.forEachUse(fn) }
func (r *InstructionResult) ReplaceAllUsesWith(v Value)           { r.replaceAllUsesWith(r, v) }
func (r *InstructionResult) ReplaceAllUsesWithFunc(f func(Usage) Value) { r.replaceAllUsesWithFunc(f) }

// SourceInstruction returns the instruction that produced this result.
func (r *InstructionResult) SourceInstruction() *Instruction { return r.Source }

// Interpolation describes how a fragment-stage value is interpolated.
type Interpolation struct {
	Kind     InterpolationKind
	Sampling InterpolationSampling
}

type InterpolationKind uint8

const (
	InterpolationPerspective InterpolationKind = iota
	InterpolationLinear
	InterpolationFlat
)

type InterpolationSampling uint8

const (
	SamplingCenter InterpolationSampling = iota
	SamplingCentroid
	SamplingSample
)

// BuiltinValue enumerates the builtin bindings a parameter/result may carry.
type BuiltinValue uint8

const (
	BuiltinPosition BuiltinValue = iota
	BuiltinVertexIndex
	BuiltinInstanceIndex
	BuiltinFrontFacing
	BuiltinFragDepth
	BuiltinSampleIndex
	BuiltinSampleMask
	BuiltinLocalInvocationID
	BuiltinLocalInvocationIndex
	BuiltinGlobalInvocationID
	BuiltinWorkgroupID
	BuiltinNumWorkgroups
	BuiltinSubgroupInvocationID
	BuiltinSubgroupSize
)

// BindingPoint identifies a resource's @group/@binding pair.
type BindingPoint struct {
	Group   uint32
	Binding uint32
}

// FunctionParam is a function parameter value.
type FunctionParam struct {
	valueBase
	Ty            Type
	Name          string
	BuiltinAttr   *BuiltinValue
	LocationAttr  *uint32
	Interp        *Interpolation
	BindingAttr   *BindingPoint
	InvariantAttr bool
}

func (p *FunctionParam) Type() Type                          { return p.Ty }
func (p *FunctionParam) ForEachUse(fn func(Usage))            { p.forEachUse(fn) }
func (p *FunctionParam) ReplaceAllUsesWith(v Value)           { p.replaceAllUsesWith(p, v) }
func (p *FunctionParam) ReplaceAllUsesWithFunc(f func(Usage) Value) { p.replaceAllUsesWithFunc(f) }

// BlockParam is a phi-like parameter of a MultiInBlock: its value is
// supplied per inbound branch.
type BlockParam struct {
	valueBase
	Ty   Type
	Name string
}

func (p *BlockParam) Type() Type                          { return p.Ty }
func (p *BlockParam) ForEachUse(fn func(Usage))            { p.forEachUse(fn) }
func (p *BlockParam) ReplaceAllUsesWith(v Value)           { p.replaceAllUsesWith(p, v) }
func (p *BlockParam) ReplaceAllUsesWithFunc(f func(Usage) Value) { p.replaceAllUsesWithFunc(f) }
