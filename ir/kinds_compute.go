package ir

// BinaryOp enumerates the operators a Binary instruction may apply.
type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota
	BinarySubtract
	BinaryMultiply
	BinaryDivide
	BinaryModulo
	BinaryAnd
	BinaryOr
	BinaryXor
	BinaryShiftLeft
	BinaryShiftRight
	BinaryEqual
	BinaryNotEqual
	BinaryLessThan
	BinaryGreaterThan
	BinaryLessThanEqual
	BinaryGreaterThanEqual
	BinaryLogicalAnd
	BinaryLogicalOr
)

// Binary applies a binary operator to two operands, producing one result.
type Binary struct {
	Op  BinaryOp
	LHS Value
	RHS Value
}

func (*Binary) instructionKind() {}
func (*Binary) Name() string     { return "binary" }
func (b *Binary) Operands() []Value { return []Value{b.LHS, b.RHS} }
func (b *Binary) SetOperandAt(i int, v Value) {
	switch i {
	case 0:
		b.LHS = v
	case 1:
		b.RHS = v
	default:
		ICEf("Binary.SetOperandAt: index out of range")
	}
}

// UnaryOp enumerates the operators a Unary instruction may apply.
type UnaryOp uint8

const (
	UnaryComplement UnaryOp = iota
	UnaryNegate
	UnaryNot
	UnaryAddressOf
	UnaryIndirection
)

// Unary applies a unary operator to one operand, producing one result.
type Unary struct {
	Op  UnaryOp
	Val Value
}

func (*Unary) instructionKind() {}
func (*Unary) Name() string     { return "unary" }
func (u *Unary) Operands() []Value { return []Value{u.Val} }
func (u *Unary) SetOperandAt(i int, v Value) {
	Assert(i == 0, "Unary.SetOperandAt: index out of range")
	u.Val = v
}

// Convert performs an explicit value conversion between types (e.g.
// f32->i32), as opposed to Bitcast's bit-pattern reinterpretation.
type Convert struct {
	Val Value
}

func (*Convert) instructionKind() {}
func (*Convert) Name() string     { return "convert" }
func (c *Convert) Operands() []Value { return []Value{c.Val} }
func (c *Convert) SetOperandAt(i int, v Value) {
	Assert(i == 0, "Convert.SetOperandAt: index out of range")
	c.Val = v
}

// Bitcast reinterprets the bit pattern of Val as the instruction's result
// type, without any value conversion.
type Bitcast struct {
	Val Value
}

func (*Bitcast) instructionKind() {}
func (*Bitcast) Name() string     { return "bitcast" }
func (c *Bitcast) Operands() []Value { return []Value{c.Val} }
func (c *Bitcast) SetOperandAt(i int, v Value) {
	Assert(i == 0, "Bitcast.SetOperandAt: index out of range")
	c.Val = v
}

// Construct builds a value of the instruction's result type out of its
// operands: a single-operand splat, or one operand per component/member.
type Construct struct {
	Args []Value
}

func (*Construct) instructionKind() {}
func (*Construct) Name() string     { return "construct" }
func (c *Construct) Operands() []Value { return c.Args }
func (c *Construct) SetOperandAt(i int, v Value) { c.Args[i] = v }

// Access indexes into Object with a chain of Indices, each either a
// constant (static member/element selection) or a dynamic index value.
// Operand 0 is always Object; operands 1..N are Indices in order.
type Access struct {
	Object  Value
	Indices []Value
}

func (*Access) instructionKind() {}
func (*Access) Name() string     { return "access" }
func (a *Access) Operands() []Value {
	out := make([]Value, 0, 1+len(a.Indices))
	out = append(out, a.Object)
	out = append(out, a.Indices...)
	return out
}
func (a *Access) SetOperandAt(i int, v Value) {
	if i == 0 {
		a.Object = v
		return
	}
	a.Indices[i-1] = v
}

// Swizzle extracts a permutation of up to 4 components (each in [0,4)) from
// a vector operand.
type Swizzle struct {
	Object  Value
	Indices []uint32 // length 1..4, each < 4
}

func (*Swizzle) instructionKind() {}
func (*Swizzle) Name() string     { return "swizzle" }
func (s *Swizzle) Operands() []Value { return []Value{s.Object} }
func (s *Swizzle) SetOperandAt(i int, v Value) {
	Assert(i == 0, "Swizzle.SetOperandAt: index out of range")
	s.Object = v
}
