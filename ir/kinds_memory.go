package ir

// Var declares a memory location (function-local, private, workgroup,
// storage, uniform, handle, or pixel_local) and produces a pointer or
// reference to it. Module-scope vars additionally carry binding and name
// attributes consumed by the validator and by DecomposeAccess.
type Var struct {
	VarName              string
	Initializer          Value // nil if not initialized
	BindingAttr          *BindingPoint
	InputAttachmentIndex *uint32
}

func (*Var) instructionKind() {}
func (*Var) Name() string     { return "var" }
func (v *Var) Operands() []Value {
	if v.Initializer == nil {
		return nil
	}
	return []Value{v.Initializer}
}
func (v *Var) SetOperandAt(i int, val Value) {
	Assert(i == 0, "Var.SetOperandAt: index out of range")
	v.Initializer = val
}

// Let binds a name to a value without introducing a new memory location.
// ValueToLet inserts these to force a shared subexpression to be computed
// once and reused by name; DecomposeAccess dissolves them again when it
// replaces a var access chain with direct offset arithmetic.
type Let struct {
	Val Value
}

func (*Let) instructionKind()          {}
func (*Let) Name() string              { return "let" }
func (l *Let) Operands() []Value       { return []Value{l.Val} }
func (l *Let) SetOperandAt(i int, v Value) {
	Assert(i == 0, "Let.SetOperandAt: index out of range")
	l.Val = v
}

// Load reads the value currently stored through a pointer or reference.
type Load struct {
	From Value
}

func (*Load) instructionKind() {}
func (*Load) Name() string     { return "load" }
func (l *Load) Operands() []Value { return []Value{l.From} }
func (l *Load) SetOperandAt(i int, v Value) {
	Assert(i == 0, "Load.SetOperandAt: index out of range")
	l.From = v
}

// LoadVectorElement reads a single element out of a vector held behind a
// pointer or reference, without materializing the whole vector. Produced by
// DecomposeAccess to avoid loading padding lanes.
type LoadVectorElement struct {
	From  Value
	Index Value
}

func (*LoadVectorElement) instructionKind() {}
func (*LoadVectorElement) Name() string     { return "load_vector_element" }
func (l *LoadVectorElement) Operands() []Value { return []Value{l.From, l.Index} }
func (l *LoadVectorElement) SetOperandAt(i int, v Value) {
	switch i {
	case 0:
		l.From = v
	case 1:
		l.Index = v
	default:
		ICEf("LoadVectorElement.SetOperandAt: index out of range")
	}
}

// Store writes a value through a pointer or reference.
type Store struct {
	To  Value
	Val Value
}

func (*Store) instructionKind() {}
func (*Store) Name() string     { return "store" }
func (s *Store) Operands() []Value { return []Value{s.To, s.Val} }
func (s *Store) SetOperandAt(i int, v Value) {
	switch i {
	case 0:
		s.To = v
	case 1:
		s.Val = v
	default:
		ICEf("Store.SetOperandAt: index out of range")
	}
}

// StoreVectorElement writes a single element into a vector held behind a
// pointer or reference, without a read-modify-write of the whole vector.
type StoreVectorElement struct {
	To    Value
	Index Value
	Val   Value
}

func (*StoreVectorElement) instructionKind() {}
func (*StoreVectorElement) Name() string     { return "store_vector_element" }
func (s *StoreVectorElement) Operands() []Value { return []Value{s.To, s.Index, s.Val} }
func (s *StoreVectorElement) SetOperandAt(i int, v Value) {
	switch i {
	case 0:
		s.To = v
	case 1:
		s.Index = v
	case 2:
		s.Val = v
	default:
		ICEf("StoreVectorElement.SetOperandAt: index out of range")
	}
}
