package ir

// Module is a complete translation unit: its module-scope variables (held
// in RootBlock, which is never executed and never terminated), its
// functions in declaration order, and the shared type table every Type in
// the module was interned through.
//
// A Module owns every Block, Instruction and Value reachable from it; there
// is no separate arena, since pointer identity is the whole of this IR's
// ownership model. Disassemble and the validator both walk outward from a
// Module.
type Module struct {
	Types     *TypeManager
	RootBlock *Block
	Functions []*Function

	names map[Value]string
}

// NewModule creates an empty module with its own TypeManager and an empty,
// unterminated RootBlock for module-scope variables.
func NewModule() *Module {
	return &Module{
		Types:     NewTypeManager(),
		RootBlock: NewBlock(),
		names:     map[Value]string{},
	}
}

// AddFunction appends fn to the module's function list, in the order
// functions should appear in disassembly and in backend output.
func (m *Module) AddFunction(fn *Function) {
	m.Functions = append(m.Functions, fn)
}

// SetName records a human-readable name for a value, used by Disassemble
// and preserved across transforms on a best-effort basis. Unnamed values
// are printed by a synthetic counter.
func (m *Module) SetName(v Value, name string) {
	m.names[v] = name
}

// NameOf returns the recorded name for v, or "" if none was set.
func (m *Module) NameOf(v Value) string {
	return m.names[v]
}

// EntryPoints returns every function whose Stage is not StageUndefined, in
// declaration order.
func (m *Module) EntryPoints() []*Function {
	var out []*Function
	for _, fn := range m.Functions {
		if fn.IsEntryPoint() {
			out = append(out, fn)
		}
	}
	return out
}

// ModuleVars returns the Var instructions declared at module scope, in
// declaration order.
func (m *Module) ModuleVars() []*Var {
	var out []*Var
	for i := m.RootBlock.Front(); i != nil; i = i.Next() {
		if v, ok := i.Kind.(*Var); ok {
			out = append(out, v)
		}
	}
	return out
}
