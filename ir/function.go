package ir

// PipelineStage identifies which entry-point stage, if any, a Function
// represents.
type PipelineStage uint8

const (
	StageUndefined PipelineStage = iota
	StageCompute
	StageVertex
	StageFragment
)

// WorkgroupSize holds a compute entry point's @workgroup_size(x, y, z).
// Each dimension is either a constant or an override (pipeline-overridable
// constant), modeled as a Value so overrides can be referenced.
type WorkgroupSize struct {
	X, Y, Z Value
}

// ReturnAttrs carries the attributes attached to a function's return value,
// mirroring the attributes FunctionParam carries for parameters.
type ReturnAttrs struct {
	Builtin   *BuiltinValue
	Location  *uint32
	Interp    *Interpolation
	Invariant bool
}

// Function is a top-level callable: a name, a signature, a single entry
// block, and (for entry points) a pipeline stage. Function implements
// Value so it can appear as a UserCall's target operand, with its use-list
// recording every call site.
type Function struct {
	valueBase

	FuncName string
	Params   []*FunctionParam
	RetType  Type
	Return   ReturnAttrs
	Block    *Block

	Stage         PipelineStage
	WorkgroupSize *WorkgroupSize
}

// NewFunction creates a function with the given name and return type and a
// single, empty root block. retType may be the module's Void type.
func NewFunction(name string, retType Type) *Function {
	return &Function{
		FuncName: name,
		RetType:  retType,
		Block:    NewBlock(),
	}
}

// Type returns the function's return type. A call's result type is always
// its target's return type, so this is what UserCall result construction
// reads.
func (f *Function) Type() Type { return f.RetType }

func (f *Function) ForEachUse(fn func(Usage))                     { f.forEachUse(fn) }
func (f *Function) ReplaceAllUsesWith(v Value)                     { f.replaceAllUsesWith(f, v) }
func (f *Function) ReplaceAllUsesWithFunc(fn func(Usage) Value)    { f.replaceAllUsesWithFunc(fn) }

// IsEntryPoint reports whether this function is a shader entry point.
func (f *Function) IsEntryPoint() bool { return f.Stage != StageUndefined }

// AddParam appends a parameter to the function's signature.
func (f *Function) AddParam(p *FunctionParam) { f.Params = append(f.Params, p) }
