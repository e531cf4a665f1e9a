package ir

// UserCall invokes a user-defined Function with the given arguments. The
// target is operand 0 (so the callee's use-list records every call site,
// the way every other producer tracks its consumers); Args follow.
type UserCall struct {
	Target *Function
	Args   []Value
}

func (*UserCall) instructionKind() {}
func (*UserCall) Name() string     { return "call" }
func (c *UserCall) Operands() []Value {
	out := make([]Value, 0, 1+len(c.Args))
	out = append(out, c.Target)
	out = append(out, c.Args...)
	return out
}
func (c *UserCall) SetOperandAt(i int, v Value) {
	if i == 0 {
		f, ok := v.(*Function)
		Assert(ok, "UserCall.SetOperandAt: operand 0 must be a *Function")
		c.Target = f
		return
	}
	c.Args[i-1] = v
}

// BuiltinFn enumerates the core WGSL builtin functions a CoreBuiltinCall may
// invoke. This set covers the builtins the transform pipeline specifically
// inspects or rewrites; builtins with no special handling are represented
// by BuiltinFnOther with the concrete identifier recorded on the call.
type BuiltinFn uint8

const (
	BuiltinFnOther BuiltinFn = iota
	BuiltinFnArrayLength
	BuiltinFnBufferLength
	BuiltinFnBufferView
	BuiltinFnTextureStore
	BuiltinFnTextureLoad
	BuiltinFnTextureSample
	BuiltinFnTextureDimensions
	BuiltinFnTextureNumLevels
	BuiltinFnTextureNumLayers
	BuiltinFnTextureNumSamples
	BuiltinFnSubgroupMatrixLoad
	BuiltinFnSubgroupMatrixStore
	BuiltinFnSubgroupMatrixMultiply
	BuiltinFnSubgroupMatrixMultiplyAccumulate
	BuiltinFnWorkgroupUniformLoad
	BuiltinFnAtomicLoad
	BuiltinFnAtomicStore
	BuiltinFnAtomicAdd
	BuiltinFnAtomicSub
	BuiltinFnAtomicExchange
	BuiltinFnAtomicCompareExchangeWeak
)

// CoreBuiltinCall invokes a core WGSL builtin function. OtherName holds the
// textual identifier when Fn is BuiltinFnOther.
type CoreBuiltinCall struct {
	Fn        BuiltinFn
	OtherName string
	Args      []Value
}

func (*CoreBuiltinCall) instructionKind() {}
func (*CoreBuiltinCall) Name() string     { return "call_builtin" }
func (c *CoreBuiltinCall) Operands() []Value { return c.Args }
func (c *CoreBuiltinCall) SetOperandAt(i int, v Value) { c.Args[i] = v }

// IntrinsicFn enumerates backend-internal operations introduced by
// transforms, which have no surface-language spelling (e.g. the named
// matrix-multiply calls emitted by HandleMatrixArithmetic).
type IntrinsicFn uint8

const (
	IntrinsicFnOther IntrinsicFn = iota
	IntrinsicFnLoadStructMember
	IntrinsicFnStoreAndReturnPrevious
	IntrinsicFnMaskedStore
	IntrinsicFnInputAttachmentLoad
)

// IntrinsicCall invokes a backend-synthesized helper function that has no
// user-visible builtin name.
type IntrinsicCall struct {
	Fn        IntrinsicFn
	OtherName string
	Args      []Value
}

func (*IntrinsicCall) instructionKind() {}
func (*IntrinsicCall) Name() string     { return "call_intrinsic" }
func (c *IntrinsicCall) Operands() []Value { return c.Args }
func (c *IntrinsicCall) SetOperandAt(i int, v Value) { c.Args[i] = v }
