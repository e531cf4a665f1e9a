package validate

// Capabilities is a bit-set of IR constructs the validator will accept
// beyond the strict WGSL core language. A reader or transform documents
// which capabilities its output requires; the pipeline's prologue check
// rejects a module that relies on a capability the caller didn't grant.
type Capabilities uint32

const (
	// AllowDuplicateBindings permits two storage/uniform/handle variables
	// to share a {group, binding} pair. Some backends merge such variables
	// downstream; the core validator otherwise requires unique bindings.
	AllowDuplicateBindings Capabilities = 1 << iota
	// Allow8BitIntegers permits i8/u8 scalar, vector and array element
	// types, which are not part of core WGSL.
	Allow8BitIntegers
	// Allow16BitIntegers permits i16/u16 scalar, vector and array element
	// types. DecomposeAccess introduces u16 arrays and requires this
	// capability whenever it selects a 2-byte BaseElem.
	Allow16BitIntegers
	// AllowClipDistancesOnF32ScalarAndVector permits the clip_distances
	// builtin to target a scalar or vector f32, not only array<f32, N>.
	AllowClipDistancesOnF32ScalarAndVector
	// AllowNonCoreTypes permits types with no WGSL surface spelling at all
	// (e.g. subgroup matrices, intrinsic helper return types introduced by
	// a transform) to appear in a module that still otherwise validates.
	AllowNonCoreTypes
	// AllowOverrides permits override-expression operands (pipeline
	// overridable constants) to remain unresolved.
	AllowOverrides
	// AllowResourceBinding permits a storage/uniform/handle Var to omit an
	// explicit {group, binding} (the reader or a later pass assigns one).
	AllowResourceBinding
)

// Has reports whether every bit set in want is also set in c.
func (c Capabilities) Has(want Capabilities) bool { return c&want == want }

// With returns c with every bit of other additionally set.
func (c Capabilities) With(other Capabilities) Capabilities { return c | other }

// DefaultCapabilities is the capability set a freshly parsed, core-WGSL
// module is expected to validate against: no extension bits set.
func DefaultCapabilities() Capabilities { return 0 }
