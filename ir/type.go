package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is an interned node in the module's type graph. Two structurally
// identical types always compare equal as Go values returned from the same
// TypeManager, since TypeManager.intern deduplicates by structural key:
// callers may use pointer equality to test type identity.
type Type interface {
	isType()
	// Size returns the size in bytes of a value of this type, following
	// WGSL host-shareable layout rules.
	Size() uint32
	// Align returns the required alignment in bytes.
	Align() uint32
	// String renders the type using WGSL-ish syntax, as used by Disassemble.
	String() string
}

// ScalarKind enumerates the scalar kinds modeled by the IR.
type ScalarKind uint8

const (
	Bool ScalarKind = iota
	I8
	U8
	I16
	U16
	I32
	U32
	F16
	F32
)

func (k ScalarKind) String() string {
	switch k {
	case Bool:
		return "bool"
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case F16:
		return "f16"
	case F32:
		return "f32"
	default:
		return fmt.Sprintf("scalar(%d)", uint8(k))
	}
}

// byteWidth returns the size and alignment, in bytes, of a scalar kind. Both
// are equal for every scalar: size == align.
func (k ScalarKind) byteWidth() uint32 {
	switch k {
	case Bool:
		// Bool has no host-shareable representation; treat it like a 4-byte
		// value for internal bookkeeping (it never appears in a buffer).
		return 4
	case I8, U8:
		return 1
	case I16, U16, F16:
		return 2
	case I32, U32, F32:
		return 4
	default:
		return 4
	}
}

// IsInteger reports whether the scalar kind is an integer type.
func (k ScalarKind) IsInteger() bool {
	switch k {
	case I8, U8, I16, U16, I32, U32:
		return true
	default:
		return false
	}
}

// IsSigned reports whether the scalar kind is a signed integer type.
func (k ScalarKind) IsSigned() bool {
	return k == I8 || k == I16 || k == I32
}

// Scalar is a scalar type.
type Scalar struct {
	Kind ScalarKind
}

func (*Scalar) isType()          {}
func (s *Scalar) Size() uint32   { return s.Kind.byteWidth() }
func (s *Scalar) Align() uint32  { return s.Kind.byteWidth() }
func (s *Scalar) String() string { return s.Kind.String() }

// Vector is a vector type of 2, 3 or 4 scalar components.
type Vector struct {
	Elem   *Scalar
	Width  uint8 // 2, 3, or 4
	Packed bool  // packed vec3: aligned to its element size instead of 16
}

func (*Vector) isType() {}

func (v *Vector) Size() uint32 {
	return uint32(v.Width) * v.Elem.Size()
}

func (v *Vector) Align() uint32 {
	switch v.Width {
	case 2:
		return 2 * v.Elem.Size()
	case 3:
		if v.Packed {
			return v.Elem.Size()
		}
		return 4 * v.Elem.Size()
	default:
		return 4 * v.Elem.Size()
	}
}

func (v *Vector) String() string {
	return fmt.Sprintf("vec%d<%s>", v.Width, v.Elem.String())
}

// Matrix is a matrix type with Columns x Rows float components.
type Matrix struct {
	Columns uint8
	Rows    uint8
	Elem    *Scalar // always a float kind (f16 or f32)
	Column  *Vector // the column vector type, Width == Rows
}

func (*Matrix) isType() {}

// ColumnStride is the byte stride between consecutive matrix columns:
// equal to the column vector's alignment.
func (m *Matrix) ColumnStride() uint32 { return m.Column.Align() }

func (m *Matrix) Size() uint32  { return uint32(m.Columns) * m.ColumnStride() }
func (m *Matrix) Align() uint32 { return m.Column.Align() }

func (m *Matrix) String() string {
	return fmt.Sprintf("mat%dx%d<%s>", m.Columns, m.Rows, m.Elem.String())
}

// ArrayCount describes an array's element count: either a compile-time
// constant or runtime-determined (the last member of a storage-buffer
// struct, or a top-level runtime array).
type ArrayCount struct {
	Constant *uint32 // nil means runtime-sized
}

// Runtime reports whether the array has no compile-time-known count.
func (c ArrayCount) Runtime() bool { return c.Constant == nil }

// Array is a (possibly runtime-sized) array type.
type Array struct {
	Elem            Type
	Count           ArrayCount
	Stride          uint32 // explicit byte stride between elements
	ImplicitStride  uint32 // round_up(elem.Size(), elem.Align())
}

func (*Array) isType() {}

func (a *Array) Size() uint32 {
	if a.Count.Runtime() {
		return 0
	}
	return *a.Count.Constant * a.Stride
}

func (a *Array) Align() uint32 { return a.Elem.Align() }

func (a *Array) String() string {
	if a.Count.Runtime() {
		return fmt.Sprintf("array<%s>", a.Elem.String())
	}
	return fmt.Sprintf("array<%s, %d>", a.Elem.String(), *a.Count.Constant)
}

// StructMember is a single field of a Struct type.
type StructMember struct {
	Name   string
	Type   Type
	Offset uint32
	Size   uint32
	Align  uint32
}

// Struct is a structure type. Member offsets are explicit and must satisfy
// Offset >= previous.Offset+previous.Size and be a multiple of Align.
type Struct struct {
	Name       string
	Members    []StructMember
	SizeBytes  uint32
	AlignBytes uint32
}

func (*Struct) isType()         {}
func (s *Struct) Size() uint32  { return s.SizeBytes }
func (s *Struct) Align() uint32 { return s.AlignBytes }

func (s *Struct) String() string {
	if s.Name != "" {
		return s.Name
	}
	var b strings.Builder
	b.WriteString("struct{")
	for i, m := range s.Members {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.Name)
		b.WriteString(": ")
		b.WriteString(m.Type.String())
	}
	b.WriteString("}")
	return b.String()
}

// AddressSpace enumerates memory address spaces a pointer/variable may live
// in.
type AddressSpace uint8

const (
	SpaceFunction AddressSpace = iota
	SpacePrivate
	SpaceWorkgroup
	SpaceUniform
	SpaceStorage
	SpacePushConstant
	SpaceImmediate
	SpaceHandle
	SpaceUndefined
)

func (s AddressSpace) String() string {
	switch s {
	case SpaceFunction:
		return "function"
	case SpacePrivate:
		return "private"
	case SpaceWorkgroup:
		return "workgroup"
	case SpaceUniform:
		return "uniform"
	case SpaceStorage:
		return "storage"
	case SpacePushConstant:
		return "push_constant"
	case SpaceImmediate:
		return "immediate"
	case SpaceHandle:
		return "handle"
	default:
		return "undefined"
	}
}

// Access is the access control for a pointer or storage variable.
type Access uint8

const (
	AccessRead Access = iota
	AccessWrite
	AccessReadWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "read_write"
	}
}

// Pointer is a pointer type. The store type of a Pointer is never itself a
// pointer.
type Pointer struct {
	Space     AddressSpace
	StoreType Type
	AccessCtl Access
}

func (*Pointer) isType() {}

// Pointers have no host-shareable representation; Size/Align are nominal
// (matching a 32-bit handle) so generic layout code does not need a special
// case when a pointer briefly appears as an operand type.
func (*Pointer) Size() uint32  { return 4 }
func (*Pointer) Align() uint32 { return 4 }

func (p *Pointer) String() string {
	return fmt.Sprintf("ptr<%s, %s, %s>", p.Space, p.StoreType.String(), p.AccessCtl)
}

// Reference is like Pointer but denotes an addressable reference produced
// transiently during lowering rather than an explicit WGSL pointer.
type Reference struct {
	Space     AddressSpace
	StoreType Type
	AccessCtl Access
}

func (*Reference) isType()  {}
func (*Reference) Size() uint32  { return 4 }
func (*Reference) Align() uint32 { return 4 }

func (r *Reference) String() string {
	return fmt.Sprintf("ref<%s, %s, %s>", r.Space, r.StoreType.String(), r.AccessCtl)
}

// Atomic wraps a scalar type (i32 or u32) for atomic operations.
type Atomic struct {
	Inner *Scalar
}

func (*Atomic) isType()          {}
func (a *Atomic) Size() uint32   { return a.Inner.Size() }
func (a *Atomic) Align() uint32  { return a.Inner.Align() }
func (a *Atomic) String() string { return fmt.Sprintf("atomic<%s>", a.Inner.String()) }

// TextureDimension enumerates texture dimensionality.
type TextureDimension uint8

const (
	Dim1D TextureDimension = iota
	Dim2D
	Dim2DArray
	Dim3D
	DimCube
	DimCubeArray
)

func (d TextureDimension) String() string {
	switch d {
	case Dim1D:
		return "1d"
	case Dim2D:
		return "2d"
	case Dim2DArray:
		return "2d_array"
	case Dim3D:
		return "3d"
	case DimCube:
		return "cube"
	default:
		return "cube_array"
	}
}

// TexelFormat enumerates the storage-texture texel formats the IR models.
type TexelFormat uint8

const (
	FormatRGBA8Unorm TexelFormat = iota
	FormatRGBA8Snorm
	FormatBGRA8Unorm
	FormatRGBA16Float
	FormatRGBA32Float
	FormatR32Uint
	FormatR32Sint
	FormatR32Float
)

func (f TexelFormat) String() string {
	switch f {
	case FormatRGBA8Unorm:
		return "rgba8unorm"
	case FormatRGBA8Snorm:
		return "rgba8snorm"
	case FormatBGRA8Unorm:
		return "bgra8unorm"
	case FormatRGBA16Float:
		return "rgba16float"
	case FormatRGBA32Float:
		return "rgba32float"
	case FormatR32Uint:
		return "r32uint"
	case FormatR32Sint:
		return "r32sint"
	default:
		return "r32float"
	}
}

// SampledTexture is a non-multisampled sampled texture.
type SampledTexture struct {
	DimKind    TextureDimension
	SampleType *Scalar
}

func (*SampledTexture) isType()          {}
func (*SampledTexture) Size() uint32     { return 4 }
func (*SampledTexture) Align() uint32    { return 4 }
func (t *SampledTexture) String() string { return fmt.Sprintf("texture_%s<%s>", t.DimKind, t.SampleType) }

// MultisampledTexture is a multisampled sampled texture.
type MultisampledTexture struct {
	DimKind    TextureDimension
	SampleType *Scalar
}

func (*MultisampledTexture) isType()       {}
func (*MultisampledTexture) Size() uint32  { return 4 }
func (*MultisampledTexture) Align() uint32 { return 4 }
func (t *MultisampledTexture) String() string {
	return fmt.Sprintf("texture_multisampled_%s<%s>", t.DimKind, t.SampleType)
}

// DepthTexture is a depth-comparison texture.
type DepthTexture struct {
	DimKind TextureDimension
}

func (*DepthTexture) isType()          {}
func (*DepthTexture) Size() uint32     { return 4 }
func (*DepthTexture) Align() uint32    { return 4 }
func (t *DepthTexture) String() string { return fmt.Sprintf("texture_depth_%s", t.DimKind) }

// DepthMultisampledTexture is a multisampled depth-comparison texture.
type DepthMultisampledTexture struct {
	DimKind TextureDimension
}

func (*DepthMultisampledTexture) isType()       {}
func (*DepthMultisampledTexture) Size() uint32  { return 4 }
func (*DepthMultisampledTexture) Align() uint32 { return 4 }
func (t *DepthMultisampledTexture) String() string {
	return fmt.Sprintf("texture_depth_multisampled_%s", t.DimKind)
}

// StorageTexture is a storage (read/write) texture.
type StorageTexture struct {
	DimKind   TextureDimension
	Format    TexelFormat
	AccessCtl Access
}

func (*StorageTexture) isType()       {}
func (*StorageTexture) Size() uint32  { return 4 }
func (*StorageTexture) Align() uint32 { return 4 }
func (t *StorageTexture) String() string {
	return fmt.Sprintf("texture_storage_%s<%s, %s>", t.DimKind, t.Format, t.AccessCtl)
}

// Sampler is a texture sampler (comparison or regular).
type Sampler struct {
	Comparison bool
}

func (*Sampler) isType()      {}
func (*Sampler) Size() uint32  { return 4 }
func (*Sampler) Align() uint32 { return 4 }
func (s *Sampler) String() string {
	if s.Comparison {
		return "sampler_comparison"
	}
	return "sampler"
}

// SubgroupMatrixKind distinguishes the three cooperative-matrix roles.
type SubgroupMatrixKind uint8

const (
	SubgroupMatrixLeft SubgroupMatrixKind = iota
	SubgroupMatrixRight
	SubgroupMatrixResult
)

func (k SubgroupMatrixKind) String() string {
	switch k {
	case SubgroupMatrixLeft:
		return "left"
	case SubgroupMatrixRight:
		return "right"
	default:
		return "result"
	}
}

// SubgroupMatrix is a GPU-thread-group-wide cooperative matrix type.
type SubgroupMatrix struct {
	Kind    SubgroupMatrixKind
	Elem    *Scalar
	Columns uint32
	Rows    uint32
}

func (*SubgroupMatrix) isType() {}

func (m *SubgroupMatrix) Size() uint32  { return m.Columns * m.Rows * m.Elem.Size() }
func (m *SubgroupMatrix) Align() uint32 { return m.Elem.Align() }

func (m *SubgroupMatrix) String() string {
	return fmt.Sprintf("subgroup_matrix_%s<%s, %d, %d>", m.Kind, m.Elem.String(), m.Columns, m.Rows)
}

// Void is the empty type, used for instructions and function results that
// produce no value.
type Void struct{}

func (Void) isType()          {}
func (Void) Size() uint32     { return 0 }
func (Void) Align() uint32    { return 0 }
func (Void) String() string   { return "void" }

// roundUp rounds v up to the nearest multiple of align. align must be > 0.
func roundUp(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	return ((v + align - 1) / align) * align
}

// TypeManager interns every Type created for a single Module, so that
// structurally identical types share one canonical pointer.
type TypeManager struct {
	byKey map[string]Type
	all   []Type

	voidTy *Void
	scalar [9]*Scalar // indexed by ScalarKind
}

// NewTypeManager creates an empty, pre-seeded TypeManager (scalars and void
// are interned eagerly since every module needs them).
func NewTypeManager() *TypeManager {
	tm := &TypeManager{byKey: make(map[string]Type, 64)}
	v := Void{}
	tm.voidTy = &v
	for k := Bool; k <= F32; k++ {
		tm.scalar[k] = tm.internScalar(k)
	}
	tm.all = nil
	return tm
}

func (tm *TypeManager) intern(key string, make func() Type) Type {
	if existing, ok := tm.byKey[key]; ok {
		return existing
	}
	t := make()
	tm.byKey[key] = t
	tm.all = append(tm.all, t)
	return t
}

func (tm *TypeManager) internScalar(k ScalarKind) *Scalar {
	key := "scalar:" + strconv.Itoa(int(k))
	return tm.intern(key, func() Type { return &Scalar{Kind: k} }).(*Scalar)
}

// Void returns the canonical void type.
func (tm *TypeManager) Void() Type { return tm.voidTy }

// Scalar returns the canonical scalar type for the given kind.
func (tm *TypeManager) Scalar(k ScalarKind) *Scalar { return tm.scalar[k] }

// Bool, I32, U32, F32, F16, I8, U8, U16 are convenience accessors for the
// most commonly used scalar types.
func (tm *TypeManager) Bool() *Scalar { return tm.scalar[Bool] }
func (tm *TypeManager) I32() *Scalar  { return tm.scalar[I32] }
func (tm *TypeManager) U32() *Scalar  { return tm.scalar[U32] }
func (tm *TypeManager) F32() *Scalar  { return tm.scalar[F32] }
func (tm *TypeManager) F16() *Scalar  { return tm.scalar[F16] }
func (tm *TypeManager) I8() *Scalar   { return tm.scalar[I8] }
func (tm *TypeManager) U8() *Scalar   { return tm.scalar[U8] }
func (tm *TypeManager) U16() *Scalar  { return tm.scalar[U16] }

// Vector returns the canonical vector type of the given width and element.
func (tm *TypeManager) Vector(elem *Scalar, width uint8) *Vector {
	return tm.vectorImpl(elem, width, false)
}

// PackedVector returns the canonical packed-vec3 type (aligned to its
// element size).
func (tm *TypeManager) PackedVector(elem *Scalar, width uint8) *Vector {
	return tm.vectorImpl(elem, width, true)
}

func (tm *TypeManager) vectorImpl(elem *Scalar, width uint8, packed bool) *Vector {
	ICEIf(width < 2 || width > 4, "vector width must be 2, 3, or 4, got %d", width)
	key := fmt.Sprintf("vec:%d:%d:%v", width, elem.Kind, packed)
	return tm.intern(key, func() Type {
		return &Vector{Elem: elem, Width: width, Packed: packed}
	}).(*Vector)
}

// Vec2U32 / Vec4U32 are convenience accessors used heavily by DecomposeAccess.
func (tm *TypeManager) Vec2U32() *Vector { return tm.Vector(tm.U32(), 2) }
func (tm *TypeManager) Vec4U32() *Vector { return tm.Vector(tm.U32(), 4) }

// Matrix returns the canonical Columns x Rows matrix type over elem.
func (tm *TypeManager) Matrix(elem *Scalar, columns, rows uint8) *Matrix {
	ICEIf(columns < 2 || columns > 4, "matrix columns must be 2, 3, or 4, got %d", columns)
	ICEIf(rows < 2 || rows > 4, "matrix rows must be 2, 3, or 4, got %d", rows)
	col := tm.Vector(elem, rows)
	key := fmt.Sprintf("mat:%dx%d:%d", columns, rows, elem.Kind)
	return tm.intern(key, func() Type {
		return &Matrix{Columns: columns, Rows: rows, Elem: elem, Column: col}
	}).(*Matrix)
}

// Array returns the canonical fixed-size array type, with stride defaulting
// to the element's implicit stride (round_up(elem.Size(), elem.Align())).
func (tm *TypeManager) Array(elem Type, count uint32) *Array {
	return tm.arrayImpl(elem, &count, 0)
}

// ArrayWithStride is like Array but with an explicit stride (must be >=
// the implicit stride).
func (tm *TypeManager) ArrayWithStride(elem Type, count uint32, stride uint32) *Array {
	return tm.arrayImpl(elem, &count, stride)
}

// RuntimeArray returns the canonical runtime-sized array type.
func (tm *TypeManager) RuntimeArray(elem Type) *Array {
	return tm.arrayImpl(elem, nil, 0)
}

func (tm *TypeManager) arrayImpl(elem Type, count *uint32, explicitStride uint32) *Array {
	implicit := roundUp(elem.Size(), elem.Align())
	stride := implicit
	if explicitStride != 0 {
		ICEIf(explicitStride < implicit, "array stride %d smaller than implicit stride %d", explicitStride, implicit)
		stride = explicitStride
	}
	var key string
	if count == nil {
		key = fmt.Sprintf("array:%p:runtime:%d", elem, stride)
	} else {
		key = fmt.Sprintf("array:%p:%d:%d", elem, *count, stride)
	}
	return tm.intern(key, func() Type {
		var c ArrayCount
		if count != nil {
			v := *count
			c = ArrayCount{Constant: &v}
		}
		return &Array{Elem: elem, Count: c, Stride: stride, ImplicitStride: implicit}
	}).(*Array)
}

// Struct creates (and interns) a new struct type from pre-computed members.
// Offsets are taken as given; ComputeStructLayout can be used to derive
// them from a plain list of member types first.
func (tm *TypeManager) Struct(name string, members []StructMember) *Struct {
	size, align := uint32(0), uint32(1)
	for _, m := range members {
		if m.Align > align {
			align = m.Align
		}
		end := m.Offset + m.Size
		if end > size {
			size = end
		}
	}
	size = roundUp(size, align)
	key := "struct:" + name
	for _, m := range members {
		key += fmt.Sprintf(":%s@%d", m.Name, m.Offset)
	}
	return tm.intern(key, func() Type {
		return &Struct{Name: name, Members: members, SizeBytes: size, AlignBytes: align}
	}).(*Struct)
}

// ComputeStructLayout lays out members sequentially following WGSL rules:
// each member is rounded up to its own alignment from the previous member's
// end.
func ComputeStructLayout(names []string, types []Type) []StructMember {
	ICEIf(len(names) != len(types), "ComputeStructLayout: mismatched names/types length")
	members := make([]StructMember, len(types))
	offset := uint32(0)
	for i, t := range types {
		offset = roundUp(offset, t.Align())
		members[i] = StructMember{Name: names[i], Type: t, Offset: offset, Size: t.Size(), Align: t.Align()}
		offset += t.Size()
	}
	return members
}

// Pointer returns the canonical pointer type. store must not itself be a
// pointer.
func (tm *TypeManager) Pointer(space AddressSpace, store Type, access Access) *Pointer {
	if _, isPtr := store.(*Pointer); isPtr {
		ICEIf(true, "pointer store type must not itself be a pointer")
	}
	key := fmt.Sprintf("ptr:%d:%p:%d", space, store, access)
	return tm.intern(key, func() Type {
		return &Pointer{Space: space, StoreType: store, AccessCtl: access}
	}).(*Pointer)
}

// Reference returns the canonical reference type.
func (tm *TypeManager) Reference(space AddressSpace, store Type, access Access) *Reference {
	key := fmt.Sprintf("ref:%d:%p:%d", space, store, access)
	return tm.intern(key, func() Type {
		return &Reference{Space: space, StoreType: store, AccessCtl: access}
	}).(*Reference)
}

// Atomic returns the canonical atomic wrapper around a scalar.
func (tm *TypeManager) Atomic(inner *Scalar) *Atomic {
	ICEIf(inner.Kind != I32 && inner.Kind != U32, "atomic inner type must be i32 or u32")
	key := "atomic:" + strconv.Itoa(int(inner.Kind))
	return tm.intern(key, func() Type { return &Atomic{Inner: inner} }).(*Atomic)
}

// SampledTexture returns the canonical sampled-texture type.
func (tm *TypeManager) SampledTexture(dim TextureDimension, sampleType *Scalar) *SampledTexture {
	key := fmt.Sprintf("tex:%d:%d", dim, sampleType.Kind)
	return tm.intern(key, func() Type {
		return &SampledTexture{DimKind: dim, SampleType: sampleType}
	}).(*SampledTexture)
}

// MultisampledTexture returns the canonical multisampled-texture type.
func (tm *TypeManager) MultisampledTexture(dim TextureDimension, sampleType *Scalar) *MultisampledTexture {
	key := fmt.Sprintf("mstex:%d:%d", dim, sampleType.Kind)
	return tm.intern(key, func() Type {
		return &MultisampledTexture{DimKind: dim, SampleType: sampleType}
	}).(*MultisampledTexture)
}

// DepthTexture returns the canonical depth-texture type.
func (tm *TypeManager) DepthTexture(dim TextureDimension) *DepthTexture {
	key := fmt.Sprintf("depthtex:%d", dim)
	return tm.intern(key, func() Type { return &DepthTexture{DimKind: dim} }).(*DepthTexture)
}

// DepthMultisampledTexture returns the canonical multisampled-depth-texture type.
func (tm *TypeManager) DepthMultisampledTexture(dim TextureDimension) *DepthMultisampledTexture {
	key := fmt.Sprintf("mdepthtex:%d", dim)
	return tm.intern(key, func() Type { return &DepthMultisampledTexture{DimKind: dim} }).(*DepthMultisampledTexture)
}

// StorageTexture returns the canonical storage-texture type.
func (tm *TypeManager) StorageTexture(dim TextureDimension, format TexelFormat, access Access) *StorageTexture {
	key := fmt.Sprintf("storagetex:%d:%d:%d", dim, format, access)
	return tm.intern(key, func() Type {
		return &StorageTexture{DimKind: dim, Format: format, AccessCtl: access}
	}).(*StorageTexture)
}

// Sampler returns the canonical sampler type.
func (tm *TypeManager) Sampler(comparison bool) *Sampler {
	key := fmt.Sprintf("sampler:%v", comparison)
	return tm.intern(key, func() Type { return &Sampler{Comparison: comparison} }).(*Sampler)
}

// SubgroupMatrix returns the canonical subgroup matrix type.
func (tm *TypeManager) SubgroupMatrix(kind SubgroupMatrixKind, elem *Scalar, columns, rows uint32) *SubgroupMatrix {
	key := fmt.Sprintf("submat:%d:%d:%d:%d", kind, elem.Kind, columns, rows)
	return tm.intern(key, func() Type {
		return &SubgroupMatrix{Kind: kind, Elem: elem, Columns: columns, Rows: rows}
	}).(*SubgroupMatrix)
}

// All returns every type interned so far, in creation order. Scalars and
// void created eagerly by NewTypeManager are not included since they exist
// before any module-specific type is created; callers that need them can
// use the TypeManager accessors directly.
func (tm *TypeManager) All() []Type { return tm.all }

// Count returns the number of non-eagerly-interned types created so far.
func (tm *TypeManager) Count() int { return len(tm.all) }
