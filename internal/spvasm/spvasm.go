// Package spvasm assembles small SPIR-V modules for tests. It emits only
// the instructions reflection looks at and does not produce modules a
// driver would accept.
//
// Modules are built with naga's ModuleBuilder. Image and sampled image
// types, which the builder cannot emit, are encoded by hand and appended
// after the builder's output.
package spvasm

import (
	"encoding/binary"
	"fmt"

	nspirv "github.com/gogpu/naga/spirv"
)

type ExecutionModel = nspirv.ExecutionModel

const (
	ExecutionVertex    = nspirv.ExecutionModelVertex
	ExecutionGeometry  = nspirv.ExecutionModelGeometry
	ExecutionFragment  = nspirv.ExecutionModelFragment
	ExecutionGLCompute = nspirv.ExecutionModelGLCompute
)

const (
	StorageUniformConstant = nspirv.StorageClassUniformConstant
	StorageInput           = nspirv.StorageClassInput
	StorageUniform         = nspirv.StorageClassUniform
	StorageOutput          = nspirv.StorageClassOutput
	StoragePushConstant    = nspirv.StorageClassPushConstant
	StorageStorageBuffer   = nspirv.StorageClassStorageBuffer
)

const (
	DecorationBlock         = nspirv.DecorationBlock
	DecorationColMajor      = nspirv.DecorationColMajor
	DecorationArrayStride   = nspirv.DecorationArrayStride
	DecorationMatrixStride  = nspirv.DecorationMatrixStride
	DecorationBinding       = nspirv.DecorationBinding
	DecorationDescriptorSet = nspirv.DecorationDescriptorSet
	DecorationOffset        = nspirv.DecorationOffset

	DecorationBufferBlock nspirv.Decoration = 3
)

// Type opcodes naga does not export.
const (
	OpTypeImage        nspirv.OpCode = 25
	OpTypeSampledImage nspirv.OpCode = 27
	OpTypeAccelStruct  nspirv.OpCode = 5341
)

const (
	Dim2D     = 1
	DimBuffer = 5
)

// Field describes one struct member for Block.
type Field struct {
	Name   string
	Type   uint32
	Offset uint32
	// MatrixStride is emitted with ColMajor when non-zero
	MatrixStride uint32
}

// Builder accumulates a module.
type Builder struct {
	mb *nspirv.ModuleBuilder
	// hand encoded type declarations, placed after the builder's output
	extra []uint32
	cache map[string]uint32
}

// New returns an empty builder.
func New() *Builder {
	mb := nspirv.NewModuleBuilder(nspirv.Version1_3)
	mb.AddCapability(nspirv.CapabilityShader)
	mb.SetMemoryModel(nspirv.AddressingModelLogical, nspirv.MemoryModelGLSL450)
	return &Builder{mb: mb, cache: make(map[string]uint32)}
}

// ID reserves a fresh result id.
func (b *Builder) ID() uint32 {
	return b.mb.AllocID()
}

// EntryPoint declares an entry point with the given execution model.
func (b *Builder) EntryPoint(model ExecutionModel, name string) uint32 {
	fn := b.ID()
	b.mb.AddEntryPoint(model, fn, name, nil)
	return fn
}

func (b *Builder) Name(id uint32, name string) {
	b.mb.AddName(id, name)
}

func (b *Builder) MemberName(id, member uint32, name string) {
	b.mb.AddMemberName(id, member, name)
}

func (b *Builder) Decorate(id uint32, decoration nspirv.Decoration, params ...uint32) {
	b.mb.AddDecorate(id, decoration, params...)
}

func (b *Builder) MemberDecorate(id, member uint32, decoration nspirv.Decoration, params ...uint32) {
	b.mb.AddMemberDecorate(id, member, decoration, params...)
}

// Raw hand encodes a type declaration whose first operand is a fresh
// result id, returning that id.
func (b *Builder) Raw(op nspirv.OpCode, operands ...uint32) uint32 {
	id := b.ID()
	inst := nspirv.Instruction{Opcode: op, Words: append([]uint32{id}, operands...)}
	b.extra = append(b.extra, inst.Encode()...)
	return id
}

func (b *Builder) cached(key string, f func() uint32) uint32 {
	if id, ok := b.cache[key]; ok {
		return id
	}
	id := f()
	b.cache[key] = id
	return id
}

func (b *Builder) Bool() uint32 {
	return b.cached("bool", b.mb.AddTypeBool)
}

func (b *Builder) Float(width uint32) uint32 {
	return b.cached(fmt.Sprintf("f%d", width), func() uint32 { return b.mb.AddTypeFloat(width) })
}

func (b *Builder) Int(width uint32, signed bool) uint32 {
	return b.cached(fmt.Sprintf("i%d.%t", width, signed), func() uint32 { return b.mb.AddTypeInt(width, signed) })
}

func (b *Builder) Vector(component, n uint32) uint32 {
	return b.cached(fmt.Sprintf("v%d.%d", component, n), func() uint32 { return b.mb.AddTypeVector(component, n) })
}

func (b *Builder) Matrix(column, n uint32) uint32 {
	return b.cached(fmt.Sprintf("m%d.%d", column, n), func() uint32 { return b.mb.AddTypeMatrix(column, n) })
}

// Vec4 is a vector of four 32-bit floats.
func (b *Builder) Vec4() uint32 {
	return b.Vector(b.Float(32), 4)
}

// Mat4 is a 4x4 matrix of 32-bit floats.
func (b *Builder) Mat4() uint32 {
	return b.Matrix(b.Vec4(), 4)
}

// Constant declares a 32-bit unsigned integer constant.
func (b *Builder) Constant(v uint32) uint32 {
	return b.mb.AddConstant(b.Int(32, false), v)
}

// Array declares an array of n elements, with an ArrayStride decoration
// when stride is non-zero.
func (b *Builder) Array(elem, n, stride uint32) uint32 {
	id := b.mb.AddTypeArray(elem, b.Constant(n))
	if stride != 0 {
		b.Decorate(id, DecorationArrayStride, stride)
	}
	return id
}

func (b *Builder) RuntimeArray(elem, stride uint32) uint32 {
	id := b.mb.AddTypeRuntimeArray(elem)
	if stride != 0 {
		b.Decorate(id, DecorationArrayStride, stride)
	}
	return id
}

func (b *Builder) Struct(members ...uint32) uint32 {
	return b.mb.AddTypeStruct(members...)
}

func (b *Builder) Pointer(storage nspirv.StorageClass, t uint32) uint32 {
	return b.cached(fmt.Sprintf("p%d.%d", storage, t), func() uint32 { return b.mb.AddTypePointer(storage, t) })
}

func (b *Builder) Image(dim, sampled uint32) uint32 {
	return b.Raw(OpTypeImage, b.Float(32), dim, 0, 0, 0, sampled, 0)
}

func (b *Builder) SampledImage(image uint32) uint32 {
	return b.Raw(OpTypeSampledImage, image)
}

func (b *Builder) Sampler() uint32 {
	return b.cached("sampler", b.mb.AddTypeSampler)
}

// Variable declares a global of type t in the given storage class.
func (b *Builder) Variable(storage nspirv.StorageClass, t uint32) uint32 {
	return b.mb.AddVariable(b.Pointer(storage, t), storage)
}

// NamedStruct declares a named struct with explicit member offsets. An empty
// field name leaves the member unnamed.
func (b *Builder) NamedStruct(name string, fields ...Field) uint32 {
	members := make([]uint32, len(fields))
	for i, f := range fields {
		members[i] = f.Type
	}
	id := b.Struct(members...)
	if name != "" {
		b.Name(id, name)
	}
	for i, f := range fields {
		if f.Name != "" {
			b.MemberName(id, uint32(i), f.Name)
		}
		b.MemberDecorate(id, uint32(i), DecorationOffset, f.Offset)
		if f.MatrixStride != 0 {
			b.MemberDecorate(id, uint32(i), DecorationColMajor)
			b.MemberDecorate(id, uint32(i), DecorationMatrixStride, f.MatrixStride)
		}
	}
	return id
}

// Block is NamedStruct decorated as a Block.
func (b *Builder) Block(name string, fields ...Field) uint32 {
	id := b.NamedStruct(name, fields...)
	b.Decorate(id, DecorationBlock)
	return id
}

// Bind declares a named global of type t bound at (set, binding).
func (b *Builder) Bind(storage nspirv.StorageClass, name string, t, set, binding uint32) uint32 {
	v := b.Variable(storage, t)
	if name != "" {
		b.Name(v, name)
	}
	b.Decorate(v, DecorationDescriptorSet, set)
	b.Decorate(v, DecorationBinding, binding)
	return v
}

// Uniform declares a uniform buffer of block type t.
func (b *Builder) Uniform(name string, t, set, binding uint32) uint32 {
	return b.Bind(StorageUniform, name, t, set, binding)
}

// Storage declares a storage buffer of block type t.
func (b *Builder) Storage(name string, t, set, binding uint32) uint32 {
	return b.Bind(StorageStorageBuffer, name, t, set, binding)
}

// PushConstant declares a push-constant block variable.
func (b *Builder) PushConstant(name string, t uint32) uint32 {
	v := b.Variable(StoragePushConstant, t)
	if name != "" {
		b.Name(v, name)
	}
	return v
}

// Bytes returns the assembled module as little-endian bytes.
func (b *Builder) Bytes() []byte {
	out := b.mb.Build()
	for _, w := range b.extra {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

// Words returns the assembled module.
func (b *Builder) Words() []uint32 {
	data := b.Bytes()
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words
}

// Globals builds the common fixture of a uniform block named "Globals" at
// (0, 0) holding a vec4 color at 0 and a float intensity at 16.
func Globals(model ExecutionModel) *Builder {
	b := New()
	b.EntryPoint(model, "main")
	blk := b.Block("Globals",
		Field{Name: "color", Type: b.Vec4(), Offset: 0},
		Field{Name: "intensity", Type: b.Float(32), Offset: 16},
	)
	b.Uniform("", blk, 0, 0)
	return b
}
