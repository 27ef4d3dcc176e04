// Package spirv reflects compiled SPIR-V modules into the descriptor
// resources and push-constant blocks they declare.
//
// Only the subset of the binary format needed for resource reflection is
// decoded: debug names, decorations, type declarations, constants, global
// variables and entry points. Function bodies are skipped.
package spirv

import (
	naga "github.com/gogpu/naga/spirv"
)

// MagicNumber is the first word of every SPIR-V module.
const MagicNumber uint32 = naga.MagicNumber

const headerWords = 5

const (
	opName             = uint16(naga.OpName)
	opMemberName       = uint16(naga.OpMemberName)
	opEntryPoint       = uint16(naga.OpEntryPoint)
	opTypeVoid         = uint16(naga.OpTypeVoid)
	opTypeBool         = uint16(naga.OpTypeBool)
	opTypeInt          = uint16(naga.OpTypeInt)
	opTypeFloat        = uint16(naga.OpTypeFloat)
	opTypeVector       = uint16(naga.OpTypeVector)
	opTypeMatrix       = uint16(naga.OpTypeMatrix)
	opTypeArray        = uint16(naga.OpTypeArray)
	opTypeRuntimeArray = uint16(naga.OpTypeRuntimeArray)
	opTypeStruct       = uint16(naga.OpTypeStruct)
	opTypePointer      = uint16(naga.OpTypePointer)
	opConstant         = uint16(naga.OpConstant)
	opVariable         = uint16(naga.OpVariable)
	opDecorate         = uint16(naga.OpDecorate)
	opMemberDecorate   = uint16(naga.OpMemberDecorate)
)

// Opcodes naga does not export.
const (
	opTypeImage          uint16 = 25
	opTypeSampler        uint16 = 26
	opTypeSampledImage   uint16 = 27
	opTypeForwardPointer uint16 = 39
	opSpecConstant       uint16 = 50
	opTypeCoopMatrix     uint16 = 4456
	opTypeRayQuery       uint16 = 4472
	opTypeAccelStruct    uint16 = 5341
)

const (
	decorationRowMajor      = uint32(naga.DecorationRowMajor)
	decorationArrayStride   = uint32(naga.DecorationArrayStride)
	decorationMatrixStride  = uint32(naga.DecorationMatrixStride)
	decorationBinding       = uint32(naga.DecorationBinding)
	decorationDescriptorSet = uint32(naga.DecorationDescriptorSet)
	decorationOffset        = uint32(naga.DecorationOffset)

	// legacy storage buffer spelling, absent from naga
	decorationBufferBlock uint32 = 3
)

const (
	storageUniformConstant = uint32(naga.StorageClassUniformConstant)
	storageUniform         = uint32(naga.StorageClassUniform)
	storagePushConstant    = uint32(naga.StorageClassPushConstant)
	storageStorageBuffer   = uint32(naga.StorageClassStorageBuffer)
)

const (
	execVertex   = uint32(naga.ExecutionModelVertex)
	execGeometry = uint32(naga.ExecutionModelGeometry)
	execFragment = uint32(naga.ExecutionModelFragment)
)

// Image dimensionalities, as found in ImageType.Dim.
const (
	Dim1D          = 0
	Dim2D          = 1
	Dim3D          = 2
	DimCube        = 3
	DimRect        = 4
	DimBuffer      = 5
	DimSubpassData = 6
)
