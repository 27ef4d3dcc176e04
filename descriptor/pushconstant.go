package descriptor

import (
	"sort"

	"github.com/celer/vkbind/spirv"
)

// PushConstantBlock is a push-constant block merged across stages. Field
// offsets are the declared ones; Offset is where the block starts in the
// pipeline's push-constant range.
type PushConstantBlock struct {
	Name   string
	Stages spirv.StageFlags
	Offset uint32
	Size   uint32
	Fields map[string]spirv.FieldLayout

	block spirv.StructType
}

// PushConstantRange is the VkPushConstantRange of a block.
type PushConstantRange struct {
	Stages spirv.StageFlags
	Offset uint32
	Size   uint32
}

func (p *PushConstantBlock) Range() PushConstantRange {
	return PushConstantRange{Stages: p.Stages, Offset: p.Offset, Size: p.Size}
}

// Write records a push of one field. The payload must be exactly the
// field's size.
func (p *PushConstantBlock) Write(rec CommandRecorder, field string, data []byte) error {
	f, ok := p.Fields[field]
	if !ok {
		return &UnknownFieldError{Resource: p.Name, Field: field}
	}
	if uint64(len(data)) != f.Size {
		return &SizeMismatchError{Resource: p.Name, Field: field, Want: f.Size, Got: uint64(len(data))}
	}
	rec.PushConstants(p.Stages, p.Offset+uint32(f.Offset), data)
	return nil
}

// PushConstantMap holds a pipeline's push-constant blocks by name.
type PushConstantMap map[string]*PushConstantBlock

// Names returns the block names in sorted order.
func (m PushConstantMap) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Ranges returns the push-constant ranges for pipeline layout creation,
// ordered by block name.
func (m PushConstantMap) Ranges() []PushConstantRange {
	ret := make([]PushConstantRange, 0, len(m))
	for _, n := range m.Names() {
		ret = append(ret, m[n].Range())
	}
	return ret
}
